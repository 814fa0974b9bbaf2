package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/flows"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

const (
	deviceNamespace = "device"
	saltKey         = "sealer_salt"
	saltSize        = 16
)

type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB
	client client.Client
	store  *credentials.Store
	deps   flows.Deps
	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu     sync.Mutex
	status session.Status
	user   string
}

// NewApp wires the database, credential store, transport and auth service
// described by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewLogger(c.LogLevel, os.Stderr)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	storeOpts := []credentials.Option{credentials.WithLogger(log)}
	if c.DeviceSecret != "" {
		sealer, err := newSealer(ctx, db, c.DeviceSecret)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		storeOpts = append(storeOpts, credentials.WithSealer(sealer))
	}

	apiClient, err := newClient(c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, log, db, apiClient, credentials.NewStore(db, storeOpts...), os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, log logging.Logger, db *sql.DB, apiClient client.Client,
	store *credentials.Store, in io.Reader, out io.Writer) *App {
	a := &App{
		config: c,
		log:    log,
		db:     db,
		client: apiClient,
		store:  store,
		reader: bufio.NewReader(in),
		out:    out,
		now:    time.Now,
		status: session.StatusNotLoggedIn,
	}
	a.deps = flows.Deps{
		Auth:   services.NewAuthService(apiClient, log),
		Store:  store,
		Policy: c.Policy(),
		Now:    func() time.Time { return a.now() },
		Log:    log,
	}
	return a
}

// newClient picks the transport named by the configuration.
func newClient(c *config.Config) (client.Client, error) {
	switch c.Transport {
	case config.TransportGRPC:
		target := c.ServerEndpointAddr
		if _, rest, ok := strings.Cut(target, "://"); ok {
			target = rest
		}
		return client.NewGRPCClient(target, grpc.WithChainUnaryInterceptor(timeoutInterceptor(c.RequestTimeout)))
	default:
		return client.NewHTTPClient(c.ServerEndpointAddr, &http.Client{Timeout: c.RequestTimeout}, client.DefaultEndpoints())
	}
}

func timeoutInterceptor(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if d <= 0 {
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// newSealer derives the token sealer from secret and a per-database salt,
// creating the salt on first use.
func newSealer(ctx context.Context, db *sql.DB, secret string) (*cryptox.Sealer, error) {
	repo := metadata.NewSQLiteRepository(db, deviceNamespace)

	salt, err := repo.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		salt = common.GenerateRandByteArray(saltSize)
		if err := repo.Set(ctx, saltKey, salt); err != nil {
			return nil, err
		}
	}

	return cryptox.NewSealer([]byte(secret), salt)
}

// Run starts the session watcher and blocks in the REPL until the user
// exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "sessionkeeper console (type 'help' for commands)")

	if err := a.trackSession(ctx); err != nil {
		a.log.Warn(ctx, "cannot track stored session", "error", err)
	}

	verifier := flows.NewProfileFlow(ctx, a.deps, flows.OnNavigateToLogin(func() {
		fmt.Fprintln(a.out, "Your session is no longer valid, please log in again.")
	}))
	defer verifier.Close()

	watcher := session.NewWatcher(a.store,
		session.WithPolicy(a.config.Policy()),
		session.WithNow(a.now),
		session.WithLogger(a.log),
		session.WithVerifier(func(context.Context) {
			verifier.VerifySession()
			_ = verifier.Wait()
		}),
		session.OnStatusChange(a.onStatusChange),
	)

	go watcher.Run(ctx, a.config.SessionCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close releases the transport and the database.
func (a *App) Close() error {
	cerr := a.client.Close()
	if err := a.db.Close(); err != nil {
		return err
	}
	return cerr
}

func (a *App) onStatusChange(as session.Assessment) {
	a.mu.Lock()
	a.status = as.Status
	if as.Status == session.StatusNotLoggedIn {
		a.user = ""
	}
	a.mu.Unlock()

	if as.Status == session.StatusExpiringSoon {
		fmt.Fprintf(a.out, "Your session expires in %d day(s), log in again to extend it.\n", as.RemainingDays)
	}
}

func (a *App) setStatus(s session.Status, user string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s == session.StatusNotLoggedIn {
		user = ""
	}
	a.status, a.user = s, user
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status != session.StatusNotLoggedIn
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == "" {
		return fmt.Sprintf("(%s)", strings.ToLower(string(a.status)))
	}
	return fmt.Sprintf("(%s %s)", a.user, strings.ToLower(string(a.status)))
}

// trackSession keeps the prompt status in step with every change of the
// credential store until ctx is done.
func (a *App) trackSession(ctx context.Context) error {
	updates, err := a.store.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for rec := range updates {
			a.applyRecord(rec)
		}
	}()
	return nil
}

// refreshStatus re-reads the stored session for commands that report it.
func (a *App) refreshStatus(ctx context.Context) session.Assessment {
	rec, err := a.store.Read(ctx)
	if err != nil {
		a.log.Warn(ctx, "cannot read stored session", "error", err)
		return session.Assessment{Status: session.StatusNotLoggedIn}
	}
	return a.applyRecord(rec)
}

func (a *App) applyRecord(rec *models.Credential) session.Assessment {
	as := session.Evaluate(rec, a.now(), a.config.Policy())
	user := ""
	if rec != nil {
		user = rec.Username
	}
	a.setStatus(as.Status, user)
	return as
}
