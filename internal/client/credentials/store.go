// Package credentials implements the Credential Store: the single durable
// session record of this device, kept in the local SQLite metadata table.
//
// Every write replaces the record as a whole inside one transaction, so a
// reader never observes a token without its issue time or vice versa.
// Save, Read and Clear are serialised; the last writer wins.
package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// Record keys inside common.CredentialNamespace.
const (
	keyToken    = "token"
	keyUsername = "username"
	keyUserID   = "user_id"
	keyIssuedAt = "issued_at"
)

// Sealer protects the token at rest. *cryptox.Sealer implements it.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

type Option func(*Store)

// WithClock overrides the source of IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSealer stores the token sealed. Records that cannot be opened, e.g.
// written under another device secret, read as absent and are cleared.
func WithSealer(sealer Sealer) Option {
	return func(s *Store) { s.sealer = sealer }
}

func WithLogger(log logging.Logger) Option {
	return func(s *Store) { s.log = log }
}

type Store struct {
	db     *sql.DB
	now    func() time.Time
	sealer Sealer
	log    logging.Logger

	mu     sync.Mutex
	subs   map[uint64]chan *models.Credential
	nextID uint64
}

// NewStore binds a Store to a migrated database (see client.InitDatabase).
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:   db,
		now:  time.Now,
		log:  logging.Nop(),
		subs: make(map[uint64]chan *models.Credential),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "credential_store")
	return s
}

// Save overwrites the record with token, a fresh IssuedAt and the non-zero
// fields of id. Zero identity fields keep their previous values, except
// that a new Username drops a user id stored for a different user.
func (s *Store) Save(ctx context.Context, token string, id models.Identity) error {
	if token == "" {
		return common.ErrEmptyToken
	}

	stored := []byte(token)
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(stored)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		stored = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt := s.now().UTC()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx, common.CredentialNamespace)

		if err := repo.Set(ctx, keyToken, stored); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyIssuedAt, []byte(issuedAt.Format(time.RFC3339Nano))); err != nil {
			return err
		}
		if id.Username != "" {
			prev, err := repo.Get(ctx, keyUsername)
			if err != nil {
				return err
			}
			// Another user's id must not survive a switch of account.
			if string(prev) != id.Username && id.UserID == 0 {
				if err := repo.Delete(ctx, keyUserID); err != nil {
					return err
				}
			}
			if err := repo.Set(ctx, keyUsername, []byte(id.Username)); err != nil {
				return err
			}
		}
		if id.UserID != 0 {
			if err := repo.Set(ctx, keyUserID, []byte(strconv.FormatInt(id.UserID, 10))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	rec, err := s.readLocked(ctx)
	if err != nil {
		return err
	}
	s.publishLocked(rec)
	return nil
}

// Read returns the current record, or nil when no session is stored.
func (s *Store) Read(ctx context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(ctx)
}

// Clear removes every field of the record. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(ctx); err != nil {
		return err
	}
	s.publishLocked(nil)
	return nil
}

// Subscribe delivers the current record immediately and then the record
// after every Save or Clear. Slow receivers only see the latest value. The
// channel is closed once ctx is done.
func (s *Store) Subscribe(ctx context.Context) (<-chan *models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readLocked(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan *models.Credential, 1)
	ch <- rec

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		close(ch)
	}()

	return ch, nil
}

func (s *Store) readLocked(ctx context.Context) (*models.Credential, error) {
	values, err := metadata.NewSQLiteRepository(s.db, common.CredentialNamespace).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}

	token := values[keyToken]
	if len(token) == 0 {
		return nil, nil
	}

	if s.sealer != nil {
		opened, err := s.sealer.Open(token)
		if err != nil {
			s.log.Warn(ctx, "stored token cannot be opened, discarding record", "error", err)
			if cerr := s.clearLocked(ctx); cerr != nil {
				return nil, cerr
			}
			s.publishLocked(nil)
			return nil, nil
		}
		token = opened
	}

	rec := &models.Credential{
		Token:    string(token),
		Username: string(values[keyUsername]),
	}

	if raw := values[keyUserID]; len(raw) > 0 {
		uid, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: user id %q", common.ErrCorruptCredential, raw)
		}
		rec.UserID = uid
	}

	// A missing issue time leaves IssuedAt zero, which the resolver treats
	// as expired.
	if raw := values[keyIssuedAt]; len(raw) > 0 {
		ts, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: issued at %q", common.ErrCorruptCredential, raw)
		}
		rec.IssuedAt = ts
	}

	return rec, nil
}

func (s *Store) clearLocked(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx, common.CredentialNamespace).Clear(ctx)
	})
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// publishLocked hands rec to every subscriber, replacing an undelivered
// older value.
func (s *Store) publishLocked(rec *models.Credential) {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- clone(rec)
	}
}

func clone(rec *models.Credential) *models.Credential {
	if rec == nil {
		return nil
	}
	c := *rec
	return &c
}
