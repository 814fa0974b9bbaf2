package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// Store is the part of the credential store the watcher needs.
type Store interface {
	Read(ctx context.Context) (*models.Credential, error)
	Clear(ctx context.Context) error
}

// Verifier checks a live session with the server, e.g. the profile flow's
// VerifySession.
type Verifier func(ctx context.Context)

// Watcher periodically re-evaluates the stored session. It clears a record
// whose validity window has elapsed and reports status transitions.
type Watcher struct {
	store    Store
	policy   Policy
	now      func() time.Time
	log      logging.Logger
	onStatus func(Assessment)
	verify   Verifier

	mu   sync.Mutex
	last Status
}

type WatcherOption func(*Watcher)

func WithPolicy(p Policy) WatcherOption { return func(w *Watcher) { w.policy = p } }

func WithNow(now func() time.Time) WatcherOption { return func(w *Watcher) { w.now = now } }

func WithLogger(log logging.Logger) WatcherOption { return func(w *Watcher) { w.log = log } }

// OnStatusChange registers fn to receive the assessment whenever the status
// differs from the previous check. The first check always reports.
func OnStatusChange(fn func(Assessment)) WatcherOption {
	return func(w *Watcher) { w.onStatus = fn }
}

// WithVerifier makes every check of a live session also call v.
func WithVerifier(v Verifier) WatcherOption { return func(w *Watcher) { w.verify = v } }

func NewWatcher(store Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:  store,
		policy: DefaultPolicy(),
		now:    time.Now,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("component", "session_watcher")
	return w
}

// Run checks once immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	w.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check evaluates the stored record once and returns the assessment.
func (w *Watcher) Check(ctx context.Context) Assessment {
	rec, err := w.store.Read(ctx)
	if err != nil {
		w.log.Warn(ctx, "cannot read stored session", "error", err)
		return Assessment{Status: w.lastStatus()}
	}

	a := Evaluate(rec, w.now(), w.policy)
	if a.Expired {
		w.log.Info(ctx, "session expired, logging out", "expires_at", a.ExpiresAt)
		if err := w.store.Clear(ctx); err != nil {
			w.log.Warn(ctx, "cannot clear expired session", "error", err)
		}
	}

	w.publish(a)

	if a.Status != StatusNotLoggedIn && w.verify != nil {
		w.verify(ctx)
	}
	return a
}

func (w *Watcher) publish(a Assessment) {
	w.mu.Lock()
	changed := w.last != a.Status
	w.last = a.Status
	w.mu.Unlock()

	if changed && w.onStatus != nil {
		w.onStatus(a)
	}
}

func (w *Watcher) lastStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == "" {
		return StatusNotLoggedIn
	}
	return w.last
}
