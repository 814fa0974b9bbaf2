// Package flows holds the login, registration and profile flows. Each flow
// is a pure reducer, Reduce(State, Event) (State, Effect), driven by a
// controller that runs the returned effects asynchronously and feeds their
// results back as events.
//
// A controller owns its state exclusively. Flows never share state; they
// only meet in the credential store.
package flows

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

type machine[S any, E any] struct {
	mu     sync.Mutex
	state  S
	closed bool

	reduce   func(S, E) (S, Effect)
	wrap     func(EffectResult) E
	deps     Deps
	ctx      context.Context
	g        errgroup.Group
	log      logging.Logger
	onChange func(S)
	onSignal func(Signal)
}

func newMachine[S any, E any](ctx context.Context, name string, deps Deps, initial S,
	reduce func(S, E) (S, Effect), wrap func(EffectResult) E) *machine[S, E] {
	deps = deps.withDefaults()
	return &machine[S, E]{
		state:  initial,
		reduce: reduce,
		wrap:   wrap,
		deps:   deps,
		ctx:    context.WithoutCancel(ctx),
		log:    deps.Log.With("flow", name),
	}
}

// dispatch applies ev and starts the resulting effect. onChange runs under
// the machine lock and must not dispatch.
func (m *machine[S, E]) dispatch(ev E) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	next, eff := m.reduce(m.state, ev)
	m.state = next
	if m.onChange != nil {
		m.onChange(next)
	}
	m.mu.Unlock()

	if eff.Kind == EffectNone && eff.Signal == SignalNone {
		return
	}

	m.g.Go(func() error {
		res := m.deps.run(m.ctx, eff)

		if m.isClosed() {
			m.log.Debug(m.ctx, "flow closed, discarding effect result", "effect", eff.Kind.String())
			return nil
		}
		if eff.Kind != EffectNone {
			m.dispatch(m.wrap(res))
		}
		if eff.Signal == SignalNone {
			return nil
		}
		// A signal promises the local session is gone.
		if res.Err != nil {
			m.log.Warn(m.ctx, "effect failed, signal withheld", "effect", eff.Kind.String(), "error", res.Err)
			return nil
		}
		if m.onSignal != nil && !m.isClosed() {
			m.onSignal(eff.Signal)
		}
		return nil
	})
}

func (m *machine[S, E]) current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine[S, E]) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// close detaches the flow. Effects already running complete, but their
// results are dropped.
func (m *machine[S, E]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// wait blocks until no effect is in flight.
func (m *machine[S, E]) wait() error {
	return m.g.Wait()
}

// Option configures a flow controller.
type Option func(*options)

type options struct {
	onChange         any
	onNavigateLogin  func()
	onLogoutComplete func()
}

// OnChange registers fn to receive every new state of a flow whose state
// type is S; it is ignored by other flows. fn runs while the flow is locked
// and must not call back into it.
func OnChange[S any](fn func(state S)) Option {
	return func(o *options) { o.onChange = fn }
}

// OnNavigateToLogin registers fn to run when the flow finds the stored
// session definitely invalid and has cleared it.
func OnNavigateToLogin(fn func()) Option {
	return func(o *options) { o.onNavigateLogin = fn }
}

// OnLogoutComplete registers fn to run after a logout cleared the local
// session, whatever the server answered. It does not run when the local
// clear itself fails.
func OnLogoutComplete(fn func()) Option {
	return func(o *options) { o.onLogoutComplete = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) signalHandler() func(Signal) {
	return func(s Signal) {
		switch s {
		case SignalNavigateToLogin:
			if o.onNavigateLogin != nil {
				o.onNavigateLogin()
			}
		case SignalLogoutComplete:
			if o.onLogoutComplete != nil {
				o.onLogoutComplete()
			}
		}
	}
}

func changeHandler[S any](o options) func(S) {
	fn, _ := o.onChange.(func(S))
	return fn
}
