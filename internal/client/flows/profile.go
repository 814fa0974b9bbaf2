package flows

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

type ProfilePhase string

const (
	ProfileIdle    ProfilePhase = "IDLE"
	ProfileLoading ProfilePhase = "LOADING"
	ProfileLoaded  ProfilePhase = "LOADED"
	ProfileFailed  ProfilePhase = "FAILED"
)

// ProfileState is the observable state of the profile screen.
//
// Pending is set while any call (fetch, verify or logout) is outstanding. A
// logout requested meanwhile is remembered in LogoutQueued and started when
// that call completes.
type ProfileState struct {
	Phase        ProfilePhase
	Profile      *models.ProfileInfo
	Failure      *common.AuthFailure
	Pending      bool
	LogoutQueued bool

	// LastVerifyFailure keeps the latest transient verification failure;
	// it does not affect the session.
	LastVerifyFailure *common.AuthFailure

	pendingKind EffectKind
}

// ReduceProfile is the profile/session state machine.
func ReduceProfile(s ProfileState, ev ProfileEvent) (ProfileState, Effect) {
	switch ev.(type) {
	case Mounted, RefreshRequested:
		if s.Pending {
			return s, NoEffect
		}
		s.Phase = ProfileLoading
		s.Failure = nil
		return s.begin(EffectFetchProfile), Effect{Kind: EffectFetchProfile}

	case VerifyRequested:
		if s.Pending {
			return s, NoEffect
		}
		return s.begin(EffectVerifySession), Effect{Kind: EffectVerifySession}

	case LogoutRequested:
		if s.Pending {
			if s.pendingKind != EffectLogout {
				s.LogoutQueued = true
			}
			return s, NoEffect
		}
		return s.begin(EffectLogout), Effect{Kind: EffectLogout, Signal: SignalLogoutComplete}

	case EffectResult:
		return reduceProfileResult(s, ev.(EffectResult))
	}
	return s, NoEffect
}

func (s ProfileState) begin(kind EffectKind) ProfileState {
	s.Pending = true
	s.pendingKind = kind
	return s
}

func (s ProfileState) settle() ProfileState {
	s.Pending = false
	s.pendingKind = EffectNone
	return s
}

func reduceProfileResult(s ProfileState, r EffectResult) (ProfileState, Effect) {
	if r.Effect.Kind == EffectClearCredential {
		return s, NoEffect
	}
	if !s.Pending || r.Effect.Kind != s.pendingKind {
		return s, NoEffect
	}
	s = s.settle()

	if r.Effect.Kind == EffectLogout {
		if r.Err != nil {
			s.LogoutQueued = false
			s.Phase = ProfileFailed
			s.Failure = r.Failure()
			return s, NoEffect
		}
		return ProfileState{Phase: ProfileIdle}, NoEffect
	}

	if s.LogoutQueued {
		s.LogoutQueued = false
		return s.begin(EffectLogout), Effect{Kind: EffectLogout, Signal: SignalLogoutComplete}
	}

	f := r.Failure()
	switch r.Effect.Kind {
	case EffectFetchProfile:
		if f != nil {
			s.Phase = ProfileFailed
			s.Failure = f
			s.Profile = nil
			if f.Kind.DefinitelyInvalid() {
				return s, Effect{Kind: EffectClearCredential, Signal: SignalNavigateToLogin}
			}
			return s, NoEffect
		}
		s.Phase = ProfileLoaded
		s.Profile = r.Profile
		return s, NoEffect

	case EffectVerifySession:
		if f == nil {
			s.LastVerifyFailure = nil
			return s, NoEffect
		}
		if f.Kind.DefinitelyInvalid() {
			s.Phase = ProfileFailed
			s.Failure = f
			s.Profile = nil
			return s, Effect{Kind: EffectClearCredential, Signal: SignalNavigateToLogin}
		}
		s.LastVerifyFailure = f
		return s, NoEffect
	}
	return s, NoEffect
}

// ProfileFlow drives ReduceProfile for one profile screen.
type ProfileFlow struct {
	m *machine[ProfileState, ProfileEvent]
}

func NewProfileFlow(ctx context.Context, deps Deps, opts ...Option) *ProfileFlow {
	o := buildOptions(opts)
	m := newMachine(ctx, "profile", deps, ProfileState{Phase: ProfileIdle}, ReduceProfile,
		func(r EffectResult) ProfileEvent { return r })
	m.onChange = changeHandler[ProfileState](o)
	m.onSignal = o.signalHandler()
	return &ProfileFlow{m: m}
}

// Mount loads the profile of the stored session. Without a stored token the
// flow fails with SESSION_EXPIRED.
func (f *ProfileFlow) Mount()   { f.m.dispatch(Mounted{}) }
func (f *ProfileFlow) Refresh() { f.m.dispatch(RefreshRequested{}) }

// Logout ends the session on the server and always clears it locally, then
// raises OnLogoutComplete.
func (f *ProfileFlow) Logout() { f.m.dispatch(LogoutRequested{}) }

// VerifySession checks the stored token with the server. Only a definite
// rejection clears the session and raises OnNavigateToLogin; network and
// server failures leave it untouched.
func (f *ProfileFlow) VerifySession() { f.m.dispatch(VerifyRequested{}) }

func (f *ProfileFlow) State() ProfileState { return f.m.current() }
func (f *ProfileFlow) Close()              { f.m.close() }
func (f *ProfileFlow) Wait() error         { return f.m.wait() }
