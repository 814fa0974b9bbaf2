package flows

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

type LoginPhase string

const (
	LoginIdle       LoginPhase = "IDLE"
	LoginValidating LoginPhase = "VALIDATING"
	LoginPending    LoginPhase = "PENDING"
	LoginSuccess    LoginPhase = "SUCCESS"
	LoginFailed     LoginPhase = "FAILED"
)

// LoginState is the observable state of the login screen. Identity and
// DisplayName are set in LoginSuccess, Failure in LoginFailed.
type LoginState struct {
	Phase       LoginPhase
	Username    string
	Password    string
	Identity    models.Identity
	DisplayName string
	Failure     *common.AuthFailure

	mounted bool
	stored  models.Identity
}

// Pending reports whether a call is outstanding.
func (s LoginState) Pending() bool {
	return s.Phase == LoginPending || s.Phase == LoginValidating
}

// ReduceLogin is the login state machine.
func ReduceLogin(s LoginState, ev LoginEvent) (LoginState, Effect) {
	switch ev := ev.(type) {
	case Mounted:
		if s.mounted || s.Phase != LoginIdle {
			return s, NoEffect
		}
		s.mounted = true
		s.Phase = LoginValidating
		return s, Effect{Kind: EffectLoadCredential}

	case FieldChanged:
		if s.Phase == LoginSuccess {
			return s, NoEffect
		}
		switch ev.Field {
		case FieldUsername:
			s.Username = ev.Value
		case FieldPassword:
			s.Password = ev.Value
		default:
			return s, NoEffect
		}
		if s.Phase == LoginFailed {
			s.Phase = LoginIdle
			s.Failure = nil
		}
		return s, NoEffect

	case Submitted:
		if s.Pending() || s.Phase == LoginSuccess {
			return s, NoEffect
		}
		if strings.TrimSpace(s.Username) == "" || s.Password == "" {
			s.Phase = LoginFailed
			s.Failure = common.NewFailure(common.KindInvalidInput, "username and password are required")
			return s, NoEffect
		}
		s.Phase = LoginPending
		s.Failure = nil
		return s, Effect{Kind: EffectLogin, Username: strings.TrimSpace(s.Username), Password: s.Password}

	case EffectResult:
		return reduceLoginResult(s, ev)
	}
	return s, NoEffect
}

func reduceLoginResult(s LoginState, r EffectResult) (LoginState, Effect) {
	switch r.Effect.Kind {
	case EffectLoadCredential:
		if s.Phase != LoginValidating {
			return s, NoEffect
		}
		if r.Err != nil || !r.Credential.HasSession() {
			s.Phase = LoginIdle
			return s, NoEffect
		}
		s.stored = models.Identity{Username: r.Credential.Username, UserID: r.Credential.UserID}
		return s, Effect{Kind: EffectVerifyToken, Token: r.Credential.Token}

	case EffectVerifyToken:
		if s.Phase != LoginValidating {
			return s, NoEffect
		}
		if r.Err != nil {
			s.Phase = LoginIdle
			s.stored = models.Identity{}
			return s, Effect{Kind: EffectClearCredential}
		}
		id := r.Profile.Identity()
		if id.Username == "" {
			id.Username = s.stored.Username
		}
		if id.UserID == 0 {
			id.UserID = s.stored.UserID
		}
		s.Phase = LoginSuccess
		s.Identity = id
		s.DisplayName = id.DisplayName(s.Username)
		return s, NoEffect

	case EffectLogin:
		if s.Phase != LoginPending {
			return s, NoEffect
		}
		if r.Err != nil {
			s.Phase = LoginFailed
			s.Failure = r.Failure()
			return s, NoEffect
		}
		s.Identity = savedIdentity(r)
		s.DisplayName = s.Identity.Username
		return s, Effect{Kind: EffectSaveCredential, Token: r.Payload.Token, Identity: s.Identity}

	case EffectSaveCredential:
		if s.Phase != LoginPending {
			return s, NoEffect
		}
		if r.Err != nil {
			s.Phase = LoginFailed
			s.Failure = r.Failure()
			s.Identity = models.Identity{}
			s.DisplayName = ""
			return s, NoEffect
		}
		s.Phase = LoginSuccess
		s.Password = ""
		return s, NoEffect
	}
	return s, NoEffect
}

// LoginFlow drives ReduceLogin for one login screen.
type LoginFlow struct {
	m *machine[LoginState, LoginEvent]
}

// NewLoginFlow creates the flow in LoginIdle. Call Mount to run the stored
// session check.
func NewLoginFlow(ctx context.Context, deps Deps, opts ...Option) *LoginFlow {
	o := buildOptions(opts)
	m := newMachine(ctx, "login", deps, LoginState{Phase: LoginIdle}, ReduceLogin,
		func(r EffectResult) LoginEvent { return r })
	m.onChange = changeHandler[LoginState](o)
	m.onSignal = o.signalHandler()
	return &LoginFlow{m: m}
}

func (f *LoginFlow) Mount()                   { f.m.dispatch(Mounted{}) }
func (f *LoginFlow) SetUsername(value string) { f.m.dispatch(FieldChanged{Field: FieldUsername, Value: value}) }
func (f *LoginFlow) SetPassword(value string) { f.m.dispatch(FieldChanged{Field: FieldPassword, Value: value}) }
func (f *LoginFlow) Submit()                  { f.m.dispatch(Submitted{}) }
func (f *LoginFlow) State() LoginState        { return f.m.current() }
func (f *LoginFlow) Close()                   { f.m.close() }
func (f *LoginFlow) Wait() error              { return f.m.wait() }
