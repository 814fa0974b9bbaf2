package flows

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
	PasswordMinLen = 4
	PasswordMaxLen = 100
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateUsername returns the user-facing problem with v, or "".
func ValidateUsername(v string) string {
	n := utf8.RuneCountInString(v)
	switch {
	case n < UsernameMinLen:
		return "username must be at least 3 characters"
	case n > UsernameMaxLen:
		return "username must be at most 50 characters"
	case !usernamePattern.MatchString(v):
		return "username may contain only letters, digits and underscores"
	}
	return ""
}

func ValidatePassword(v string) string {
	n := utf8.RuneCountInString(v)
	switch {
	case n < PasswordMinLen:
		return "password must be at least 4 characters"
	case n > PasswordMaxLen:
		return "password must be at most 100 characters"
	case strings.IndexFunc(v, unicode.IsSpace) >= 0:
		return "password must not contain spaces"
	}
	return ""
}

func ValidateConfirm(password, confirm string) string {
	if confirm != password {
		return "passwords do not match"
	}
	return ""
}

type RegisterPhase string

const (
	RegisterIdle    RegisterPhase = "IDLE"
	RegisterPending RegisterPhase = "PENDING"
	RegisterSuccess RegisterPhase = "SUCCESS"
	RegisterFailed  RegisterPhase = "FAILED"
)

// RegisterState is the observable state of the registration screen. Errors
// holds the validation message shown next to each field; a field that is
// still empty never shows one.
type RegisterState struct {
	Phase        RegisterPhase
	Username     string
	Password     string
	Confirm      string
	Errors       map[Field]string
	EnableSubmit bool
	Identity     models.Identity
	DisplayName  string
	Failure      *common.AuthFailure
}

// NewRegisterState returns the initial registration state.
func NewRegisterState() RegisterState {
	return RegisterState{Phase: RegisterIdle, Errors: map[Field]string{}}
}

func (s RegisterState) Pending() bool { return s.Phase == RegisterPending }

// validationErrors checks every field regardless of whether it is empty.
func (s RegisterState) validationErrors() map[Field]string {
	errs := map[Field]string{}
	if msg := ValidateUsername(s.Username); msg != "" {
		errs[FieldUsername] = msg
	}
	if msg := ValidatePassword(s.Password); msg != "" {
		errs[FieldPassword] = msg
	}
	if msg := ValidateConfirm(s.Password, s.Confirm); msg != "" {
		errs[FieldConfirm] = msg
	}
	return errs
}

// refresh recomputes the shown errors of the given fields and EnableSubmit.
func (s RegisterState) refresh(fields ...Field) RegisterState {
	shown := make(map[Field]string, len(s.Errors))
	for k, v := range s.Errors {
		shown[k] = v
	}
	all := s.validationErrors()
	for _, f := range fields {
		if s.value(f) == "" || all[f] == "" {
			delete(shown, f)
			continue
		}
		shown[f] = all[f]
	}
	s.Errors = shown
	s.EnableSubmit = len(all) == 0 && !s.Pending() && s.Phase != RegisterSuccess
	return s
}

func (s RegisterState) value(f Field) string {
	switch f {
	case FieldUsername:
		return s.Username
	case FieldPassword:
		return s.Password
	case FieldConfirm:
		return s.Confirm
	}
	return ""
}

// ReduceRegister is the registration state machine.
func ReduceRegister(s RegisterState, ev RegisterEvent) (RegisterState, Effect) {
	if s.Errors == nil {
		s.Errors = map[Field]string{}
	}

	switch ev := ev.(type) {
	case FieldChanged:
		if s.Phase == RegisterSuccess {
			return s, NoEffect
		}
		switch ev.Field {
		case FieldUsername:
			s.Username = ev.Value
			s = s.refresh(FieldUsername)
		case FieldPassword:
			s.Password = ev.Value
			s = s.refresh(FieldPassword, FieldConfirm)
		case FieldConfirm:
			s.Confirm = ev.Value
			s = s.refresh(FieldConfirm)
		default:
			return s, NoEffect
		}
		if s.Phase == RegisterFailed {
			s.Phase = RegisterIdle
			s.Failure = nil
			s = s.refresh()
		}
		return s, NoEffect

	case Submitted:
		if s.Pending() || s.Phase == RegisterSuccess {
			return s, NoEffect
		}
		s = s.refresh(FieldUsername, FieldPassword, FieldConfirm)
		if errs := s.validationErrors(); len(errs) > 0 {
			s.Phase = RegisterFailed
			s.Failure = common.NewFailure(common.KindInvalidInput, firstError(errs))
			s.EnableSubmit = false
			return s, NoEffect
		}
		s.Phase = RegisterPending
		s.Failure = nil
		s.EnableSubmit = false
		return s, Effect{Kind: EffectRegister, Username: s.Username, Password: s.Password}

	case EffectResult:
		return reduceRegisterResult(s, ev)
	}
	return s, NoEffect
}

func reduceRegisterResult(s RegisterState, r EffectResult) (RegisterState, Effect) {
	if s.Phase != RegisterPending {
		return s, NoEffect
	}

	switch r.Effect.Kind {
	case EffectRegister:
		if r.Err != nil {
			s.Phase = RegisterFailed
			s.Failure = r.Failure()
			return s.refresh(), NoEffect
		}
		s.Identity = savedIdentity(r)
		s.DisplayName = s.Identity.Username
		return s, Effect{Kind: EffectSaveCredential, Token: r.Payload.Token, Identity: s.Identity}

	case EffectSaveCredential:
		if r.Err != nil {
			s.Phase = RegisterFailed
			s.Failure = r.Failure()
			s.Identity = models.Identity{}
			s.DisplayName = ""
			return s.refresh(), NoEffect
		}
		s.Phase = RegisterSuccess
		s.Password = ""
		s.Confirm = ""
		s.EnableSubmit = false
		return s, NoEffect
	}
	return s, NoEffect
}

func firstError(errs map[Field]string) string {
	for _, f := range []Field{FieldUsername, FieldPassword, FieldConfirm} {
		if msg, ok := errs[f]; ok {
			return msg
		}
	}
	return ""
}

// RegisterFlow drives ReduceRegister for one registration screen.
type RegisterFlow struct {
	m *machine[RegisterState, RegisterEvent]
}

func NewRegisterFlow(ctx context.Context, deps Deps, opts ...Option) *RegisterFlow {
	o := buildOptions(opts)
	m := newMachine(ctx, "register", deps, NewRegisterState(), ReduceRegister,
		func(r EffectResult) RegisterEvent { return r })
	m.onChange = changeHandler[RegisterState](o)
	m.onSignal = o.signalHandler()
	return &RegisterFlow{m: m}
}

func (f *RegisterFlow) SetUsername(v string) { f.m.dispatch(FieldChanged{Field: FieldUsername, Value: v}) }
func (f *RegisterFlow) SetPassword(v string) { f.m.dispatch(FieldChanged{Field: FieldPassword, Value: v}) }
func (f *RegisterFlow) SetConfirm(v string)  { f.m.dispatch(FieldChanged{Field: FieldConfirm, Value: v}) }
func (f *RegisterFlow) Submit()              { f.m.dispatch(Submitted{}) }
func (f *RegisterFlow) State() RegisterState { return f.m.current() }
func (f *RegisterFlow) Close()               { f.m.close() }
func (f *RegisterFlow) Wait() error          { return f.m.wait() }
