package flows

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// CredentialStore is the part of the credential store the flows use.
// *credentials.Store implements it.
type CredentialStore interface {
	Save(ctx context.Context, token string, id models.Identity) error
	Read(ctx context.Context) (*models.Credential, error)
	Clear(ctx context.Context) error
}

// EffectKind names a side effect requested by a reducer.
type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectLoadCredential reads the store; an expired record is cleared
	// and reported as absent.
	EffectLoadCredential
	EffectVerifyToken
	EffectLogin
	EffectRegister
	EffectSaveCredential
	EffectClearCredential
	// EffectFetchProfile, EffectVerifySession and EffectLogout act on the
	// currently stored token.
	EffectFetchProfile
	EffectVerifySession
	EffectLogout
)

func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "none"
	case EffectLoadCredential:
		return "load_credential"
	case EffectVerifyToken:
		return "verify_token"
	case EffectLogin:
		return "login"
	case EffectRegister:
		return "register"
	case EffectSaveCredential:
		return "save_credential"
	case EffectClearCredential:
		return "clear_credential"
	case EffectFetchProfile:
		return "fetch_profile"
	case EffectVerifySession:
		return "verify_session"
	case EffectLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Signal is a one-shot notification to the owner of a flow, raised after
// the effect that carries it has run.
type Signal int

const (
	SignalNone Signal = iota
	SignalNavigateToLogin
	SignalLogoutComplete
)

// Effect is the data description of a side effect. Reducers return it,
// controllers run it and feed the outcome back as an EffectResult.
type Effect struct {
	Kind     EffectKind
	Username string
	Password string
	Token    string
	Identity models.Identity
	Signal   Signal
}

// NoEffect is returned by reducers for pure state changes.
var NoEffect = Effect{}

// EffectResult is the outcome of an Effect, dispatched back into the flow
// that requested it. Err, when set, is always a *common.AuthFailure.
type EffectResult struct {
	Effect     Effect
	Credential *models.Credential
	Expired    bool
	Payload    *models.AuthPayload
	Profile    *models.ProfileInfo
	Err        error
}

func (EffectResult) loginEvent()    {}
func (EffectResult) registerEvent() {}
func (EffectResult) profileEvent()  {}

// Failure returns Err as an AuthFailure, or nil.
func (r EffectResult) Failure() *common.AuthFailure {
	return common.AsFailure(r.Err)
}

// savedIdentity is the identity stored with a fresh login or registration
// token. The server's identity wins; the submitted username fills in when
// the reply carries none, so the record never keeps a previous user's name.
func savedIdentity(r EffectResult) models.Identity {
	id := r.Payload.Identity
	if id.Username == "" {
		id.Username = r.Effect.Username
	}
	return id
}

// Deps are the capabilities a flow controller runs effects with.
type Deps struct {
	Auth   services.AuthService
	Store  CredentialStore
	Policy session.Policy
	Now    func() time.Time
	Log    logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Policy == (session.Policy{}) {
		d.Policy = session.DefaultPolicy()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return d
}

func (d Deps) run(ctx context.Context, eff Effect) EffectResult {
	res := EffectResult{Effect: eff}

	switch eff.Kind {
	case EffectNone:
	case EffectLoadCredential:
		rec, expired, err := d.loadSession(ctx)
		res.Credential, res.Expired, res.Err = rec, expired, err
	case EffectVerifyToken:
		res.Profile, res.Err = d.Auth.VerifyToken(ctx, eff.Token)
	case EffectLogin:
		res.Payload, res.Err = d.Auth.Login(ctx, eff.Username, eff.Password)
	case EffectRegister:
		res.Payload, res.Err = d.Auth.Register(ctx, eff.Username, eff.Password)
	case EffectSaveCredential:
		res.Err = d.storeFailure(ctx, "save", d.Store.Save(ctx, eff.Token, eff.Identity))
	case EffectClearCredential:
		res.Err = d.storeFailure(ctx, "clear", d.Store.Clear(ctx))
	case EffectFetchProfile:
		rec, err := d.requireSession(ctx)
		if err != nil {
			res.Err = err
			break
		}
		res.Credential = rec
		res.Profile, res.Err = d.Auth.GetProfile(ctx, rec.Token)
	case EffectVerifySession:
		rec, err := d.requireSession(ctx)
		if err != nil {
			res.Err = err
			break
		}
		res.Credential = rec
		res.Profile, res.Err = d.Auth.VerifyToken(ctx, rec.Token)
	case EffectLogout:
		rec, err := d.Store.Read(ctx)
		if err != nil {
			d.Log.Warn(ctx, "cannot read credential before logout", "error", err)
		}
		if rec.HasSession() {
			d.Auth.Logout(ctx, rec.Token)
		}
		res.Err = d.storeFailure(ctx, "clear", d.Store.Clear(ctx))
	}

	return res
}

// loadSession reads the stored record and clears it when its validity
// window has elapsed.
func (d Deps) loadSession(ctx context.Context) (*models.Credential, bool, error) {
	rec, err := d.Store.Read(ctx)
	if err != nil {
		return nil, false, d.storeFailure(ctx, "read", err)
	}
	if !rec.HasSession() {
		return nil, false, nil
	}

	a := session.Evaluate(rec, d.Now(), d.Policy)
	if a.Expired {
		d.Log.Info(ctx, "stored session expired, clearing", "username", rec.Username)
		if err := d.Store.Clear(ctx); err != nil {
			return nil, true, d.storeFailure(ctx, "clear", err)
		}
		return nil, true, nil
	}
	return rec, false, nil
}

func (d Deps) requireSession(ctx context.Context) (*models.Credential, error) {
	rec, _, err := d.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.NewFailure(common.KindSessionExpired, "")
	}
	return rec, nil
}

func (d Deps) storeFailure(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	d.Log.Warn(ctx, "credential store operation failed", "op", op, "error", err)
	return common.NewFailure(common.KindUnknownError, "could not access the local session").WithCause(err)
}
