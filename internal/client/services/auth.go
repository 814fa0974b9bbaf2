// Package services contains the client-side application services. This file
// defines the auth repository: register, login, token verification, profile
// fetch and logout against the remote service, with every failure translated
// into a classified *common.AuthFailure.
package services

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// AuthService is the translation boundary between the remote service and the
// flows. No transport error or unclassified status crosses it: every non-nil
// error returned is a *common.AuthFailure.
//
// Contract:
//   - Register/Login: a 2xx reply with truthy "success" and a token yields the
//     payload; anything else is a classified failure.
//   - VerifyToken: 2xx with a parseable body yields the profile; 401/403 or an
//     unparseable body is KindInvalidToken.
//   - GetProfile: like VerifyToken, but 401 is KindSessionExpired.
//   - Logout: never fails from the caller's perspective.
type AuthService interface {
	Register(ctx context.Context, username string, password string) (*models.AuthPayload, error)
	Login(ctx context.Context, username string, password string) (*models.AuthPayload, error)
	VerifyToken(ctx context.Context, token string) (*models.ProfileInfo, error)
	GetProfile(ctx context.Context, token string) (*models.ProfileInfo, error)
	Logout(ctx context.Context, token string)
}

type authService struct {
	client client.Client
	log    logging.Logger
}

// NewAuthService constructs an AuthService over the given network client.
// A nil logger discards output.
func NewAuthService(c client.Client, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{client: c, log: log.With("component", "auth_repository")}
}

func (a *authService) Register(ctx context.Context, username string, password string) (*models.AuthPayload, error) {
	reply, err := a.client.Register(ctx, username, password)
	return a.finishAuth(ctx, "register", reply, err)
}

func (a *authService) Login(ctx context.Context, username string, password string) (*models.AuthPayload, error) {
	reply, err := a.client.Login(ctx, username, password)
	return a.finishAuth(ctx, "login", reply, err)
}

func (a *authService) finishAuth(ctx context.Context, op string, reply *client.Reply, err error) (*models.AuthPayload, error) {
	if err != nil {
		return nil, a.fail(ctx, op, networkFailure(err))
	}
	if !reply.OK() {
		return nil, a.fail(ctx, op, statusFailure(reply, credentialsPolicy))
	}

	payload, f := parseAuthReply(reply)
	if f != nil {
		return nil, a.fail(ctx, op, f)
	}

	a.log.Debug(ctx, "remote call succeeded", "op", op, "status", reply.StatusCode,
		"username", payload.Identity.Username)
	return payload, nil
}

func (a *authService) VerifyToken(ctx context.Context, token string) (*models.ProfileInfo, error) {
	reply, err := a.client.Verify(ctx, token)
	return a.finishProfile(ctx, "verify", reply, err, verifyPolicy)
}

func (a *authService) GetProfile(ctx context.Context, token string) (*models.ProfileInfo, error) {
	reply, err := a.client.Profile(ctx, token)
	return a.finishProfile(ctx, "profile", reply, err, sessionPolicy)
}

func (a *authService) finishProfile(ctx context.Context, op string, reply *client.Reply, err error, policy statusPolicy) (*models.ProfileInfo, error) {
	if err != nil {
		return nil, a.fail(ctx, op, networkFailure(err))
	}
	if !reply.OK() {
		return nil, a.fail(ctx, op, statusFailure(reply, policy))
	}

	profile, perr := parseProfile(reply.Body)
	if perr != nil {
		f := common.NewFailure(policy.malformed, "malformed server response").
			WithStatus(reply.StatusCode).WithCause(perr)
		return nil, a.fail(ctx, op, f)
	}

	a.log.Debug(ctx, "remote call succeeded", "op", op, "status", reply.StatusCode, "user_id", profile.ID)
	return profile, nil
}

// Logout tells the server to end the session. The outcome is only logged:
// local teardown must never wait on the server or the network.
func (a *authService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	reply, err := a.client.Logout(ctx, token)
	switch {
	case err != nil:
		a.log.Warn(ctx, "remote logout failed, ignoring", "op", "logout", "error", err)
	case !reply.OK():
		a.log.Warn(ctx, "remote logout rejected, ignoring", "op", "logout", "status", reply.StatusCode)
	default:
		a.log.Debug(ctx, "remote call succeeded", "op", "logout", "status", reply.StatusCode)
	}
}

func (a *authService) fail(ctx context.Context, op string, f *common.AuthFailure) error {
	args := []any{"op", op, "kind", f.Kind, "status", f.Status}
	if f.Err != nil {
		args = append(args, "error", f.Err)
	}
	a.log.Warn(ctx, "remote call failed", args...)
	return f
}

// statusPolicy holds the operation-dependent parts of classification: the
// kinds of HTTP 401/403 and of a 2xx body that cannot be parsed.
type statusPolicy struct {
	unauthorized common.FailureKind
	forbidden    common.FailureKind
	malformed    common.FailureKind
}

var (
	credentialsPolicy = statusPolicy{
		unauthorized: common.KindInvalidCredentials,
		forbidden:    common.KindUnknownError,
		malformed:    common.KindUnknownError,
	}
	sessionPolicy = statusPolicy{
		unauthorized: common.KindSessionExpired,
		forbidden:    common.KindUnknownError,
		malformed:    common.KindUnknownError,
	}
	verifyPolicy = statusPolicy{
		unauthorized: common.KindInvalidToken,
		forbidden:    common.KindInvalidToken,
		malformed:    common.KindInvalidToken,
	}
)

// classifyStatus applies the shared policy: 400 invalid input, 401/403 per
// operation, 404 not found, 5xx server error, anything else unknown.
func classifyStatus(status int, p statusPolicy) common.FailureKind {
	switch {
	case status == http.StatusBadRequest:
		return common.KindInvalidInput
	case status == http.StatusUnauthorized:
		return p.unauthorized
	case status == http.StatusForbidden:
		return p.forbidden
	case status == http.StatusNotFound:
		return common.KindNotFound
	case status >= 500 && status <= 599:
		return common.KindServerError
	default:
		return common.KindUnknownError
	}
}

func statusFailure(reply *client.Reply, p statusPolicy) *common.AuthFailure {
	kind := classifyStatus(reply.StatusCode, p)
	return common.NewFailure(kind, serverMessage(reply.Body)).WithStatus(reply.StatusCode)
}

func networkFailure(err error) *common.AuthFailure {
	return common.NewFailure(common.KindNetworkError, "").WithCause(err)
}
