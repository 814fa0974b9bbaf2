package client

import (
	"context"
	"net/http"
)

// Client is the remote authentication service as seen by the client.
type Client interface {
	Register(ctx context.Context, username string, password string) (*Reply, error)
	Login(ctx context.Context, username string, password string) (*Reply, error)
	Verify(ctx context.Context, token string) (*Reply, error)
	Profile(ctx context.Context, token string) (*Reply, error)
	Logout(ctx context.Context, token string) (*Reply, error)
	Close() error
}

// Reply is a server response: its (HTTP or mapped) status and raw JSON body.
type Reply struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Reply) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
