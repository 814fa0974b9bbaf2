package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/google/uuid"
)

const maxReplyBody = 1 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoints are the paths, relative to the base URL, of the remote contract.
type Endpoints struct {
	Register string
	Login    string
	Verify   string
	Profile  string
	Logout   string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Register: "api/auth/register",
		Login:    "api/auth/login",
		Verify:   "api/auth/verify",
		Profile:  "api/auth/profile",
		Logout:   "api/auth/logout",
	}
}

type HTTPClient struct {
	doer      Doer
	baseURL   url.URL
	endpoints Endpoints
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds an HTTP transport for baseURL. A bare host:port gets
// the http scheme. A nil doer means http.DefaultClient.
func NewHTTPClient(baseURL string, doer Doer, endpoints Endpoints) (*HTTPClient, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &HTTPClient{doer: doer, baseURL: *u, endpoints: endpoints}, nil
}

func (c *HTTPClient) Register(ctx context.Context, username string, password string) (*Reply, error) {
	return c.do(ctx, http.MethodPost, c.endpoints.Register, "", credentialsRequest{Username: username, Password: password})
}

func (c *HTTPClient) Login(ctx context.Context, username string, password string) (*Reply, error) {
	return c.do(ctx, http.MethodPost, c.endpoints.Login, "", credentialsRequest{Username: username, Password: password})
}

func (c *HTTPClient) Verify(ctx context.Context, token string) (*Reply, error) {
	return c.do(ctx, http.MethodGet, c.endpoints.Verify, token, nil)
}

func (c *HTTPClient) Profile(ctx context.Context, token string) (*Reply, error) {
	return c.do(ctx, http.MethodGet, c.endpoints.Profile, token, nil)
}

func (c *HTTPClient) Logout(ctx context.Context, token string) (*Reply, error) {
	return c.do(ctx, http.MethodPost, c.endpoints.Logout, token, nil)
}

// Close is a no-op; the Doer's connection pool belongs to its owner.
func (c *HTTPClient) Close() error {
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, payload any) (*Reply, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, unavailable(method+" "+path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, unavailable("read "+path, err)
	}

	return &Reply{StatusCode: resp.StatusCode, Body: b}, nil
}
