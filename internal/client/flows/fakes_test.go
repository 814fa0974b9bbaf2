package flows

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

type fakeAuth struct {
	mu sync.Mutex

	LoginPayload    *models.AuthPayload
	LoginErr        error
	RegisterPayload *models.AuthPayload
	RegisterErr     error
	VerifyProfile   *models.ProfileInfo
	VerifyErr       error
	Profile         *models.ProfileInfo
	ProfileErr      error

	// Gate, when set, blocks every call until it is closed.
	Gate chan struct{}

	Calls       []string
	LastToken   string
	LastUser    string
	LastPass    string
	LogoutCalls int
}

func (f *fakeAuth) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeAuth) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *fakeAuth) Register(_ context.Context, u, p string) (*models.AuthPayload, error) {
	f.record("register")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastUser, f.LastPass = u, p
	return f.RegisterPayload, f.RegisterErr
}

func (f *fakeAuth) Login(_ context.Context, u, p string) (*models.AuthPayload, error) {
	f.record("login")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastUser, f.LastPass = u, p
	return f.LoginPayload, f.LoginErr
}

func (f *fakeAuth) VerifyToken(_ context.Context, token string) (*models.ProfileInfo, error) {
	f.record("verify")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastToken = token
	return f.VerifyProfile, f.VerifyErr
}

func (f *fakeAuth) GetProfile(_ context.Context, token string) (*models.ProfileInfo, error) {
	f.record("profile")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastToken = token
	return f.Profile, f.ProfileErr
}

func (f *fakeAuth) Logout(_ context.Context, token string) {
	f.record("logout")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastToken = token
	f.LogoutCalls++
}

type memStore struct {
	mu       sync.Mutex
	rec      *models.Credential
	now      func() time.Time
	SaveErr  error
	ClearErr error
	Clears   int
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{now: now}
}

func (m *memStore) Save(_ context.Context, token string, id models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if token == "" {
		return common.ErrEmptyToken
	}
	next := models.Credential{Token: token, IssuedAt: m.now()}
	if m.rec != nil {
		next.Username, next.UserID = m.rec.Username, m.rec.UserID
	}
	if id.Username != "" {
		if id.Username != next.Username {
			next.UserID = 0
		}
		next.Username = id.Username
	}
	if id.UserID != 0 {
		next.UserID = id.UserID
	}
	m.rec = &next
	return nil
}

func (m *memStore) Read(context.Context) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	c := *m.rec
	return &c, nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.rec = nil
	return nil
}

func (m *memStore) put(rec models.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
}

func (m *memStore) current() *models.Credential {
	rec, _ := m.Read(context.Background())
	return rec
}

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func testDeps(auth *fakeAuth, store *memStore) Deps {
	return Deps{
		Auth:  auth,
		Store: store,
		Now:   func() time.Time { return testNow },
	}
}

var errTimeout = errors.New("i/o timeout")

func networkErr() error {
	return common.NewFailure(common.KindNetworkError, "").WithCause(errTimeout)
}
