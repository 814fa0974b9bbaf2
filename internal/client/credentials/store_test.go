package credentials

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStore(t *testing.T, opts ...Option) (*Store, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewStore(db, opts...), db
}

func TestSaveThenRead_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "abc", models.Identity{Username: "juan", UserID: 7}))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	want := &models.Credential{Token: "abc", Username: "juan", UserID: 7, IssuedAt: fixedNow}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_EmptyStore_ReturnsNil(t *testing.T) {
	s, _ := newStore(t)

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSave_EmptyToken(t *testing.T) {
	s, _ := newStore(t)

	err := s.Save(context.Background(), "", models.Identity{Username: "x"})
	require.ErrorIs(t, err, common.ErrEmptyToken)

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSave_ZeroIdentityKeepsPreviousFields(t *testing.T) {
	now := fixedNow
	s := NewStore(setupDB(t), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "first", models.Identity{Username: "juan", UserID: 7}))
	now = now.Add(time.Hour)
	require.NoError(t, s.Save(ctx, "second", models.Identity{}))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Credential{Token: "second", Username: "juan", UserID: 7, IssuedAt: fixedNow.Add(time.Hour)}, got)
}

func TestSave_NewUsernameDropsPreviousUserID(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "alice-token", models.Identity{Username: "alice", UserID: 7}))
	require.NoError(t, s.Save(ctx, "bob-token", models.Identity{Username: "bob"}))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	want := &models.Credential{Token: "bob-token", Username: "bob", IssuedAt: fixedNow}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, s.Save(ctx, "bob-token-2", models.Identity{Username: "bob", UserID: 9}))
	require.NoError(t, s.Save(ctx, "bob-token-3", models.Identity{Username: "bob"}))
	got, err = s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.UserID)
}

func TestClear_RemovesEverythingAndIsIdempotent(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "abc", models.Identity{Username: "juan", UserID: 7}))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata WHERE namespace = ?`, common.CredentialNamespace).Scan(&n))
	assert.Zero(t, n)

	// Identity from a cleared record must not leak into the next session.
	require.NoError(t, s.Save(ctx, "next", models.Identity{}))
	got, err = s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got.Username)
	assert.Zero(t, got.UserID)
}

func TestRead_TokenWithoutIssuedAt_HasZeroIssuedAt(t *testing.T) {
	s, db := newStore(t)

	_, err := db.Exec(`INSERT INTO metadata(namespace, key, value) VALUES (?, 'token', ?)`,
		common.CredentialNamespace, []byte("abc"))
	require.NoError(t, err)

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IssuedAt.IsZero())
}

func TestRead_CorruptFields(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"issued at", "issued_at", "yesterday"},
		{"user id", "user_id", "seven"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, db := newStore(t)
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, "abc", models.Identity{UserID: 1}))

			_, err := db.Exec(`UPDATE metadata SET value = ? WHERE namespace = ? AND key = ?`,
				[]byte(tt.value), common.CredentialNamespace, tt.key)
			require.NoError(t, err)

			_, err = s.Read(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrCorruptCredential)
		})
	}
}

func newSealer(t *testing.T, secret string) *cryptox.Sealer {
	t.Helper()
	sealer, err := cryptox.NewSealer([]byte(secret), []byte("sessionkeeper-test"))
	require.NoError(t, err)
	return sealer
}

func TestSealer_TokenIsNotStoredInClear(t *testing.T) {
	s, db := newStore(t, WithSealer(newSealer(t, "device-secret")))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "plain-token", models.Identity{Username: "juan"}))

	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE namespace = ? AND key = 'token'`,
		common.CredentialNamespace).Scan(&raw))
	assert.NotContains(t, string(raw), "plain-token")

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "plain-token", got.Token)
}

func TestSealer_UnopenableRecordReadsAsAbsentAndIsCleared(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	writer := NewStore(db, WithSealer(newSealer(t, "old-secret")))
	require.NoError(t, writer.Save(ctx, "abc", models.Identity{Username: "juan"}))

	reader := NewStore(db, WithSealer(newSealer(t, "new-secret")))
	got, err := reader.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	assert.Zero(t, n)
}

type failingSealer struct{}

func (failingSealer) Seal([]byte) ([]byte, error) { return nil, errors.New("no key") }
func (failingSealer) Open([]byte) ([]byte, error) { return nil, errors.New("no key") }

func TestSave_SealErrorLeavesStoreUntouched(t *testing.T) {
	s, _ := newStore(t, WithSealer(failingSealer{}))

	err := s.Save(context.Background(), "abc", models.Identity{})
	require.Error(t, err)

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func receive(t *testing.T, ch <-chan *models.Credential) *models.Credential {
	t.Helper()
	select {
	case rec, ok := <-ch:
		require.True(t, ok, "channel closed")
		return rec
	case <-time.After(time.Second):
		t.Fatal("no value delivered")
		return nil
	}
}

func TestSubscribe_EmitsCurrentThenChanges(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)
	assert.Nil(t, receive(t, ch))

	require.NoError(t, s.Save(context.Background(), "abc", models.Identity{Username: "juan"}))
	rec := receive(t, ch)
	require.NotNil(t, rec)
	assert.Equal(t, "abc", rec.Token)

	require.NoError(t, s.Clear(context.Background()))
	assert.Nil(t, receive(t, ch))
}

func TestSubscribe_SlowReceiverSeesLatestOnly(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bg := context.Background()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Save(bg, "one", models.Identity{}))
	require.NoError(t, s.Save(bg, "two", models.Identity{}))
	require.NoError(t, s.Save(bg, "three", models.Identity{}))

	rec := receive(t, ch)
	require.NotNil(t, rec)
	assert.Equal(t, "three", rec.Token)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra value %+v", extra)
	default:
	}
}

func TestSubscribe_ClosesOnContextDone(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// Publishing after unsubscribe must not panic.
	require.NoError(t, s.Save(context.Background(), "abc", models.Identity{}))
}

func TestConcurrentSaveAndRead_NeverSeesPartialRecord(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, s.Save(ctx, "tok", models.Identity{Username: "u"}))
				assert.NoError(t, s.Clear(ctx))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rec, err := s.Read(ctx)
				if !assert.NoError(t, err) {
					return
				}
				if rec != nil {
					assert.False(t, rec.IssuedAt.IsZero(), "token without issue time")
				}
			}
		}()
	}
	wg.Wait()
}
