package session

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func issued(ago time.Duration) *models.Credential {
	return &models.Credential{Token: "abc", Username: "juan", IssuedAt: now.Add(-ago)}
}

func TestEvaluate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name          string
		rec           *models.Credential
		wantStatus    Status
		wantExpired   bool
		wantRemaining int
	}{
		{name: "no record", rec: nil, wantStatus: StatusNotLoggedIn},
		{name: "empty token", rec: &models.Credential{IssuedAt: now}, wantStatus: StatusNotLoggedIn},
		{name: "fresh", rec: issued(0), wantStatus: StatusLoggedIn, wantRemaining: 30},
		{name: "ten days", rec: issued(10 * Day), wantStatus: StatusLoggedIn, wantRemaining: 20},
		{name: "27 days exactly warns", rec: issued(27 * Day), wantStatus: StatusExpiringSoon, wantRemaining: 3},
		{name: "29 days", rec: issued(29 * Day), wantStatus: StatusExpiringSoon, wantRemaining: 1},
		{name: "29.5 days rounds up", rec: issued(29*Day + 12*time.Hour), wantStatus: StatusExpiringSoon, wantRemaining: 1},
		{name: "30 days is expired", rec: issued(30 * Day), wantStatus: StatusNotLoggedIn, wantExpired: true, wantRemaining: 0},
		{name: "31 days", rec: issued(31 * Day), wantStatus: StatusNotLoggedIn, wantExpired: true, wantRemaining: -1},
		{name: "issued in future", rec: issued(-Day), wantStatus: StatusLoggedIn, wantRemaining: 31},
		{name: "token without issuedAt", rec: &models.Credential{Token: "abc"}, wantStatus: StatusNotLoggedIn, wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.rec, now, p)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantExpired, got.Expired)
			assert.Equal(t, tt.wantRemaining, got.RemainingDays)
			assert.Equal(t, tt.wantStatus, Resolve(tt.rec, now, p))
		})
	}
}

func TestEvaluate_ExpiresAt(t *testing.T) {
	got := Evaluate(issued(Day), now, DefaultPolicy())
	assert.Equal(t, now.Add(-Day).Add(30*Day), got.ExpiresAt)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	rec := issued(28 * Day)
	p := Policy{ValidityWindow: 30 * Day, WarningWindow: 5 * Day}
	first := Evaluate(rec, now, p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(rec, now, p))
	}
}

func TestEvaluate_CustomWindows(t *testing.T) {
	p := Policy{ValidityWindow: time.Hour, WarningWindow: 10 * time.Minute}

	assert.Equal(t, StatusLoggedIn, Resolve(issued(30*time.Minute), now, p))
	assert.Equal(t, StatusExpiringSoon, Resolve(issued(55*time.Minute), now, p))
	assert.Equal(t, StatusNotLoggedIn, Resolve(issued(time.Hour), now, p))
}
