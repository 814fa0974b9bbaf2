// Package session derives the authentication status of the device from the
// stored credential and watches it over time.
package session

import (
	"math"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
)

// Status is the derived, never stored, session status.
type Status string

const (
	StatusNotLoggedIn  Status = "NOT_LOGGED_IN"
	StatusLoggedIn     Status = "LOGGED_IN"
	StatusExpiringSoon Status = "EXPIRING_SOON"
)

const Day = 24 * time.Hour

const (
	DefaultValidityWindow = 30 * Day
	DefaultWarningWindow  = 3 * Day
)

// Policy fixes how long a token is trusted after it was stored and how long
// before expiry the user is warned.
type Policy struct {
	ValidityWindow time.Duration
	WarningWindow  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{ValidityWindow: DefaultValidityWindow, WarningWindow: DefaultWarningWindow}
}

// Assessment is the full result of evaluating a record. Expired is true when
// a token is present but its validity window has elapsed; the caller must
// clear the store.
type Assessment struct {
	Status        Status
	Expired       bool
	RemainingDays int
	ExpiresAt     time.Time
}

// Evaluate is pure: the same record, now and policy always yield the same
// assessment. A token without IssuedAt counts as expired.
func Evaluate(rec *models.Credential, now time.Time, p Policy) Assessment {
	if !rec.HasSession() {
		return Assessment{Status: StatusNotLoggedIn}
	}
	if rec.IssuedAt.IsZero() {
		return Assessment{Status: StatusNotLoggedIn, Expired: true}
	}

	elapsed := now.Sub(rec.IssuedAt)
	remaining := p.ValidityWindow - elapsed
	a := Assessment{
		RemainingDays: int(math.Ceil(float64(remaining) / float64(Day))),
		ExpiresAt:     rec.IssuedAt.Add(p.ValidityWindow),
	}

	switch {
	case elapsed >= p.ValidityWindow:
		a.Status = StatusNotLoggedIn
		a.Expired = true
	case remaining <= p.WarningWindow:
		a.Status = StatusExpiringSoon
	default:
		a.Status = StatusLoggedIn
	}
	return a
}

// Resolve returns only the status part of Evaluate.
func Resolve(rec *models.Credential, now time.Time, p Policy) Status {
	return Evaluate(rec, now, p).Status
}
