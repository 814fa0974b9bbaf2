package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredential_HasSession(t *testing.T) {
	var nilCred *Credential
	assert.False(t, nilCred.HasSession())
	assert.False(t, (&Credential{}).HasSession())
	assert.True(t, (&Credential{Token: "t"}).HasSession())
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Equal(t, "juan", Identity{Username: "juan"}.DisplayName("typed"))
	assert.Equal(t, "typed", Identity{}.DisplayName("typed"))
}

func TestProfileInfo_Identity(t *testing.T) {
	p := ProfileInfo{ID: 7, Username: "ana"}
	assert.Equal(t, Identity{Username: "ana", UserID: 7}, p.Identity())
}
