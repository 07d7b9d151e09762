package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEphemeralCredential_Expired(t *testing.T) {
	exp := time.Date(2025, 1, 1, 10, 5, 0, 0, time.UTC)
	c := &EphemeralCredential{ExpiresAt: exp}

	assert.False(t, c.Expired(exp.Add(-time.Second)))
	assert.False(t, c.Expired(exp), "valid at the exact expiry instant")
	assert.True(t, c.Expired(exp.Add(time.Nanosecond)))
}

func TestIdentity_Active(t *testing.T) {
	assert.False(t, (&Identity{Status: StatusPending}).Active())
	assert.True(t, (&Identity{Status: StatusActive}).Active())
}
