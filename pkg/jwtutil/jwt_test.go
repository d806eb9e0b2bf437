package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-service/pkg/config"
)

func newManager() *Manager {
	return NewManager(&config.JWTConfig{
		SigningKey:            "test-signing-key",
		ExpirationHours:       1,
		InvitationExpiryHours: 1,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newManager()
	customerID := "cust-1"

	token, err := m.Generate("user-1", "dev@acme.com", "admin", &customerID)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "dev@acme.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.CustomerID)
	assert.Equal(t, customerID, *claims.CustomerID)
}

func TestSuperadminTokenHasNoCustomer(t *testing.T) {
	m := newManager()

	token, err := m.Generate("root-1", "root@platform.com", "superadmin", nil)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Nil(t, claims.CustomerID)
}

func TestPurposeSeparation(t *testing.T) {
	m := newManager()
	customerID := "cust-1"

	access, err := m.Generate("user-1", "dev@acme.com", "user", &customerID)
	require.NoError(t, err)

	invite, err := m.GenerateInvitation("user-2", "new@acme.com")
	require.NoError(t, err)

	t.Run("invitation token is rejected as access token", func(t *testing.T) {
		_, err := m.Validate(invite)
		assert.ErrorIs(t, err, ErrUnexpectedPurpose)
	})

	t.Run("access token is rejected as invitation", func(t *testing.T) {
		_, err := m.ValidateInvitation(access)
		assert.ErrorIs(t, err, ErrNotInvitation)
	})

	t.Run("invitation token validates as invitation", func(t *testing.T) {
		claims, err := m.ValidateInvitation(invite)
		require.NoError(t, err)
		assert.Equal(t, "user-2", claims.Subject)
		assert.Equal(t, "new@acme.com", claims.Email)
	})
}

func TestExpiredToken(t *testing.T) {
	expired := NewManager(&config.JWTConfig{
		SigningKey:            "test-signing-key",
		ExpirationHours:       -1,
		InvitationExpiryHours: -1,
	})
	live := newManager()

	token, err := expired.Generate("user-1", "dev@acme.com", "user", nil)
	require.NoError(t, err)

	// Both managers share the key; only the expiry differs
	_, err = live.Validate(token)
	assert.Error(t, err)

	invite, err := expired.GenerateInvitation("user-2", "new@acme.com")
	require.NoError(t, err)
	_, err = live.ValidateInvitation(invite)
	assert.Error(t, err)
}

func TestWrongSigningKey(t *testing.T) {
	m := newManager()
	other := NewManager(&config.JWTConfig{
		SigningKey:            "different-key",
		ExpirationHours:       1,
		InvitationExpiryHours: 1,
	})

	token, err := m.Generate("user-1", "dev@acme.com", "user", nil)
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestGarbageToken(t *testing.T) {
	m := newManager()
	_, err := m.Validate("not-a-token")
	assert.Error(t, err)
}

func TestTokenLifetimesComeFromConfig(t *testing.T) {
	m := NewManager(&config.JWTConfig{
		SigningKey:            "test-signing-key",
		ExpirationHours:       2,
		InvitationExpiryHours: 72,
	})

	access, err := m.Generate("user-1", "dev@acme.com", "user", nil)
	require.NoError(t, err)
	accessClaims, err := m.Validate(access)
	require.NoError(t, err)

	invite, err := m.GenerateInvitation("user-1", "dev@acme.com")
	require.NoError(t, err)
	inviteClaims, err := m.ValidateInvitation(invite)
	require.NoError(t, err)

	accessTTL := time.Until(accessClaims.ExpiresAt.Time)
	inviteTTL := time.Until(inviteClaims.ExpiresAt.Time)
	assert.InDelta(t, (2 * time.Hour).Seconds(), accessTTL.Seconds(), 60)
	assert.InDelta(t, (72 * time.Hour).Seconds(), inviteTTL.Seconds(), 60)
}
