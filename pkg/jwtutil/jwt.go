package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"pm-service/pkg/config"
)

const invitationPurpose = "invitation"

var (
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrNotInvitation     = errors.New("token is not an invitation token")
	ErrUnexpectedPurpose = errors.New("unexpected token purpose")
)

// UserClaims represents the JWT claims carried by an access token.
// CustomerID is nil for superadmin accounts, which are not bound to a tenant.
type UserClaims struct {
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	CustomerID *string `json:"customer_id"`
	Purpose    string  `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies tokens with a fixed signing key and TTLs.
type Manager struct {
	signingKey     []byte
	expiration     time.Duration
	inviteDuration time.Duration
}

// NewManager creates a token manager from JWT configuration
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{
		signingKey:     []byte(cfg.SigningKey),
		expiration:     time.Duration(cfg.ExpirationHours) * time.Hour,
		inviteDuration: time.Duration(cfg.InvitationExpiryHours) * time.Hour,
	}
}

// Generate creates an access token carrying identity, role and tenant context
func (m *Manager) Generate(userID, email, role string, customerID *string) (string, error) {
	claims := UserClaims{
		Email:      email,
		Role:       role,
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// GenerateInvitation creates a one-time invitation token for a pending user.
// Invitation tokens carry a purpose claim so they cannot be replayed as
// access tokens and vice versa.
func (m *Manager) GenerateInvitation(userID, email string) (string, error) {
	claims := UserClaims{
		Email:   email,
		Purpose: invitationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.inviteDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// Validate validates and parses an access token
func (m *Manager) Validate(tokenString string) (*UserClaims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrUnexpectedPurpose
	}
	return claims, nil
}

// ValidateInvitation validates and parses an invitation token
func (m *Manager) ValidateInvitation(tokenString string) (*UserClaims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != invitationPurpose {
		return nil, ErrNotInvitation
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
