package handler

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-service/internal/model"
	"pm-service/prometheus"
)

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	customer := createTestCustomer(t, db, "Acme Inc", "acmeinc")
	user := createTestUser(t, db, &customer.ID, "admin@acme.com", model.RoleAdmin, "secret123")

	t.Run("successful login", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "admin@acme.com",
			"password": "secret123",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.NotEmpty(t, body["access_token"])

		userPayload, ok := body["user"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, user.ID, userPayload["id"])
		assert.Equal(t, "admin@acme.com", userPayload["email"])
		assert.Equal(t, model.RoleAdmin, userPayload["role"])
	})

	t.Run("records last login", func(t *testing.T) {
		var refreshed model.User
		require.NoError(t, db.First(&refreshed, "id = ?", user.ID).Error)
		assert.NotNil(t, refreshed.LastLoginAt)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		wrongPassword := doRequest(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "admin@acme.com",
			"password": "wrong",
		})
		unknownEmail := doRequest(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "nobody@acme.com",
			"password": "secret123",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "admin@acme.com",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAcceptInvitation(t *testing.T) {
	db := setupTestDB(t)
	e, jwt := newTestServer(t, db)

	customer := createTestCustomer(t, db, "Acme Inc", "acmeinc")

	newInvitedUser := func(t *testing.T, email string) (model.User, string) {
		user := model.User{
			CustomerID: &customer.ID,
			Email:      email,
			Name:       "Invited Admin",
			Role:       model.RoleAdmin,
			Status:     model.UserStatusPending,
		}
		require.NoError(t, db.Create(&user).Error)

		token, err := jwt.GenerateInvitation(user.ID, user.Email)
		require.NoError(t, err)
		require.NoError(t, db.Model(&user).Update("invitation_token", token).Error)
		return user, token
	}

	t.Run("activates the account and sets the password", func(t *testing.T) {
		user, token := newInvitedUser(t, "john@acme.com")

		rec := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    token,
			"password": "newpassword1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var activated model.User
		require.NoError(t, db.First(&activated, "id = ?", user.ID).Error)
		assert.Equal(t, model.UserStatusActive, activated.Status)
		assert.Empty(t, activated.InvitationToken)
		assert.NotEmpty(t, activated.PasswordHash)

		// The new password logs in
		login := doRequest(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "john@acme.com",
			"password": "newpassword1",
		})
		assert.Equal(t, http.StatusOK, login.Code)
	})

	t.Run("token is one-time", func(t *testing.T) {
		_, token := newInvitedUser(t, "jane@acme.com")

		first := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    token,
			"password": "newpassword1",
		})
		require.Equal(t, http.StatusOK, first.Code)

		second := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    token,
			"password": "another",
		})
		assert.Equal(t, http.StatusUnauthorized, second.Code)
	})

	t.Run("rejects access tokens", func(t *testing.T) {
		user := createTestUser(t, db, &customer.ID, "active@acme.com", model.RoleUser, "secret123")
		accessToken := tokenFor(t, jwt, user)

		rec := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    accessToken,
			"password": "whatever",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    "not-a-token",
			"password": "whatever",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("only completed activations count as accepted", func(t *testing.T) {
		accepted := func() float64 {
			return testutil.ToFloat64(prometheus.InvitationCounter.WithLabelValues("accepted"))
		}

		before := accepted()
		rejected := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    "not-a-token",
			"password": "whatever",
		})
		require.Equal(t, http.StatusUnauthorized, rejected.Code)
		assert.Equal(t, before, accepted())

		_, token := newInvitedUser(t, "metrics@acme.com")
		ok := doRequest(t, e, http.MethodPost, "/api/auth/accept-invitation", "", map[string]string{
			"token":    token,
			"password": "newpassword1",
		})
		require.Equal(t, http.StatusOK, ok.Code)
		assert.Equal(t, before+1, accepted())
	})
}
