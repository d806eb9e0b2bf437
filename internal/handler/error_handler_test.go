package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-service/internal/model"
)

func TestErrorEnvelope(t *testing.T) {
	db := setupTestDB(t)
	e, jwt := newTestServer(t, db)

	customer := createTestCustomer(t, db, "Acme Inc", "acmeinc")
	user := createTestUser(t, db, &customer.ID, "dev@acme.com", model.RoleUser, "secret123")
	token := tokenFor(t, jwt, user)

	t.Run("unknown route", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodGet, "/api/no-such-resource", token, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
	})

	t.Run("method mismatch on a registered path", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodDelete, "/api/customers/"+customer.ID+"/users", token, nil)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.JSONEq(t, `{"error":"Method Not Allowed"}`, rec.Body.String())
	})

	t.Run("method mismatch on a public path", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodDelete, "/api/auth/login", "", nil)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.JSONEq(t, `{"error":"Method Not Allowed"}`, rec.Body.String())
	})

	t.Run("auth failures keep the same envelope", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodGet, "/api/no-such-resource", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decodeBody(t, rec)
		assert.NotEmpty(t, body["error"])
	})
}
