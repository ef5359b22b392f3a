package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitscode/internal/common"
	"bitscode/internal/common/security"
	"bitscode/internal/domain/model"
	"bitscode/internal/platform/config"
	"bitscode/internal/testutil"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T, guard ...func(http.Handler) http.Handler) (http.Handler, *testutil.Store) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()

	store := testutil.NewStore()
	store.AddUser(model.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: model.RoleUser})
	store.AddUser(model.User{ID: "a1", Name: "Root", Email: "root@example.com", Role: model.RoleAdmin})

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithJSON(w, http.StatusOK, IdentityFromContext(r.Context()))
	})
	for i := len(guard) - 1; i >= 0; i-- {
		h = guard[i](h)
	}
	h = Authenticator(store.Users(), store.Sessions(), zaptest.NewLogger(t))(h)
	return jwtauth.Verifier(security.TokenAuth)(h), store
}

func call(t *testing.T, h http.Handler, token string, asCookie bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		if asCookie {
			req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Code
}

func TestAuthenticatorResolvesIdentity(t *testing.T) {
	h, _ := setup(t)
	token, sessionID, _, err := security.GenerateToken("u1")
	require.NoError(t, err)

	for _, cookie := range []bool{false, true} {
		rec := call(t, h, token, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var id model.Identity
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&id))
		assert.Equal(t, "u1", id.UserID)
		assert.Equal(t, model.RoleUser, id.Role)
		assert.Equal(t, sessionID, id.SessionID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
	}
}

func TestAuthenticatorRejects(t *testing.T) {
	h, store := setup(t)

	rec := call(t, h, "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, common.KindAuthentication, errorCode(t, rec))

	rec = call(t, h, "not-a-token", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost, _, _, err := security.GenerateToken("deleted-user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, ghost, false).Code)

	token, sessionID, _, err := security.GenerateToken("u1")
	require.NoError(t, err)
	require.NoError(t, store.Sessions().Revoke(t.Context(), sessionID, time.Hour))
	assert.Equal(t, http.StatusUnauthorized, call(t, h, token, false).Code)
}

func TestAuthenticatorRejectsForeignSignature(t *testing.T) {
	h, _ := setup(t)
	other := jwtauth.New("HS256", []byte("another-secret"), nil)
	_, forged, err := other.Encode(map[string]interface{}{"user_id": "a1", "jti": "x"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(t, h, forged, false).Code)
}

func TestAdminOnly(t *testing.T) {
	h, _ := setup(t, AdminOnly)

	user, _, _, err := security.GenerateToken("u1")
	require.NoError(t, err)
	rec := call(t, h, user, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, common.KindAuthorization, errorCode(t, rec))

	admin, _, _, err := security.GenerateToken("a1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(t, h, admin, false).Code)
}

func TestIdentityFromEmptyContext(t *testing.T) {
	assert.Nil(t, IdentityFromContext(t.Context()))
}
