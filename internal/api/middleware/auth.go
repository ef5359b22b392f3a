package middleware

import (
	"context"
	"errors"
	"net/http"

	"bitscode/internal/common"
	"bitscode/internal/common/security"
	"bitscode/internal/domain/model"
	"bitscode/internal/domain/repository"
	"bitscode/internal/platform/logger"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type contextKey string

const IdentityCtxKey contextKey = "identity"

// Authenticator resolves the verified token into a *model.Identity. The role is
// read from the user record on every request, so a demoted admin loses access
// immediately. Revoked sessions and deleted users are rejected.
func Authenticator(users repository.UserRepository, sessions repository.SessionRepository, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log).Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				msg := "Authorization token required"
				if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
					msg = "Invalid or expired token"
				}
				common.RespondWithError(w, http.StatusUnauthorized, common.KindAuthentication, msg)
				return
			}

			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, common.KindAuthentication, "Invalid token claims")
				return
			}

			revoked, err := sessions.IsRevoked(r.Context(), token.JwtID())
			if err != nil {
				log.Error("session lookup failed", zap.Error(err))
				common.RespondWithError(w, http.StatusInternalServerError, common.KindInternal, "internal server error")
				return
			}
			if revoked {
				common.RespondWithError(w, http.StatusUnauthorized, common.KindAuthentication, "Session has been logged out")
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					common.RespondWithError(w, http.StatusUnauthorized, common.KindAuthentication, "User no longer exists")
					return
				}
				log.Error("user lookup failed", zap.String("user_id", userID), zap.Error(err))
				common.RespondWithError(w, http.StatusInternalServerError, common.KindInternal, "internal server error")
				return
			}

			id := &model.Identity{
				UserID:    user.ID,
				Name:      user.Name,
				Email:     user.Email,
				Role:      user.Role,
				SessionID: token.JwtID(),
				ExpiresAt: token.Expiration(),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// AdminOnly must run after Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, common.KindAuthorization, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityCtxKey, id)
}

// IdentityFromContext returns nil for unauthenticated requests.
func IdentityFromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(IdentityCtxKey).(*model.Identity)
	return id
}
