package handler

import (
	"net/http"
	"time"

	"bitscode/internal/api/middleware"
	"bitscode/internal/app/service"
	"bitscode/internal/common"
	"bitscode/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

const sessionCookie = "jwt"

type AuthHandler struct {
	authService *service.AuthService
	authn       func(http.Handler) http.Handler
}

// NewAuthHandler takes the authenticating middleware for the session routes.
func NewAuthHandler(authService *service.AuthService, authn func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{authService: authService, authn: authn}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Group(func(session chi.Router) {
		session.Use(h.authn)
		session.Post("/logout", h.logout)
		session.Get("/profile", h.profile)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	setSessionCookie(w, resp.Token, resp.ExpiresAt)
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	setSessionCookie(w, resp.Token, resp.ExpiresAt)
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.IdentityFromContext(r.Context())); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   config.AppConfig.CookieSecure,
	})
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Profile(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(config.AppConfig.JWTExp.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   config.AppConfig.CookieSecure,
	})
}
