package api

import (
	"net/http"
	"time"

	"bitscode/internal/api/handler"
	"bitscode/internal/api/middleware"
	"bitscode/internal/app/service"
	"bitscode/internal/common/security"
	"bitscode/internal/domain/repository"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Services struct {
	Auth        *service.AuthService
	Problems    *service.ProblemService
	Submissions *service.SubmissionService
	Playlists   *service.PlaylistService

	// Used by the authenticating middleware.
	Users    repository.UserRepository
	Sessions repository.SessionRepository
}

// NewRouter wires every route. requestTimeout must cover a full evaluation.
func NewRouter(svc Services, requestTimeout time.Duration, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))

	// Looks for "Authorization: Bearer T" and the jwt cookie.
	r.Use(jwtauth.Verifier(security.TokenAuth))
	authn := middleware.Authenticator(svc.Users, svc.Sessions, log)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", handler.NewAuthHandler(svc.Auth, authn).RegisterRoutes)
	r.Route("/languages", handler.NewLanguageHandler().RegisterRoutes)

	r.Group(func(protected chi.Router) {
		protected.Use(authn)
		protected.Route("/problems", handler.NewProblemHandler(svc.Problems).RegisterRoutes)
		protected.Route("/submissions", handler.NewSubmissionHandler(svc.Submissions).RegisterRoutes)
		protected.Route("/playlists", handler.NewPlaylistHandler(svc.Playlists).RegisterRoutes)
	})

	return r
}
