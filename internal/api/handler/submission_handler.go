package handler

import (
	"net/http"

	"bitscode/internal/api/middleware"
	"bitscode/internal/app/service"
	"bitscode/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// RegisterRoutes expects an authenticated router.
func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/execute", h.execute)
	r.Get("/", h.listMine)
	r.Get("/{problemID}", h.listMineForProblem)
	r.Get("/{problemID}/count", h.countForProblem)
}

// execute runs synchronously; the response is the stored submission.
func (h *SubmissionHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req service.ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	submission, err := h.submissionService.Execute(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionService.ListMine(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}

func (h *SubmissionHandler) listMineForProblem(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionService.ListMineForProblem(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}

func (h *SubmissionHandler) countForProblem(w http.ResponseWriter, r *http.Request) {
	n, err := h.submissionService.CountForProblem(r.Context(), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"count": n})
}
