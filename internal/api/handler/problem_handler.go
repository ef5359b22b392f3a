package handler

import (
	"net/http"
	"strconv"

	"bitscode/internal/api/middleware"
	"bitscode/internal/app/service"
	"bitscode/internal/common"
	"bitscode/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

// RegisterRoutes expects an authenticated router.
func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)          // GET /problems?difficulty=&tag=&page=&pageSize=
	r.Get("/solved", h.listSolved)      // GET /problems/solved
	r.Get("/{problemID}", h.getProblem) // GET /problems/{id}

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.createProblem)
		adminRouter.Put("/{problemID}", h.updateProblem)
		adminRouter.Delete("/{problemID}", h.deleteProblem)
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	problem, err := h.problemService.Create(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	problem, err := h.problemService.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := h.problemService.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// Bad numbers fall back to the defaults.
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	result, err := h.problemService.List(r.Context(), middleware.IdentityFromContext(r.Context()), model.ProblemFilter{
		Difficulty: model.ProblemDifficulty(q.Get("difficulty")),
		Tag:        q.Get("tag"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProblemHandler) listSolved(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problemService.ListSolved(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.Get(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}
