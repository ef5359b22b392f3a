package handler

import (
	"net/http"

	"bitscode/internal/api/middleware"
	"bitscode/internal/app/service"
	"bitscode/internal/common"

	"github.com/go-chi/chi/v5"
)

type PlaylistHandler struct {
	playlistService *service.PlaylistService
}

func NewPlaylistHandler(ps *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlistService: ps}
}

// RegisterRoutes expects an authenticated router.
func (h *PlaylistHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{playlistID}", h.get)
	r.Put("/{playlistID}", h.update)
	r.Delete("/{playlistID}", h.delete)
	r.Post("/{playlistID}/problems", h.addProblems)
	r.Delete("/{playlistID}/problems", h.removeProblems)
}

func (h *PlaylistHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.PlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	playlist, err := h.playlistService.Create(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, playlist)
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlistService.List(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, playlists)
}

func (h *PlaylistHandler) get(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.playlistService.Get(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "playlistID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, playlist)
}

func (h *PlaylistHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.PlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	playlist, err := h.playlistService.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "playlistID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, playlist)
}

func (h *PlaylistHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.playlistService.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "playlistID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistHandler) addProblems(w http.ResponseWriter, r *http.Request) {
	var req service.PlaylistProblemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	playlist, err := h.playlistService.AddProblems(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "playlistID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, playlist)
}

func (h *PlaylistHandler) removeProblems(w http.ResponseWriter, r *http.Request) {
	var req service.PlaylistProblemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	playlist, err := h.playlistService.RemoveProblems(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "playlistID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, playlist)
}
