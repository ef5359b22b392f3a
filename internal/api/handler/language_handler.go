package handler

import (
	"net/http"

	"bitscode/internal/common"
	"bitscode/internal/domain/language"

	"github.com/go-chi/chi/v5"
)

type LanguageHandler struct{}

func NewLanguageHandler() *LanguageHandler {
	return &LanguageHandler{}
}

func (h *LanguageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *LanguageHandler) list(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, language.Supported())
}
