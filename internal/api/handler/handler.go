package handler

import (
	"encoding/json"
	"net/http"

	"bitscode/internal/common"
)

// decodeJSON reads the request body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, common.KindValidation, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}
