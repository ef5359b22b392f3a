package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, kind, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message, Code: kind})
}

// RespondWithDomainError writes err using the central status and kind mapping.
// Messages of internal, storage and judge failures are replaced so driver or
// remote payloads never reach the caller.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	status := HTTPStatusFromError(err)
	resp := ErrorResponse{Error: err.Error(), Code: ErrorKind(err)}
	switch resp.Code {
	case KindInternal, KindPersistence:
		resp.Error = "internal server error"
	case KindServiceUnavailable:
		resp.Error = ErrServiceUnavailable.Error()
	case KindEvaluationTimeout:
		resp.Error = ErrEvaluationTimeout.Error()
	}
	var refErr *ReferenceSolutionError
	if errors.As(err, &refErr) {
		resp.Details = refErr
	}
	RespondWithJSON(w, status, resp)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response", "code": "INTERNAL_ERROR"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
