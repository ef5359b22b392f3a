package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound                = errors.New("requested resource not found")
	ErrUnauthorized            = errors.New("unauthorized access")
	ErrForbidden               = errors.New("forbidden access")
	ErrConflict                = errors.New("resource conflict") // e.g., email already registered
	ErrValidation              = errors.New("validation failed")
	ErrUnsupportedLanguage     = fmt.Errorf("unsupported language: %w", ErrValidation)
	ErrServiceUnavailable      = errors.New("code execution service unavailable")
	ErrEvaluationTimeout       = errors.New("code execution timed out")
	ErrPersistence             = errors.New("failed to persist data")
	ErrReferenceSolutionFailed = errors.New("reference solution failed")
)

// Error kinds returned to API callers alongside the human readable message.
const (
	KindValidation              = "VALIDATION_ERROR"
	KindUnsupportedLanguage     = "UNSUPPORTED_LANGUAGE"
	KindAuthentication          = "AUTHENTICATION_ERROR"
	KindAuthorization           = "AUTHORIZATION_ERROR"
	KindNotFound                = "NOT_FOUND"
	KindConflict                = "CONFLICT"
	KindEvaluationTimeout       = "EVALUATION_TIMEOUT"
	KindServiceUnavailable      = "SERVICE_UNAVAILABLE"
	KindPersistence             = "PERSISTENCE_ERROR"
	KindReferenceSolutionFailed = "REFERENCE_SOLUTION_FAILED"
	KindInternal                = "INTERNAL_ERROR"
)

// ReferenceSolutionError reports the first reference solution that did not pass
// a test case while authoring a problem. TestCaseIndex is 1-based.
type ReferenceSolutionError struct {
	Language      string `json:"language"`
	TestCaseIndex int    `json:"testCaseIndex"`
	Status        string `json:"status"`
	Diagnostic    string `json:"diagnostic"`
}

func (e *ReferenceSolutionError) Error() string {
	return fmt.Sprintf("reference solution for %s failed test case %d: %s", e.Language, e.TestCaseIndex, e.Status)
}

func (e *ReferenceSolutionError) Unwrap() error {
	return ErrReferenceSolutionFailed
}

// Validationf wraps a formatted message with ErrValidation.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation), errors.Is(err, ErrReferenceSolutionFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrEvaluationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusBadGateway
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorKind returns the stable machine-checkable kind for err.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedLanguage):
		return KindUnsupportedLanguage
	case errors.Is(err, ErrReferenceSolutionFailed):
		return KindReferenceSolutionFailed
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindAuthentication
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrEvaluationTimeout):
		return KindEvaluationTimeout
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return KindConflict
	}
	return KindInternal
}
