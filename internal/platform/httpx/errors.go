// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/paperledger/paperledger/internal/shared"
)

// RespondError maps pipeline errors to HTTP responses using RFC7807.
// ValidationError carries its rule list and is rendered by the entries
// handler before falling through to this mapping.
func RespondError(w http.ResponseWriter, err error) {
	var conflict *shared.ConflictError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "not-found", "Not Found", err.Error())
	case errors.Is(err, shared.ErrDocumentLocked):
		Problem(w, http.StatusLocked, "document-locked", "Document Locked", err.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "conflict", "Version Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "invalid-transition", "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrInvalidValue):
		Problem(w, http.StatusBadRequest, "invalid-value", "Invalid Value", err.Error())
	case errors.Is(err, shared.ErrClassificationFailed):
		Problem(w, http.StatusUnprocessableEntity, "classification-failed", "Classification Failed", err.Error())
	case errors.Is(err, shared.ErrExternalService):
		Problem(w, http.StatusBadGateway, "external-service", "External Service Error", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "internal", "Internal Error", "")
	}
}
