package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"multiblock/internal/domain"
	"multiblock/internal/httputil"
)

// handleError converts domain errors to problem+json responses. Typed domain
// errors contribute their identifying fields as extension members.
func handleError(w http.ResponseWriter, err error) {
	var (
		ownershipErr *domain.OwnershipError
		selfLoopErr  *domain.SelfLoopError
		transientErr *domain.TransientFetchError
	)

	switch {
	case errors.As(err, &selfLoopErr):
		httputil.RespondProblem(w, http.StatusBadRequest, err.Error(), map[string]any{
			"block_id": selfLoopErr.BlockID,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &ownershipErr):
		httputil.RespondProblem(w, http.StatusForbidden, err.Error(), map[string]any{
			"resource_type": ownershipErr.ResourceType,
			"resource_id":   ownershipErr.ResourceID,
		})
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &transientErr):
		w.Header().Set("Retry-After", "1")
		httputil.RespondProblem(w, http.StatusServiceUnavailable, err.Error(), map[string]any{
			"operation": transientErr.Op,
		})
	case errors.Is(err, domain.ErrTransient):
		w.Header().Set("Retry-After", "1")
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam reads a UUID path value, writing a 400 when it is missing or malformed
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	if _, err := uuid.Parse(value); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid "+label+" format")
		return "", false
	}
	return value, true
}
