package handler

import (
	"context"
	"log/slog"
	"net/http"

	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/domain/services"
	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/httputil"
)

// ConnectionHandler handles connection graph HTTP requests
type ConnectionHandler struct {
	graphService canvasSvc.GraphService
	authorizer   services.ResourceAuthorizer
	logger       *slog.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(
	graphService canvasSvc.GraphService,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		graphService: graphService,
		authorizer:   authorizer,
		logger:       logger,
	}
}

// CreateConnection connects two blocks
// POST /api/connections
func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req canvasSvc.CreateConnectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)

	conn, err := h.graphService.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conn)
}

// UpdateConnectionRequest is the PATCH body for a connection.
// transform_template distinguishes absent, null (clear) and a value.
type UpdateConnectionRequest struct {
	ContextType       *canvas.ContextType       `json:"context_type"`
	TransformTemplate httputil.Optional[string] `json:"transform_template"`
	Enabled           *bool                     `json:"enabled"`
}

// Patch converts the request into a domain patch
func (req *UpdateConnectionRequest) Patch() canvas.ConnectionPatch {
	patch := canvas.ConnectionPatch{
		ContextType: req.ContextType,
		Enabled:     req.Enabled,
	}
	if req.TransformTemplate.Set {
		patch.TransformTemplate = &canvas.TemplatePatch{Value: req.TransformTemplate.Value}
	}
	return patch
}

// UpdateConnection applies a partial update
// PATCH /api/connections/{id}
func (h *ConnectionHandler) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	connectionID, ok := PathParam(w, r, "id", "Connection ID")
	if !ok {
		return
	}

	var req UpdateConnectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authorizer.CanAccessConnection(r.Context(), httputil.GetUserID(r), connectionID); err != nil {
		handleError(w, err)
		return
	}

	if err := h.graphService.Update(r.Context(), connectionID, req.Patch()); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteConnection removes a connection
// DELETE /api/connections/{id}
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	connectionID, ok := PathParam(w, r, "id", "Connection ID")
	if !ok {
		return
	}

	if err := h.authorizer.CanAccessConnection(r.Context(), httputil.GetUserID(r), connectionID); err != nil {
		handleError(w, err)
		return
	}

	if err := h.graphService.Remove(r.Context(), connectionID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleConnection flips the enabled flag
// POST /api/connections/{id}/toggle
func (h *ConnectionHandler) ToggleConnection(w http.ResponseWriter, r *http.Request) {
	connectionID, ok := PathParam(w, r, "id", "Connection ID")
	if !ok {
		return
	}

	if err := h.authorizer.CanAccessConnection(r.Context(), httputil.GetUserID(r), connectionID); err != nil {
		handleError(w, err)
		return
	}

	conn, err := h.graphService.Toggle(r.Context(), connectionID)
	if err != nil {
		handleError(w, err)
		return
	}
	if conn == nil {
		httputil.RespondError(w, http.StatusNotFound, "connection not found")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conn)
}

type bidirectionalRequest struct {
	BlockA string `json:"block_a"`
	BlockB string `json:"block_b"`
}

// MakeBidirectional adds the reverse of an existing edge
// POST /api/connections/bidirectional
// Returns 201 with the new edge, or 200 when both directions already exist
func (h *ConnectionHandler) MakeBidirectional(w http.ResponseWriter, r *http.Request) {
	var req bidirectionalRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BlockA == "" || req.BlockB == "" {
		httputil.RespondError(w, http.StatusBadRequest, "block_a and block_b are required")
		return
	}

	userID := httputil.GetUserID(r)
	for _, blockID := range []string{req.BlockA, req.BlockB} {
		if err := h.authorizer.CanAccessBlock(r.Context(), userID, blockID); err != nil {
			handleError(w, err)
			return
		}
	}

	conn, err := h.graphService.MakeBidirectional(r.Context(), userID, req.BlockA, req.BlockB)
	if err != nil {
		handleError(w, err)
		return
	}
	if conn == nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"bidirectional": true,
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conn)
}

// ListOutgoing lists the connections leaving a block
// GET /api/blocks/{id}/connections/outgoing
func (h *ConnectionHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	h.listForBlock(w, r, h.graphService.ListOutgoing)
}

// ListIncoming lists the connections entering a block
// GET /api/blocks/{id}/connections/incoming
func (h *ConnectionHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	h.listForBlock(w, r, h.graphService.ListIncoming)
}

func (h *ConnectionHandler) listForBlock(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, blockID string) ([]canvas.Connection, error),
) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	if err := h.authorizer.CanAccessBlock(r.Context(), httputil.GetUserID(r), blockID); err != nil {
		handleError(w, err)
		return
	}

	conns, err := list(r.Context(), blockID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conns)
}
