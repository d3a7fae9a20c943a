package handler

import (
	"log/slog"
	"net/http"

	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/httputil"
	"multiblock/internal/service/prompt"
)

// ContextHandler exposes composed block context and the prompt built from it
type ContextHandler struct {
	blockService canvasSvc.BlockService
	composer     canvasSvc.ContextComposer
	assembler    *prompt.Assembler
	responder    *prompt.Responder
	logger       *slog.Logger
}

// NewContextHandler creates a new context handler
func NewContextHandler(
	blockService canvasSvc.BlockService,
	composer canvasSvc.ContextComposer,
	assembler *prompt.Assembler,
	responder *prompt.Responder,
	logger *slog.Logger,
) *ContextHandler {
	return &ContextHandler{
		blockService: blockService,
		composer:     composer,
		assembler:    assembler,
		responder:    responder,
		logger:       logger,
	}
}

// GetContext returns the composed context for a block
// GET /api/blocks/{id}/context
func (h *ContextHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	block, err := h.blockService.GetBlock(r.Context(), httputil.GetUserID(r), blockID)
	if err != nil {
		handleError(w, err)
		return
	}

	composed, err := h.composer.ComposeContext(r.Context(), block.BoardID, block.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, composed)
}

// GetLLMRequest returns the provider request a block would send, without sending it
// GET /debug/api/blocks/{id}/llm-request
func (h *ContextHandler) GetLLMRequest(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	assembled, err := h.assembler.Assemble(r.Context(), httputil.GetUserID(r), blockID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, assembled)
}

// Respond runs the configured provider for a block and stores the reply
// POST /api/blocks/{id}/respond
func (h *ContextHandler) Respond(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	if h.responder == nil {
		httputil.RespondError(w, http.StatusNotImplemented, "no LLM provider configured")
		return
	}

	msg, err := h.responder.Respond(r.Context(), httputil.GetUserID(r), blockID)
	if err != nil {
		h.logger.Error("respond failed", "block_id", blockID, "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, msg)
}
