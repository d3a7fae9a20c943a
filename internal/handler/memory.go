package handler

import (
	"log/slog"
	"net/http"

	"multiblock/internal/domain/models/memory"
	memorySvc "multiblock/internal/domain/services/memory"
	"multiblock/internal/httputil"
)

// MemoryHandler handles board memory HTTP requests
type MemoryHandler struct {
	memoryService memorySvc.MemoryService
	logger        *slog.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memoryService memorySvc.MemoryService, logger *slog.Logger) *MemoryHandler {
	return &MemoryHandler{
		memoryService: memoryService,
		logger:        logger,
	}
}

// ListMemory returns the memory pool of a board
// GET /api/boards/{id}/memory
func (h *MemoryHandler) ListMemory(w http.ResponseWriter, r *http.Request) {
	boardID, ok := PathParam(w, r, "id", "Board ID")
	if !ok {
		return
	}

	items, err := h.memoryService.ListForBoard(r.Context(), httputil.GetUserID(r), boardID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, items)
}

// CreateMemory adds an item to a board's memory
// POST /api/boards/{id}/memory
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	boardID, ok := PathParam(w, r, "id", "Board ID")
	if !ok {
		return
	}

	var req memorySvc.CreateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.BoardID = boardID

	item, err := h.memoryService.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// SaveMessage stores a block message as a memory item
// POST /api/messages/{id}/memory
func (h *MemoryHandler) SaveMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}

	var req memorySvc.SaveMessageRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.MessageID = messageID

	item, err := h.memoryService.CreateFromMessage(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// UpdateMemory edits a memory item
// PATCH /api/memory/{id}
func (h *MemoryHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	itemID, ok := PathParam(w, r, "id", "Memory item ID")
	if !ok {
		return
	}

	var req memorySvc.UpdateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.memoryService.Update(r.Context(), httputil.GetUserID(r), itemID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// DeleteMemory removes a memory item
// DELETE /api/memory/{id}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	itemID, ok := PathParam(w, r, "id", "Memory item ID")
	if !ok {
		return
	}

	if err := h.memoryService.Delete(r.Context(), httputil.GetUserID(r), itemID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewMemory renders what would be injected for the given options
// POST /api/boards/{id}/memory/preview
func (h *MemoryHandler) PreviewMemory(w http.ResponseWriter, r *http.Request) {
	boardID, ok := PathParam(w, r, "id", "Board ID")
	if !ok {
		return
	}

	var opts memory.BuildOptions
	if err := httputil.ParseOptionalJSON(w, r, &opts); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.memoryService.Preview(r.Context(), httputil.GetUserID(r), boardID, opts)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
