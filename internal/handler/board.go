package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/httputil"
)

// BoardHandler handles board, block and message HTTP requests
type BoardHandler struct {
	blockService canvasSvc.BlockService
	logger       *slog.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(blockService canvasSvc.BlockService, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{
		blockService: blockService,
		logger:       logger,
	}
}

// CreateBoard creates a new board
// POST /api/boards
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req canvasSvc.CreateBoardRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)

	board, err := h.blockService.CreateBoard(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, board)
}

// ListBoards lists the caller's boards
// GET /api/boards
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.blockService.ListBoards(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, boards)
}

// ListBlocks lists the blocks of a board
// GET /api/boards/{id}/blocks
func (h *BoardHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	boardID, ok := PathParam(w, r, "id", "Board ID")
	if !ok {
		return
	}

	blocks, err := h.blockService.ListBlocks(r.Context(), httputil.GetUserID(r), boardID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, blocks)
}

// CreateBlock adds a block to a board
// POST /api/boards/{id}/blocks
func (h *BoardHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	boardID, ok := PathParam(w, r, "id", "Board ID")
	if !ok {
		return
	}

	var req canvasSvc.CreateBlockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.BoardID = boardID

	block, err := h.blockService.CreateBlock(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, block)
}

// GetBlock retrieves a single block
// GET /api/blocks/{id}
func (h *BoardHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	block, err := h.blockService.GetBlock(r.Context(), httputil.GetUserID(r), blockID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, block)
}

// DeleteBlock removes a block with its messages and connections
// DELETE /api/blocks/{id}
func (h *BoardHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	if err := h.blockService.DeleteBlock(r.Context(), httputil.GetUserID(r), blockID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AppendMessage stores a message in a block
// POST /api/blocks/{id}/messages
func (h *BoardHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	var req canvasSvc.AppendMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.BlockID = blockID

	msg, err := h.blockService.AppendMessage(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, msg)
}

// ListMessages returns the latest messages of a block
// GET /api/blocks/{id}/messages?limit=N
func (h *BoardHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	blockID, ok := PathParam(w, r, "id", "Block ID")
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	messages, err := h.blockService.ListMessages(r.Context(), httputil.GetUserID(r), blockID, limit)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// EditMessage replaces the content of a message
// PATCH /api/messages/{id}
func (h *BoardHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}

	var req editMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.blockService.EditMessage(r.Context(), httputil.GetUserID(r), messageID, req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, msg)
}
