package handler

import "net/http"

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Boards        *BoardHandler
	Connections   *ConnectionHandler
	Memory        *MemoryHandler
	Context       *ContextHandler
	Subscriptions *SubscriptionHandler
}

// RegisterRoutes mounts the API on mux (Go 1.22+ enhanced patterns).
// Debug routes are only mounted when debug is set.
func RegisterRoutes(mux *http.ServeMux, h *Handlers, debug bool) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Board routes
	mux.HandleFunc("GET /api/boards", h.Boards.ListBoards)
	mux.HandleFunc("POST /api/boards", h.Boards.CreateBoard)
	mux.HandleFunc("GET /api/boards/{id}/blocks", h.Boards.ListBlocks)
	mux.HandleFunc("POST /api/boards/{id}/blocks", h.Boards.CreateBlock)

	// Block and message routes
	mux.HandleFunc("GET /api/blocks/{id}", h.Boards.GetBlock)
	mux.HandleFunc("DELETE /api/blocks/{id}", h.Boards.DeleteBlock)
	mux.HandleFunc("GET /api/blocks/{id}/messages", h.Boards.ListMessages)
	mux.HandleFunc("POST /api/blocks/{id}/messages", h.Boards.AppendMessage)
	mux.HandleFunc("PATCH /api/messages/{id}", h.Boards.EditMessage)

	// Connection routes
	mux.HandleFunc("POST /api/connections", h.Connections.CreateConnection)
	mux.HandleFunc("POST /api/connections/bidirectional", h.Connections.MakeBidirectional) // Must come before {id} routes
	mux.HandleFunc("PATCH /api/connections/{id}", h.Connections.UpdateConnection)
	mux.HandleFunc("DELETE /api/connections/{id}", h.Connections.DeleteConnection)
	mux.HandleFunc("POST /api/connections/{id}/toggle", h.Connections.ToggleConnection)
	mux.HandleFunc("GET /api/blocks/{id}/connections/outgoing", h.Connections.ListOutgoing)
	mux.HandleFunc("GET /api/blocks/{id}/connections/incoming", h.Connections.ListIncoming)

	// Memory routes
	mux.HandleFunc("GET /api/boards/{id}/memory", h.Memory.ListMemory)
	mux.HandleFunc("POST /api/boards/{id}/memory", h.Memory.CreateMemory)
	mux.HandleFunc("POST /api/boards/{id}/memory/preview", h.Memory.PreviewMemory)
	mux.HandleFunc("PATCH /api/memory/{id}", h.Memory.UpdateMemory)
	mux.HandleFunc("DELETE /api/memory/{id}", h.Memory.DeleteMemory)
	mux.HandleFunc("POST /api/messages/{id}/memory", h.Memory.SaveMessage)

	// Composition routes
	mux.HandleFunc("GET /api/blocks/{id}/context", h.Context.GetContext)
	mux.HandleFunc("POST /api/blocks/{id}/respond", h.Context.Respond)

	// Live invalidation routes
	mux.HandleFunc("POST /api/boards/{id}/subscriptions", h.Subscriptions.StartSubscription)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", h.Subscriptions.StopSubscription)
	mux.HandleFunc("GET /api/subscriptions/{id}/notices", h.Subscriptions.ListNotices)
	mux.HandleFunc("GET /api/subscriptions/{id}/stream", h.Subscriptions.StreamNotices) // SSE

	if debug {
		mux.HandleFunc("GET /debug/api/blocks/{id}/llm-request", h.Context.GetLLMRequest)
	}
}
