package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"multiblock/internal/domain"
	"multiblock/internal/handler/sse"
	"multiblock/internal/httputil"
	"multiblock/internal/service/invalidation"
)

// SubscriptionHandler manages live invalidation subscriptions
type SubscriptionHandler struct {
	hub       *invalidation.Hub
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(hub *invalidation.Hub, sseConfig *sse.Config, logger *slog.Logger) *SubscriptionHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &SubscriptionHandler{
		hub:       hub,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

type subscriptionResponse struct {
	ID      string             `json:"id"`
	BoardID string             `json:"board_id"`
	State   invalidation.State `json:"state"`
}

// StartSubscription begins keeping a board's composed contexts fresh
// POST /api/boards/{id}/subscriptions
func (h *SubscriptionHandler) StartSubscription(w http.ResponseWriter, r *http.Request) {
	boardID, ok := PathParam(w, r, "id", "Board ID")
	if !ok {
		return
	}

	sub, err := h.hub.Subscribe(r.Context(), httputil.GetUserID(r), boardID)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := sub.Start(); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, subscriptionResponse{
		ID:      sub.ID(),
		BoardID: sub.BoardID(),
		State:   sub.State(),
	})
}

// StopSubscription stops a running subscription
// DELETE /api/subscriptions/{id}
func (h *SubscriptionHandler) StopSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.lookup(w, r)
	if !ok {
		return
	}

	sub.Stop()

	httputil.RespondJSON(w, http.StatusOK, subscriptionResponse{
		ID:      sub.ID(),
		BoardID: sub.BoardID(),
		State:   sub.State(),
	})
}

// ListNotices returns the most recent stale notices of a subscription
// GET /api/subscriptions/{id}/notices
func (h *SubscriptionHandler) ListNotices(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.lookup(w, r)
	if !ok {
		return
	}

	httputil.RespondJSON(w, http.StatusOK, sub.Recent())
}

// StreamNotices streams stale notices via Server-Sent Events (SSE).
// Recent notices are replayed first.
// GET /api/subscriptions/{id}/stream
func (h *SubscriptionHandler) StreamNotices(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	clientID := uuid.NewString()
	logger := h.logger.With("subscription_id", sub.ID(), "client_id", clientID)

	// Register before replaying so nothing falls between the two
	notices, cancel := sub.Listen()
	defer cancel()

	writer := sse.NewWriter(w, flusher, sub.ID()+"/"+clientID)
	writer.WriteHeaders()
	if h.sseConfig.Retry > 0 {
		if err := writer.WriteRetry(h.sseConfig.Retry); err != nil {
			logger.Info("client disconnected before catchup", "error", err)
			return
		}
	}

	for _, n := range sub.Recent() {
		if err := writeNotice(writer, n); err != nil {
			logger.Info("client disconnected during catchup", "error", err)
			return
		}
	}

	pinger := sse.StartPinger(writer, h.sseConfig.KeepAliveInterval)
	defer pinger.Stop()

	logger.Debug("SSE stream established")

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("client went away")
			return
		case <-pinger.Done():
			logger.Info("keep-alive failed, ending stream", "error", pinger.Err())
			return
		case n, ok := <-notices:
			if !ok {
				logger.Debug("subscription stopped, ending stream")
				return
			}
			if err := writeNotice(writer, n); err != nil {
				logger.Info("client disconnected during event write", "error", err)
				return
			}
		}
	}
}

func (h *SubscriptionHandler) lookup(w http.ResponseWriter, r *http.Request) (*invalidation.Subscription, bool) {
	subID, ok := PathParam(w, r, "id", "Subscription ID")
	if !ok {
		return nil, false
	}

	sub := h.hub.Get(subID)
	if sub == nil {
		httputil.RespondError(w, http.StatusNotFound, "Subscription is not running")
		return nil, false
	}

	userID := httputil.GetUserID(r)
	if sub.UserID() != userID {
		handleError(w, &domain.OwnershipError{
			UserID:       userID,
			ResourceType: "subscription",
			ResourceID:   subID,
		})
		return nil, false
	}

	return sub, true
}

func writeNotice(writer *sse.Writer, n invalidation.Notice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return writer.WriteEvent(invalidation.EventContextStale, data)
}
