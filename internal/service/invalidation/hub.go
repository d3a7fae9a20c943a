package invalidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	mstream "github.com/haowjy/meridian-stream-go"
	"github.com/sony/gobreaker"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/domain/services"
	"multiblock/internal/observability"
)

// TargetLookup lists the outgoing connections of a block.
// canvas.GraphService satisfies it.
type TargetLookup interface {
	ListOutgoing(ctx context.Context, blockID string) ([]canvas.Connection, error)
}

// Invalidator marks composed contexts stale.
// canvas.ContextComposer satisfies it.
type Invalidator interface {
	Invalidate(boardID, blockID string)
	InvalidateBoard(boardID string)
}

// BreakerSettings configures the circuit breaker guarding target lookups
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// DefaultBreakerSettings trips after 5 consecutive failures for 30 seconds
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second}
}

// Hub owns the live board subscriptions of a process
type Hub struct {
	feed        canvasRepo.ChangeFeed
	boards      canvasRepo.BoardRepository
	lookup      TargetLookup
	invalidator Invalidator
	authorizer  services.ResourceAuthorizer
	registry    *mstream.Registry
	breaker     *gobreaker.CircuitBreaker
	metrics     *observability.Collector
	logger      *slog.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewHub creates an invalidation hub. metrics may be nil.
func NewHub(
	feed canvasRepo.ChangeFeed,
	boards canvasRepo.BoardRepository,
	lookup TargetLookup,
	invalidator Invalidator,
	authorizer services.ResourceAuthorizer,
	registry *mstream.Registry,
	breaker BreakerSettings,
	metrics *observability.Collector,
	logger *slog.Logger,
) *Hub {
	return &Hub{
		feed:        feed,
		boards:      boards,
		lookup:      lookup,
		invalidator: invalidator,
		authorizer:  authorizer,
		registry:    registry,
		breaker:     newBreaker(breaker, logger),
		metrics:     metrics,
		logger:      logger,
		subs:        make(map[string]*Subscription),
	}
}

func newBreaker(settings BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "outgoing-target-lookup",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A lookup aborted by Stop says nothing about the store
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Subscribe creates an inactive subscription for a board the user can access.
// Call Start to begin receiving events. Team members receive the board
// owner's events since the feed is addressed by owner.
func (h *Hub) Subscribe(ctx context.Context, userID, boardID string) (*Subscription, error) {
	if userID == "" || boardID == "" {
		return nil, fmt.Errorf("%w: user and board are required", domain.ErrValidation)
	}
	if err := h.authorizer.CanAccessBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	board, err := h.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}

	return &Subscription{
		id:      uuid.NewString(),
		userID:  userID,
		boardID: boardID,
		feedKey: board.UserID,
		hub:     h,
		targets: make(map[string][]string),
		notices: make(chan Notice, noticeBuffer),
		done:    make(chan struct{}),
		logger:  h.logger.With("board_id", boardID, "user_id", userID),
	}, nil
}

// Get returns a running subscription by id, or nil
func (h *Hub) Get(id string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subs[id]
}

// Len returns the number of running subscriptions
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops every running subscription
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Stop()
	}
}

func (h *Hub) track(s *Subscription) {
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
	h.metrics.SubscriptionStarted()
}

func (h *Hub) untrack(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
	h.metrics.SubscriptionStopped()
}

// enabledTargets returns the blocks reached from blockID over enabled edges.
// Failures and an open breaker yield no targets.
func (h *Hub) enabledTargets(ctx context.Context, blockID string) ([]string, error) {
	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.lookup.ListOutgoing(ctx, blockID)
	})
	if err != nil {
		h.metrics.LookupFailed()
		return nil, err
	}

	conns := result.([]canvas.Connection)
	targets := make([]string, 0, len(conns))
	seen := make(map[string]bool, len(conns))
	for _, conn := range conns {
		if !conn.Enabled || seen[conn.ToBlockID] {
			continue
		}
		seen[conn.ToBlockID] = true
		targets = append(targets, conn.ToBlockID)
	}
	return targets, nil
}
