package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mstream "github.com/haowjy/meridian-stream-go"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/observability"
)

const (
	noticeBuffer = 64
	recentLimit  = 50

	// EventContextStale is the stream event type published on invalidation
	EventContextStale = "context_stale"

	// ReasonFeedClosed is the notice reason sent when the change feed ends
	ReasonFeedClosed = "feed_closed"
)

// State of a subscription
type State string

const (
	StateInactive   State = "inactive"
	StateSubscribed State = "subscribed"
)

// Notice reports which composed contexts were marked stale
type Notice struct {
	BoardID  string    `json:"board_id"`
	BlockIDs []string  `json:"block_ids,omitempty"`
	Reason   string    `json:"reason"`
	AllStale bool      `json:"all_stale,omitempty"`
	At       time.Time `json:"at"`
}

// Subscription keeps one board's composed contexts fresh for one user.
// Events are handled by a single goroutine in arrival order.
type Subscription struct {
	id      string
	userID  string
	boardID string
	feedKey string // board owner; the change feed is addressed by owner
	hub     *Hub
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	stopped   bool
	cancel    context.CancelFunc
	stream    *mstream.Stream
	recent    []Notice
	notices   chan Notice
	listeners map[int]chan Notice
	nextID    int
	done      chan struct{}

	// outgoing targets per source block, owned by the loop goroutine
	targets map[string][]string
}

// ID returns the subscription id, also used as the stream id
func (s *Subscription) ID() string { return s.id }

// BoardID returns the watched board
func (s *Subscription) BoardID() string { return s.boardID }

// UserID returns the subscriber
func (s *Subscription) UserID() string { return s.userID }

// State returns the current lifecycle state
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return StateInactive
	}
	return s.state
}

// Start opens the change feed and begins processing events.
// Starting a running or stopped subscription is an error.
func (s *Subscription) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("%w: subscription %s already stopped", domain.ErrConflict, s.id)
	}
	if s.state == StateSubscribed {
		s.mu.Unlock()
		return fmt.Errorf("%w: subscription %s already started", domain.ErrConflict, s.id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := s.hub.feed.Subscribe(ctx, s.feedKey)
	if err != nil {
		s.mu.Unlock()
		cancel()
		return &domain.TransientFetchError{Op: "subscribe to change feed", Err: err}
	}

	s.cancel = cancel
	s.state = StateSubscribed
	s.stream = mstream.NewStream(
		s.id,
		s.publish,
		mstream.WithCatchup(s.catchup),
	)
	stream := s.stream
	s.hub.track(s)
	s.mu.Unlock()

	go s.loop(ctx, events)

	s.hub.registry.Register(stream)
	go stream.Start()

	s.logger.Info("subscription started", "subscription_id", s.id)
	return nil
}

// Stop cancels the feed and waits for the event loop to exit.
// Once Stop returns no cache is touched by this subscription. Safe to call
// more than once and on a subscription that never started.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	wasRunning := s.state == StateSubscribed
	s.state = StateInactive
	cancel, stream := s.cancel, s.stream
	s.mu.Unlock()

	s.closeListeners()
	if !wasRunning {
		return
	}

	cancel()
	<-s.done
	if stream != nil {
		stream.Cancel()
	}

	s.hub.untrack(s)
	s.logger.Info("subscription stopped", "subscription_id", s.id)
}

// Recent returns the latest stale notices, oldest first
func (s *Subscription) Recent() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.recent...)
}

// Listen registers a reader for new notices. The returned channel is closed
// by the cancel func or when the subscription stops.
func (s *Subscription) Listen() (<-chan Notice, func()) {
	ch := make(chan Notice, noticeBuffer)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if s.listeners == nil {
		s.listeners = make(map[int]chan Notice)
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if l, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(l)
		}
	}
}

func (s *Subscription) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, l := range s.listeners {
		delete(s.listeners, id)
		close(l)
	}
}

func (s *Subscription) loop(ctx context.Context, events <-chan canvas.ChangeEvent) {
	feedClosed := false
	defer func() {
		if feedClosed {
			s.expire()
		}
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				feedClosed = ctx.Err() == nil
				return
			}
			if ev.BoardID != s.boardID {
				continue
			}
			s.handle(ctx, ev)
		}
	}
}

// expire ends a subscription whose change feed went away. Nothing will
// invalidate the board from here on, so everything cached for it is dropped
// and readers are told to treat the board as stale.
func (s *Subscription) expire() {
	s.mu.Lock()
	if s.stopped {
		// Stop is already tearing down
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.state = StateInactive
	cancel, stream := s.cancel, s.stream
	s.mu.Unlock()

	s.logger.Warn("change feed closed, subscription expired", "subscription_id", s.id)

	s.hub.invalidator.InvalidateBoard(s.boardID)
	s.notify(Notice{BoardID: s.boardID, Reason: ReasonFeedClosed, AllStale: true, At: time.Now()})

	s.closeListeners()
	cancel()
	if stream != nil {
		stream.Cancel()
	}
	s.hub.untrack(s)
}

func (s *Subscription) handle(ctx context.Context, ev canvas.ChangeEvent) {
	switch ev.Kind {
	case canvas.EventMessageInserted:
		s.onMessageInserted(ctx, ev)
	case canvas.EventConnectionChanged:
		s.onConnectionChanged(ev)
	default:
		s.logger.Debug("ignoring change event", "kind", ev.Kind)
	}
}

// onMessageInserted marks the direct downstream targets of the source block
// stale. The source's own context does not depend on its messages.
func (s *Subscription) onMessageInserted(ctx context.Context, ev canvas.ChangeEvent) {
	targets, ok := s.targets[ev.BlockID]
	if !ok {
		var err error
		targets, err = s.hub.enabledTargets(ctx, ev.BlockID)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("outgoing target lookup failed",
					"block_id", ev.BlockID,
					"error", &domain.TransientFetchError{Op: "list outgoing connections", Err: err},
				)
			}
			return
		}
		s.targets[ev.BlockID] = targets
	}

	for _, target := range targets {
		s.hub.invalidator.Invalidate(s.boardID, target)
	}
	s.hub.metrics.Invalidated(observability.ReasonMessage, len(targets))

	if len(targets) > 0 {
		s.notify(Notice{BoardID: s.boardID, BlockIDs: targets, Reason: ev.Kind, At: time.Now()})
	}
}

// onConnectionChanged conservatively forgets every cached target list and
// marks the whole board stale.
func (s *Subscription) onConnectionChanged(ev canvas.ChangeEvent) {
	clear(s.targets)
	s.hub.invalidator.InvalidateBoard(s.boardID)
	s.hub.metrics.Invalidated(observability.ReasonConnection, 1)

	s.notify(Notice{BoardID: s.boardID, Reason: ev.Kind, AllStale: true, At: time.Now()})
}

func (s *Subscription) notify(n Notice) {
	s.mu.Lock()
	s.recent = append(s.recent, n)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}
	for _, l := range s.listeners {
		select {
		case l <- n:
		default:
		}
	}
	s.mu.Unlock()

	// Stream delivery is best effort; slow readers drop notices
	select {
	case s.notices <- n:
	default:
	}
}

// publish is the stream work function forwarding notices as events
func (s *Subscription) publish(ctx context.Context, send func(mstream.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case n := <-s.notices:
			send(noticeEvent(n))
		}
	}
}

// catchup replays the recent notices to a reconnecting reader
func (s *Subscription) catchup(streamID, lastEventID string) ([]mstream.Event, error) {
	recent := s.Recent()
	events := make([]mstream.Event, 0, len(recent))
	for _, n := range recent {
		events = append(events, noticeEvent(n))
	}
	return events, nil
}

func noticeEvent(n Notice) mstream.Event {
	data, _ := json.Marshal(n) // Notice always marshals
	return mstream.NewEvent(data).WithType(EventContextStale)
}
