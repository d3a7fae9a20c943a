package inmem

import (
	"context"
	"sync"

	"multiblock/internal/domain/models/canvas"
)

// Feed implements canvas.ChangeFeed
type Feed struct{ s *Store }

// Subscribe delivers events of boards owned by userID in publish order
func (f *Feed) Subscribe(ctx context.Context, userID string) (<-chan canvas.ChangeEvent, error) {
	return f.s.feed.subscribe(ctx, userID), nil
}

type feed struct {
	mu   sync.Mutex
	next int
	subs map[int]*mailbox
}

func newFeed() *feed {
	return &feed{subs: make(map[int]*mailbox)}
}

// mailbox is an unbounded queue so publishers never block on slow readers
type mailbox struct {
	userID string
	mu     sync.Mutex
	queue  []canvas.ChangeEvent
	signal chan struct{}
}

func (f *feed) subscribe(ctx context.Context, userID string) <-chan canvas.ChangeEvent {
	mb := &mailbox{userID: userID, signal: make(chan struct{}, 1)}

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = mb
	f.mu.Unlock()

	out := make(chan canvas.ChangeEvent)
	go func() {
		defer close(out)
		defer func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		}()

		for {
			mb.mu.Lock()
			pending := mb.queue
			mb.queue = nil
			mb.mu.Unlock()

			for _, ev := range pending {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-mb.signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (f *feed) publish(ev canvas.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, mb := range f.subs {
		if mb.userID != ev.UserID {
			continue
		}
		mb.mu.Lock()
		mb.queue = append(mb.queue, ev)
		mb.mu.Unlock()

		select {
		case mb.signal <- struct{}{}:
		default:
		}
	}
}
