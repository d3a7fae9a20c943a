package inmem

import (
	"context"
	"fmt"
	"time"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/memory"
)

// MemoryRepository implements memory.MemoryRepository
type MemoryRepository struct{ s *Store }

func (r *MemoryRepository) Create(ctx context.Context, item *memory.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.boards[item.BoardID]; !ok {
		return fmt.Errorf("board %s: %w", item.BoardID, domain.ErrNotFound)
	}
	fillID(&item.ID)
	fillTimes(&item.CreatedAt, &item.UpdatedAt)
	if item.Keywords == nil {
		item.Keywords = []string{}
	}
	r.s.items[item.ID] = record[memory.Item]{seq: r.s.nextSeq(), val: cloneItem(*item)}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, itemID string) (*memory.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("memory item %s: %w", itemID, domain.ErrNotFound)
	}
	item := cloneItem(rec.val)
	return &item, nil
}

func (r *MemoryRepository) ListByBoard(ctx context.Context, boardID string) ([]memory.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := collect(r.s.items, func(i memory.Item) bool { return i.BoardID == boardID })
	for i := range items {
		items[i] = cloneItem(items[i])
	}
	return items, nil
}

func (r *MemoryRepository) Update(ctx context.Context, item *memory.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.items[item.ID]
	if !ok {
		return fmt.Errorf("memory item %s: %w", item.ID, domain.ErrNotFound)
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now()
	}
	rec.val = cloneItem(*item)
	r.s.items[item.ID] = rec
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.items, itemID)
	return nil
}

func cloneItem(item memory.Item) memory.Item {
	item.Keywords = append([]string{}, item.Keywords...)
	return item
}
