package inmem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
)

// BoardRepository implements canvas.BoardRepository
type BoardRepository struct{ s *Store }

func (r *BoardRepository) Create(ctx context.Context, board *canvas.Board) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	fillID(&board.ID)
	fillTimes(&board.CreatedAt, &board.UpdatedAt)
	r.s.boards[board.ID] = record[canvas.Board]{seq: r.s.nextSeq(), val: *board}
	return nil
}

func (r *BoardRepository) GetByID(ctx context.Context, boardID string) (*canvas.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.boards[boardID]
	if !ok {
		return nil, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	board := rec.val
	return &board, nil
}

func (r *BoardRepository) ListByUser(ctx context.Context, userID string) ([]canvas.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := collect(r.s.boards, func(b canvas.Board) bool { return b.UserID == userID })
	// newest first
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// BlockRepository implements canvas.BlockRepository
type BlockRepository struct{ s *Store }

func (r *BlockRepository) Create(ctx context.Context, block *canvas.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.boards[block.BoardID]; !ok {
		return fmt.Errorf("board %s: %w", block.BoardID, domain.ErrNotFound)
	}
	fillID(&block.ID)
	fillTimes(&block.CreatedAt, &block.UpdatedAt)
	r.s.blocks[block.ID] = record[canvas.Block]{seq: r.s.nextSeq(), val: *block}
	return nil
}

func (r *BlockRepository) GetByID(ctx context.Context, blockID string) (*canvas.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.blocks[blockID]
	if !ok {
		return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}
	block := rec.val
	return &block, nil
}

func (r *BlockRepository) GetByIDs(ctx context.Context, blockIDs []string) (map[string]*canvas.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make(map[string]*canvas.Block, len(blockIDs))
	for _, id := range blockIDs {
		if rec, ok := r.s.blocks[id]; ok {
			block := rec.val
			result[id] = &block
		}
	}
	return result, nil
}

func (r *BlockRepository) ListByBoard(ctx context.Context, boardID string) ([]canvas.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return collect(r.s.blocks, func(b canvas.Block) bool { return b.BoardID == boardID }), nil
}

func (r *BlockRepository) Update(ctx context.Context, block *canvas.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.blocks[block.ID]
	if !ok {
		return fmt.Errorf("block %s: %w", block.ID, domain.ErrNotFound)
	}
	block.UpdatedAt = time.Now()
	rec.val = *block
	r.s.blocks[block.ID] = rec
	return nil
}

// Delete cascades to messages and incident connections. Memory provenance
// pointing at the block is cleared.
func (r *BlockRepository) Delete(ctx context.Context, blockID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.blocks[blockID]; !ok {
		return nil
	}

	for id, rec := range r.s.messages {
		if rec.val.BlockID == blockID {
			delete(r.s.messages, id)
		}
	}

	removed := collect(r.s.connections, func(c canvas.Connection) bool {
		return c.FromBlockID == blockID || c.ToBlockID == blockID
	})
	for _, conn := range removed {
		// published before the block disappears so the board is resolvable
		r.s.publishConnection(conn)
		delete(r.s.connections, conn.ID)
	}

	for id, rec := range r.s.items {
		if rec.val.SourceBlockID != nil && *rec.val.SourceBlockID == blockID {
			rec.val.SourceBlockID = nil
			r.s.items[id] = rec
		}
	}

	delete(r.s.blocks, blockID)
	return nil
}

// MessageRepository implements canvas.MessageRepository
type MessageRepository struct{ s *Store }

func (r *MessageRepository) Create(ctx context.Context, msg *canvas.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	board, ok := r.s.boardOfBlock(msg.BlockID)
	if !ok {
		return fmt.Errorf("block %s: %w", msg.BlockID, domain.ErrNotFound)
	}

	fillID(&msg.ID)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.SetContent(msg.Content)
	r.s.messages[msg.ID] = record[canvas.Message]{seq: r.s.nextSeq(), val: *msg}

	r.s.feed.publish(canvas.ChangeEvent{
		Kind:      canvas.EventMessageInserted,
		UserID:    board.UserID,
		BoardID:   board.ID,
		BlockID:   msg.BlockID,
		MessageID: msg.ID,
	})
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID string) (*canvas.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	msg := rec.val
	return &msg, nil
}

func (r *MessageRepository) GetLatestByRole(ctx context.Context, blockID, role string) (*canvas.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	history := r.history(blockID)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == role {
			msg := history[i]
			return &msg, nil
		}
	}
	return nil, fmt.Errorf("no %s message in block %s: %w", role, blockID, domain.ErrNotFound)
}

func (r *MessageRepository) ListByBlock(ctx context.Context, blockID string, limit int) ([]canvas.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	history := r.history(blockID)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// history returns a block's messages by (created_at, insertion order)
func (r *MessageRepository) history(blockID string) []canvas.Message {
	recs := make([]record[canvas.Message], 0)
	for _, rec := range r.s.messages {
		if rec.val.BlockID == blockID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].val.CreatedAt.Equal(recs[j].val.CreatedAt) {
			return recs[i].val.CreatedAt.Before(recs[j].val.CreatedAt)
		}
		return recs[i].seq < recs[j].seq
	})

	msgs := make([]canvas.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = rec.val
	}
	return msgs
}

func (r *MessageRepository) UpdateContent(ctx context.Context, messageID, content string) (*canvas.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	rec.val.SetContent(content)
	r.s.messages[messageID] = rec

	msg := rec.val
	return &msg, nil
}

// ConnectionRepository implements canvas.ConnectionRepository
type ConnectionRepository struct{ s *Store }

func (r *ConnectionRepository) Create(ctx context.Context, conn *canvas.Connection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range []string{conn.FromBlockID, conn.ToBlockID} {
		if _, ok := r.s.blocks[id]; !ok {
			return fmt.Errorf("block %s: %w", id, domain.ErrNotFound)
		}
	}

	fillID(&conn.ID)
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now()
	}
	r.s.connections[conn.ID] = record[canvas.Connection]{seq: r.s.nextSeq(), val: *conn}
	r.s.publishConnection(*conn)
	return nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, connectionID string) (*canvas.Connection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.connections[connectionID]
	if !ok {
		return nil, fmt.Errorf("connection %s: %w", connectionID, domain.ErrNotFound)
	}
	conn := rec.val
	return &conn, nil
}

func (r *ConnectionRepository) Update(ctx context.Context, conn *canvas.Connection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.connections[conn.ID]
	if !ok {
		return fmt.Errorf("connection %s: %w", conn.ID, domain.ErrNotFound)
	}
	rec.val.ContextType = conn.ContextType
	rec.val.TransformTemplate = conn.TransformTemplate
	rec.val.Enabled = conn.Enabled
	r.s.connections[conn.ID] = rec
	r.s.publishConnection(rec.val)
	return nil
}

func (r *ConnectionRepository) Delete(ctx context.Context, connectionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.connections[connectionID]
	if !ok {
		return nil
	}
	r.s.publishConnection(rec.val)
	delete(r.s.connections, connectionID)
	return nil
}

func (r *ConnectionRepository) ListIncoming(ctx context.Context, blockID string) ([]canvas.Connection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return collect(r.s.connections, func(c canvas.Connection) bool { return c.ToBlockID == blockID }), nil
}

func (r *ConnectionRepository) ListOutgoing(ctx context.Context, blockID string) ([]canvas.Connection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return collect(r.s.connections, func(c canvas.Connection) bool { return c.FromBlockID == blockID }), nil
}

func (r *ConnectionRepository) ListByBoard(ctx context.Context, boardID string) ([]canvas.Connection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return collect(r.s.connections, func(c canvas.Connection) bool {
		board, ok := r.s.boardOfBlock(c.FromBlockID)
		return ok && board.ID == boardID
	}), nil
}

func (r *ConnectionRepository) ExistsBetween(ctx context.Context, fromBlockID, toBlockID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.connections {
		if rec.val.FromBlockID == fromBlockID && rec.val.ToBlockID == toBlockID {
			return true, nil
		}
	}
	return false, nil
}

// collect returns the matching values in insertion order
func collect[T any](m map[string]record[T], keep func(T) bool) []T {
	recs := make([]record[T], 0)
	for _, rec := range m {
		if keep(rec.val) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	vals := make([]T, len(recs))
	for i, rec := range recs {
		vals[i] = rec.val
	}
	return vals
}

func fillID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func fillTimes(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
