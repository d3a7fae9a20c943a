// Package inmem is a process-local implementation of every repository and
// of the change feed. Writes are last-writer-wins under one mutex.
package inmem

import (
	"context"
	"sync"

	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/domain/models/memory"
	"multiblock/internal/domain/repositories"
)

type record[T any] struct {
	seq uint64
	val T
}

// Store holds all entities. Use the accessor methods to get typed repositories.
type Store struct {
	mu          sync.RWMutex
	seq         uint64
	boards      map[string]record[canvas.Board]
	blocks      map[string]record[canvas.Block]
	messages    map[string]record[canvas.Message]
	connections map[string]record[canvas.Connection]
	items       map[string]record[memory.Item]

	txMu sync.Mutex
	feed *feed
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		boards:      make(map[string]record[canvas.Board]),
		blocks:      make(map[string]record[canvas.Block]),
		messages:    make(map[string]record[canvas.Message]),
		connections: make(map[string]record[canvas.Connection]),
		items:       make(map[string]record[memory.Item]),
		feed:        newFeed(),
	}
}

// Boards returns the board repository
func (s *Store) Boards() *BoardRepository { return &BoardRepository{s: s} }

// Blocks returns the block repository
func (s *Store) Blocks() *BlockRepository { return &BlockRepository{s: s} }

// Messages returns the message repository
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }

// Connections returns the connection repository
func (s *Store) Connections() *ConnectionRepository { return &ConnectionRepository{s: s} }

// Memory returns the memory item repository
func (s *Store) Memory() *MemoryRepository { return &MemoryRepository{s: s} }

// Feed returns the change feed
func (s *Store) Feed() *Feed { return &Feed{s: s} }

// ExecTx serialises fn against other transactions. Individual repository
// calls inside fn are not rolled back on error.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// nextSeq must be called with mu held for writing
func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// boardOfBlock must be called with mu held
func (s *Store) boardOfBlock(blockID string) (canvas.Board, bool) {
	block, ok := s.blocks[blockID]
	if !ok {
		return canvas.Board{}, false
	}
	board, ok := s.boards[block.val.BoardID]
	return board.val, ok
}

// publishConnection must be called with mu held
func (s *Store) publishConnection(conn canvas.Connection) {
	board, ok := s.boardOfBlock(conn.FromBlockID)
	if !ok {
		return
	}
	s.feed.publish(canvas.ChangeEvent{
		Kind:         canvas.EventConnectionChanged,
		UserID:       board.UserID,
		BoardID:      board.ID,
		BlockID:      conn.FromBlockID,
		ConnectionID: conn.ID,
	})
}
