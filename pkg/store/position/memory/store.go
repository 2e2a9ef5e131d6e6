package memory

import (
	"context"
	"sync"

	"github.com/marmos91/restd/pkg/store/position"
)

// MemoryPositionStore keeps positions in a map. Nothing survives a restart.
//
// A single mutex serialises all operations, which also makes Update atomic.
type MemoryPositionStore struct {
	mu        sync.Mutex
	positions map[string]position.Position
	closed    bool
}

// NewMemoryPositionStore returns an empty store.
func NewMemoryPositionStore() *MemoryPositionStore {
	return &MemoryPositionStore{
		positions: make(map[string]position.Position),
	}
}

func (s *MemoryPositionStore) Get(ctx context.Context, user string) (position.Position, error) {
	if err := ctx.Err(); err != nil {
		return position.Position{}, err
	}
	if err := position.ValidateUser(user); err != nil {
		return position.Position{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return position.Position{}, position.ErrClosed
	}
	pos, ok := s.positions[user]
	if !ok {
		return position.Position{}, position.ErrNotFound
	}
	return pos, nil
}

func (s *MemoryPositionStore) Update(ctx context.Context, user string, fn position.UpdateFunc) (position.Position, error) {
	if err := ctx.Err(); err != nil {
		return position.Position{}, err
	}
	if err := position.ValidateUser(user); err != nil {
		return position.Position{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return position.Position{}, position.ErrClosed
	}

	current, found := s.positions[user]
	if !found {
		current = position.Default
	}

	next, err := fn(current, found)
	if err != nil {
		return position.Position{}, err
	}
	s.positions[user] = next
	return next, nil
}

func (s *MemoryPositionStore) Delete(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return position.ErrClosed
	}
	delete(s.positions, user)
	return nil
}

func (s *MemoryPositionStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, position.ErrClosed
	}
	return len(s.positions), nil
}

func (s *MemoryPositionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.positions = nil
	return nil
}
