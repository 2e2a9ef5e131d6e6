package position

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/marmos91/restd/pkg/metrics"
)

// meteredStore records the latency and outcome of every call on the
// wrapped store.
type meteredStore struct {
	Store
	metrics metrics.StoreMetrics
	users   atomic.Int64
}

// WithMetrics wraps s so that its operations are reported to m.
// A nil m returns s unchanged.
func WithMetrics(s Store, m metrics.StoreMetrics) Store {
	if m == nil {
		return s
	}

	ms := &meteredStore{Store: s, metrics: m}
	if n, err := s.Count(context.Background()); err == nil {
		ms.setUsers(int64(n))
	}
	return ms
}

func (s *meteredStore) setUsers(n int64) {
	s.users.Store(n)
	s.metrics.SetUsers(int(n))
}

func (s *meteredStore) Get(ctx context.Context, user string) (Position, error) {
	start := time.Now()
	pos, err := s.Store.Get(ctx, user)
	if errors.Is(err, ErrNotFound) {
		// A miss is an answer, not a failure.
		s.metrics.RecordOperation("get", time.Since(start), nil)
		return pos, err
	}
	s.metrics.RecordOperation("get", time.Since(start), err)
	return pos, err
}

func (s *meteredStore) Update(ctx context.Context, user string, fn UpdateFunc) (Position, error) {
	start := time.Now()
	created := false
	pos, err := s.Store.Update(ctx, user, func(cur Position, found bool) (Position, error) {
		next, err := fn(cur, found)
		created = err == nil && !found
		return next, err
	})
	s.metrics.RecordOperation("update", time.Since(start), err)
	if err == nil && created {
		s.metrics.SetUsers(int(s.users.Add(1)))
	}
	return pos, err
}

func (s *meteredStore) Delete(ctx context.Context, user string) error {
	start := time.Now()
	err := s.Store.Delete(ctx, user)
	s.metrics.RecordOperation("delete", time.Since(start), err)
	if err == nil {
		if n, cerr := s.Store.Count(ctx); cerr == nil {
			s.setUsers(int64(n))
		}
	}
	return err
}

func (s *meteredStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.Store.Count(ctx)
	s.metrics.RecordOperation("count", time.Since(start), err)
	if err == nil {
		s.setUsers(int64(n))
	}
	return n, err
}
