package dataset

import (
	"context"
	"sync"
)

// Store memoizes loads by source path for the lifetime of the process.
// It is owned by whoever builds the application and injected into the
// analytics service; nothing reaches it as ambient global state. Picking
// up a changed file requires a new process (or a fresh Store).
type Store struct {
	mu       sync.Mutex
	loader   *Loader
	datasets map[string]*Dataset
	rules    map[string]*RuleSet
}

func NewStore(loader *Loader) *Store {
	return &Store{
		loader:   loader,
		datasets: make(map[string]*Dataset),
		rules:    make(map[string]*RuleSet),
	}
}

func (s *Store) Orders(ctx context.Context, path string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ds, ok := s.datasets[path]; ok {
		return ds, nil
	}

	ds, err := s.loader.LoadOrders(ctx, path)
	if err != nil {
		return nil, err
	}
	s.datasets[path] = ds
	return ds, nil
}

func (s *Store) Rules(ctx context.Context, path string) (*RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rs, ok := s.rules[path]; ok {
		return rs, nil
	}

	rs, err := s.loader.LoadRules(ctx, path)
	if err != nil {
		return nil, err
	}
	s.rules[path] = rs
	return rs, nil
}
