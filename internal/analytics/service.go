package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"olist-dashboard/internal/dataset"
	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/filter"
	"olist-dashboard/internal/models"
)

// Service owns the loaded dataset for the lifetime of the process. Loads
// go through the injected Store; after that every request is a pure
// filter-then-aggregate pass over the immutable dataset, so reads only
// need the lock to grab the current dataset pointer.
type Service struct {
	mu     sync.RWMutex
	store  *dataset.Store
	logger *slog.Logger
	orders *dataset.Dataset
	rules  *dataset.RuleSet
}

func NewService(store *dataset.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) LoadOrders(ctx context.Context, path string) error {
	ds, err := s.store.Orders(ctx, path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.orders = ds
	s.mu.Unlock()
	return nil
}

func (s *Service) LoadRules(ctx context.Context, path string) error {
	rs, err := s.store.Rules(ctx, path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules = rs
	s.mu.Unlock()
	return nil
}

// SetOrders seeds the service directly, bypassing the store. Test seam.
func (s *Service) SetOrders(orders []models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = &dataset.Dataset{Orders: orders, LoadedAt: time.Now()}
}

// SetRules seeds the rules directly, bypassing the store. Test seam.
func (s *Service) SetRules(rules []models.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = &dataset.RuleSet{Rules: rules, LoadedAt: time.Now()}
}

func (s *Service) dataset() (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.orders == nil {
		return nil, apperrors.DataUnavailable("orders dataset is not loaded")
	}
	return s.orders, nil
}

func (s *Service) ruleSet() (*dataset.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rules == nil {
		return nil, apperrors.DataUnavailable("rules dataset is not loaded")
	}
	return s.rules, nil
}

// Filter applies the selection to the loaded dataset. An empty view is
// returned as-is; callers short-circuit rendering on it.
func (s *Service) Filter(sel filter.Selection) (filter.View, error) {
	ds, err := s.dataset()
	if err != nil {
		return filter.View{}, err
	}
	return filter.Apply(ds, sel), nil
}

// FilterRules applies the thresholds and reports the filtered rules plus
// the unfiltered total for the KPI row.
func (s *Service) FilterRules(sel filter.RuleSelection) ([]models.Rule, int, error) {
	rs, err := s.ruleSet()
	if err != nil {
		return nil, 0, err
	}
	return filter.ApplyRules(rs, sel), len(rs.Rules), nil
}

func (s *Service) HasRules() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules != nil
}

func (s *Service) FilterOptions() (models.FilterOptions, error) {
	ds, err := s.dataset()
	if err != nil {
		return models.FilterOptions{}, err
	}
	return filter.Options(ds), nil
}

// Stats reports load state for the admin endpoint.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"orders_loaded": s.orders != nil,
		"rules_loaded":  s.rules != nil,
	}
	if s.orders != nil {
		stats["order_rows"] = len(s.orders.Orders)
		stats["orders_loaded_at"] = s.orders.LoadedAt
	}
	if s.rules != nil {
		stats["rule_count"] = len(s.rules.Rules)
		stats["rules_loaded_at"] = s.rules.LoadedAt
	}
	return stats
}
