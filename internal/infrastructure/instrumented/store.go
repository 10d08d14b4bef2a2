// Package instrumented wraps a mapping store with per-operation metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"github.com/sp3dr4/tern/internal/domain"
	"github.com/sp3dr4/tern/internal/pkg/metrics"
)

type MappingStore struct {
	next     domain.MappingStore
	registry metrics.Registry
}

func NewMappingStore(next domain.MappingStore, registry metrics.Registry) *MappingStore {
	return &MappingStore{next: next, registry: registry}
}

func (s *MappingStore) observe(operation string, start time.Time, err error) {
	status := metrics.StatusOK
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = metrics.StatusNotFound
	case err != nil:
		status = metrics.StatusError
	}
	s.registry.RecordStoreOperation(operation, status, time.Since(start).Seconds())
}

func (s *MappingStore) FindByShortCode(ctx context.Context, shortCode string) (m *domain.Mapping, err error) {
	defer func(start time.Time) { s.observe("find_by_short_code", start, err) }(time.Now())
	return s.next.FindByShortCode(ctx, shortCode)
}

func (s *MappingStore) FindByID(ctx context.Context, id string) (m *domain.Mapping, err error) {
	defer func(start time.Time) { s.observe("find_by_id", start, err) }(time.Now())
	return s.next.FindByID(ctx, id)
}

func (s *MappingStore) Insert(ctx context.Context, mapping *domain.Mapping) (m *domain.Mapping, err error) {
	defer func(start time.Time) { s.observe("insert", start, err) }(time.Now())
	return s.next.Insert(ctx, mapping)
}

func (s *MappingStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, id)
}

func (s *MappingStore) List(ctx context.Context, limit, offset int) (ms []*domain.Mapping, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.List(ctx, limit, offset)
}

func (s *MappingStore) Close() error {
	return s.next.Close()
}

func (s *MappingStore) HealthCheck(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("health_check", start, err) }(time.Now())
	return s.next.HealthCheck(ctx)
}
