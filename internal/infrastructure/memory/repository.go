package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sp3dr4/tern/internal/domain"
)

// MappingRepository keeps mappings in process memory. Short codes are unique,
// matching the unique index the persistent stores declare.
type MappingRepository struct {
	mu     sync.RWMutex
	byCode map[string]*domain.Mapping
	byID   map[string]*domain.Mapping
}

func NewMappingRepository() *MappingRepository {
	return &MappingRepository{
		byCode: make(map[string]*domain.Mapping),
		byID:   make(map[string]*domain.Mapping),
	}
}

func (r *MappingRepository) Insert(ctx context.Context, mapping *domain.Mapping) (*domain.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[mapping.ShortCode]; exists {
		return nil, domain.ErrDuplicateKey
	}

	created := *mapping
	created.ID = uuid.NewString()

	r.byCode[created.ShortCode] = &created
	r.byID[created.ID] = &created

	result := created
	return &result, nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.byCode[shortCode]
	if !exists {
		return nil, domain.ErrNotFound
	}

	result := *m
	return &result, nil
}

func (r *MappingRepository) FindByID(ctx context.Context, id string) (*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.byID[id]
	if !exists {
		return nil, domain.ErrNotFound
	}

	result := *m
	return &result, nil
}

func (r *MappingRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.byID[id]
	if !exists {
		return domain.ErrNotFound
	}

	delete(r.byID, id)
	delete(r.byCode, m.ShortCode)
	return nil
}

// List returns mappings ordered by creation time, then short code.
func (r *MappingRepository) List(ctx context.Context, limit, offset int) ([]*domain.Mapping, error) {
	r.mu.RLock()
	all := make([]*domain.Mapping, 0, len(r.byID))
	for _, m := range r.byID {
		copied := *m
		all = append(all, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ShortCode < all[j].ShortCode
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*domain.Mapping{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MappingRepository) Close() error {
	return nil
}

func (r *MappingRepository) HealthCheck(ctx context.Context) error {
	return nil
}
