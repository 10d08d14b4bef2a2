package domain

import "context"

// MappingStore is the backing document store. Implementations must reject a
// second mapping for an existing short code with ErrDuplicateKey and report
// missing records with ErrNotFound.
type MappingStore interface {
	FindByShortCode(ctx context.Context, shortCode string) (*Mapping, error)
	FindByID(ctx context.Context, id string) (*Mapping, error)
	Insert(ctx context.Context, mapping *Mapping) (*Mapping, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Mapping, error)
	Close() error
	HealthCheck(ctx context.Context) error
}
