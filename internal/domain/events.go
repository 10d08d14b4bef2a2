package domain

import "context"

// EventPublisher announces mapping lifecycle changes to downstream consumers.
type EventPublisher interface {
	PublishMappingCreated(ctx context.Context, mapping *Mapping) error
	PublishMappingDeleted(ctx context.Context, mapping *Mapping) error
	Close() error
}
