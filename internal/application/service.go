package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/tern/internal/coalesce"
	"github.com/sp3dr4/tern/internal/domain"
	"github.com/sp3dr4/tern/internal/pkg/logging"
	"github.com/sp3dr4/tern/internal/pkg/metrics"
	"github.com/sp3dr4/tern/internal/shortcode"
)

const (
	DefaultMaxSalt   = 999
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// LocalCache is the in-process tier. Both lru.Cache[string, domain.Mapping] and
// lru.Sharded[domain.Mapping] satisfy it.
type LocalCache interface {
	Get(shortCode string) (domain.Mapping, bool)
	Put(shortCode string, mapping domain.Mapping)
	Remove(shortCode string) bool
}

type Config struct {
	BaseURL   string
	MaxSalt   int
	RemoteTTL time.Duration
	Coalesce  coalesce.Options
}

// Dependencies groups the collaborators of MappingService. Store and Local are
// required; a nil Remote or Events disables that tier.
type Dependencies struct {
	Store   domain.MappingStore
	Local   LocalCache
	Remote  domain.Cache
	Events  domain.EventPublisher
	Codes   *shortcode.Generator
	Metrics metrics.Registry
	Logger  *slog.Logger
}

// MappingService resolves short codes through the local cache, the shared
// cache and the store, and creates mappings by salted probing.
type MappingService struct {
	store     domain.MappingStore
	local     LocalCache
	remote    domain.Cache
	remoteTTL time.Duration
	events    domain.EventPublisher
	loader    *coalesce.Group[domain.Mapping]
	codes     *shortcode.Generator
	maxSalt   int
	baseURL   string
	metrics   metrics.Registry
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewMappingService(cfg Config, deps Dependencies) (*MappingService, error) {
	if deps.Store == nil {
		return nil, &domain.ConfigError{Field: "store", Reason: "is required"}
	}
	if deps.Local == nil {
		return nil, &domain.ConfigError{Field: "local cache", Reason: "is required"}
	}

	maxSalt := cfg.MaxSalt
	if maxSalt == 0 {
		maxSalt = DefaultMaxSalt
	}
	if maxSalt < 0 {
		return nil, &domain.ConfigError{Field: "max salt", Reason: "must be greater than zero"}
	}

	codes := deps.Codes
	if codes == nil {
		var err error
		codes, err = shortcode.NewGenerator(shortcode.DefaultLength, shortcode.EncodingHex)
		if err != nil {
			return nil, err
		}
	}

	registry := deps.Metrics
	if registry == nil {
		registry = metrics.NewNoOpRegistry()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MappingService{
		store:     deps.Store,
		local:     deps.Local,
		remote:    deps.Remote,
		remoteTTL: cfg.RemoteTTL,
		events:    deps.Events,
		loader:    coalesce.New[domain.Mapping](deps.Local, cfg.Coalesce),
		codes:     codes,
		maxSalt:   maxSalt,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		metrics:   registry,
		validate:  validator.New(),
		logger:    logger,
	}, nil
}

type ShortenRequest struct {
	LongURL string `json:"longUrl" validate:"required,url,max=2048"`
}

type ShortenResponse struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	ShortURL  string    `json:"shortUrl"`
	LongURL   string    `json:"longUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Created   bool      `json:"created"`
}

// Resolve returns the mapping for shortCode or domain.ErrNotFound. Misses are
// never cached.
func (s *MappingService) Resolve(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	if shortCode == "" {
		return nil, domain.ErrInvalidShortCode
	}

	if m, ok := s.local.Get(shortCode); ok {
		s.metrics.RecordCacheLookup(metrics.CacheTierLocal, metrics.CacheHit)
		s.metrics.IncMappingsResolved()
		return &m, nil
	}
	s.metrics.RecordCacheLookup(metrics.CacheTierLocal, metrics.CacheMiss)

	m, shared, err := s.loader.Load(ctx, shortCode, s.fetch)
	if shared {
		s.metrics.IncCoalescedLoads()
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncMappingsResolved()
	return &m, nil
}

// fetch runs once per coalesced miss. The shared tier is advisory: its errors
// are logged and the store is consulted instead.
func (s *MappingService) fetch(ctx context.Context, shortCode string) (domain.Mapping, error) {
	logger := logging.FromContext(ctx, s.logger)

	if s.remote != nil {
		cached, err := s.remote.Get(ctx, shortCode)
		switch {
		case err != nil:
			s.metrics.RecordCacheLookup(metrics.CacheTierRemote, metrics.CacheError)
			logger.Warn("Shared cache lookup failed", "short_code", shortCode, "error", err)
		case cached != nil:
			s.metrics.RecordCacheLookup(metrics.CacheTierRemote, metrics.CacheHit)
			return *cached, nil
		default:
			s.metrics.RecordCacheLookup(metrics.CacheTierRemote, metrics.CacheMiss)
		}
	}

	m, err := s.store.FindByShortCode(ctx, shortCode)
	if err != nil {
		return domain.Mapping{}, err
	}

	s.fillRemote(ctx, m)
	return *m, nil
}

// CreateOrGet returns the mapping for longURL, creating it if needed. created
// reports whether this call inserted the record.
func (s *MappingService) CreateOrGet(ctx context.Context, longURL string) (mapping *domain.Mapping, created bool, err error) {
	if longURL == "" {
		return nil, false, domain.ErrInvalidURL
	}

	logger := logging.FromContext(ctx, s.logger)

	for salt := 1; salt <= s.maxSalt; salt++ {
		code := s.codes.Generate(longURL, salt)

		existing, err := s.Resolve(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			inserted, insertErr := s.insert(ctx, code, longURL)
			if insertErr == nil {
				return inserted, true, nil
			}
			if !errors.Is(insertErr, domain.ErrDuplicateKey) {
				return nil, false, insertErr
			}

			// Another writer took the code between our miss and our insert.
			logger.Debug("Lost insert race, re-resolving", "short_code", code, "salt", salt)
			existing, err = s.Resolve(ctx, code)
		}
		if err != nil {
			return nil, false, err
		}

		if existing.LongURL == longURL {
			return existing, false, nil
		}

		s.metrics.IncCodeCollisions()
		logger.Debug("Short code collision", "short_code", code, "salt", salt)
	}

	s.metrics.IncCodeExhausted()
	logger.Warn("Short code space exhausted", "long_url", longURL, "max_salt", s.maxSalt)
	return nil, false, fmt.Errorf("%w: no free code for %q within %d salts", domain.ErrExhausted, longURL, s.maxSalt)
}

func (s *MappingService) insert(ctx context.Context, code, longURL string) (*domain.Mapping, error) {
	m, err := domain.NewMapping(code, longURL)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, m)
	if err != nil {
		return nil, err
	}

	s.local.Put(created.ShortCode, *created)
	s.fillRemote(ctx, created)
	s.metrics.IncMappingsCreated()

	logger := logging.FromContext(ctx, s.logger)
	logger.Info("Mapping created", "id", created.ID, "short_code", created.ShortCode)

	if s.events != nil {
		if err := s.events.PublishMappingCreated(ctx, created); err != nil {
			logger.Error("Failed to publish mapping created event", "short_code", created.ShortCode, "error", err)
		}
	}

	return created, nil
}

func (s *MappingService) fillRemote(ctx context.Context, m *domain.Mapping) {
	if s.remote == nil {
		return
	}
	if err := s.remote.Set(ctx, m, s.remoteTTL); err != nil {
		logging.FromContext(ctx, s.logger).Warn("Failed to fill shared cache", "short_code", m.ShortCode, "error", err)
	}
}

// Shorten validates req and runs CreateOrGet.
func (s *MappingService) Shorten(ctx context.Context, req ShortenRequest) (*ShortenResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	m, created, err := s.CreateOrGet(ctx, req.LongURL)
	if err != nil {
		return nil, err
	}

	return &ShortenResponse{
		ID:        m.ID,
		ShortCode: m.ShortCode,
		ShortURL:  s.ShortURL(m.ShortCode),
		LongURL:   m.LongURL,
		CreatedAt: m.CreatedAt,
		Created:   created,
	}, nil
}

func (s *MappingService) ShortURL(shortCode string) string {
	return s.baseURL + "/shorten/" + shortCode
}

func (s *MappingService) CodeLength() int {
	return s.codes.Length()
}

func (s *MappingService) GetByID(ctx context.Context, id string) (*domain.Mapping, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.store.FindByID(ctx, id)
}

// List pages through stored mappings. A non-positive limit selects
// DefaultListLimit; limits above MaxListLimit are clamped.
func (s *MappingService) List(ctx context.Context, limit, offset int) ([]*domain.Mapping, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

// Delete removes a mapping and purges its short code from both cache tiers.
// A resolve already in flight for the code may still return the old mapping.
func (s *MappingService) Delete(ctx context.Context, id string) (*domain.Mapping, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.loader.Forget(m.ShortCode)
	s.local.Remove(m.ShortCode)

	logger := logging.FromContext(ctx, s.logger)
	if s.remote != nil {
		if err := s.remote.Delete(ctx, m.ShortCode); err != nil {
			logger.Warn("Failed to purge shared cache", "short_code", m.ShortCode, "error", err)
		}
	}

	s.metrics.IncMappingsDeleted()
	logger.Info("Mapping deleted", "id", m.ID, "short_code", m.ShortCode)

	if s.events != nil {
		if err := s.events.PublishMappingDeleted(ctx, m); err != nil {
			logger.Error("Failed to publish mapping deleted event", "short_code", m.ShortCode, "error", err)
		}
	}

	return m, nil
}

// HealthCheck reports whether the store and, when enabled, the shared cache are reachable.
func (s *MappingService) HealthCheck(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	if s.remote != nil {
		if err := s.remote.Ping(ctx); err != nil {
			return fmt.Errorf("shared cache unavailable: %w", err)
		}
	}
	return nil
}
