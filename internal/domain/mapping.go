package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("mapping not found")
	ErrExhausted        = errors.New("short code space exhausted")
	ErrDuplicateKey     = errors.New("short code already exists")
	ErrInvalidURL       = errors.New("invalid url")
	ErrInvalidShortCode = errors.New("invalid short code")
)

// ConfigError reports an invalid construction parameter. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Mapping binds a fixed-length short code to a long URL. The ID is assigned by
// the backing store and is opaque to everything above it.
type Mapping struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	LongURL   string    `json:"longUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMapping(shortCode, longURL string) (*Mapping, error) {
	if shortCode == "" {
		return nil, ErrInvalidShortCode
	}
	if longURL == "" {
		return nil, ErrInvalidURL
	}

	return &Mapping{
		ShortCode: shortCode,
		LongURL:   longURL,
		CreatedAt: time.Now().UTC(),
	}, nil
}
