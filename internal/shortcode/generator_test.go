package shortcode

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"testing"

	"github.com/sp3dr4/tern/internal/domain"
)

var alphanumeric = regexp.MustCompile(`^[0-9A-Za-z]+$`)

func TestGenerate_Deterministic(t *testing.T) {
	const url = "https://example.com/some/long/path?q=1"

	first := Generate(url, 1)
	second := Generate(url, 1)
	if first != second {
		t.Fatalf("Generate not deterministic: %q vs %q", first, second)
	}
	if len(first) != DefaultLength {
		t.Fatalf("len = %d; want %d", len(first), DefaultLength)
	}

	// Fixed vector: sha256("https://example.com1") truncated to 8 hex chars.
	sum := sha256.Sum256([]byte("https://example.com1"))
	want := hex.EncodeToString(sum[:])[:8]
	if got := Generate("https://example.com", 1); got != want {
		t.Fatalf("Generate = %q; want %q", got, want)
	}
}

func TestGenerate_SaltChangesCode(t *testing.T) {
	const url = "https://example.com"

	seen := make(map[string]int)
	for salt := 1; salt <= 50; salt++ {
		code := Generate(url, salt)
		if prev, ok := seen[code]; ok {
			t.Fatalf("salt %d and %d produced the same code %q", prev, salt, code)
		}
		seen[code] = salt
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		encoding Encoding
		wantErr  bool
	}{
		{name: "hex default", length: 8, encoding: ""},
		{name: "hex full digest", length: 64, encoding: EncodingHex},
		{name: "base62", length: 10, encoding: EncodingBase62},
		{name: "zero length", length: 0, encoding: EncodingHex, wantErr: true},
		{name: "hex too long", length: 65, encoding: EncodingHex, wantErr: true},
		{name: "base62 too long", length: 33, encoding: EncodingBase62, wantErr: true},
		{name: "unknown encoding", length: 8, encoding: "base32", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.length, tt.encoding)
			if tt.wantErr {
				var cfgErr *domain.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			code := g.Generate("https://example.com", 7)
			if len(code) != tt.length {
				t.Errorf("len = %d; want %d", len(code), tt.length)
			}
			if !alphanumeric.MatchString(code) {
				t.Errorf("code %q contains non-alphanumeric characters", code)
			}
			if again := g.Generate("https://example.com", 7); again != code {
				t.Errorf("not deterministic: %q vs %q", code, again)
			}
		})
	}
}
