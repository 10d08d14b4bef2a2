// Package shortcode derives fixed-length short codes from a long URL and a salt.
//
// A code is a prefix of the encoded SHA-256 digest of the URL followed by the
// decimal salt. The same (url, salt) pair yields the same code on every machine;
// incrementing the salt walks through alternate candidates when a code collides.
package shortcode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/yihleego/base62"

	"github.com/sp3dr4/tern/internal/domain"
)

const DefaultLength = 8

type Encoding string

const (
	EncodingHex    Encoding = "hex"
	EncodingBase62 Encoding = "base62"
)

// Longest prefix we take from each encoding of a 32-byte digest.
const (
	maxHexLength    = sha256.Size * 2
	maxBase62Length = 32
)

type Generator struct {
	length   int
	encoding Encoding
}

func NewGenerator(length int, encoding Encoding) (*Generator, error) {
	if encoding == "" {
		encoding = EncodingHex
	}

	var limit int
	switch encoding {
	case EncodingHex:
		limit = maxHexLength
	case EncodingBase62:
		limit = maxBase62Length
	default:
		return nil, &domain.ConfigError{Field: "code encoding", Reason: fmt.Sprintf("unsupported encoding %q", encoding)}
	}

	if length <= 0 || length > limit {
		return nil, &domain.ConfigError{
			Field:  "short code length",
			Reason: fmt.Sprintf("must be between 1 and %d for %s encoding", limit, encoding),
		}
	}

	return &Generator{length: length, encoding: encoding}, nil
}

func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Encoding() Encoding {
	return g.encoding
}

// Generate returns the code for longURL at the given salt.
func (g *Generator) Generate(longURL string, salt int) string {
	sum := sha256.Sum256([]byte(longURL + strconv.Itoa(salt)))

	var encoded string
	if g.encoding == EncodingBase62 {
		encoded = base62.StdEncoding.EncodeToString(sum[:])
	} else {
		encoded = hex.EncodeToString(sum[:])
	}
	return encoded[:g.length]
}

// Generate is the default 8-character hex generator.
func Generate(longURL string, salt int) string {
	return defaultGenerator.Generate(longURL, salt)
}

var defaultGenerator = &Generator{length: DefaultLength, encoding: EncodingHex}
