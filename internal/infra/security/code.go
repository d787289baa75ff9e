package security

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// CodeGenerator produces 6-digit verification codes drawn uniformly from
// [100000, 999999]. The random source is injectable so tests can make code
// generation deterministic.
type CodeGenerator struct {
	source io.Reader
}

// NewCodeGenerator returns a generator backed by crypto/rand.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{source: rand.Reader}
}

// NewCodeGeneratorFromSource returns a generator reading randomness from the
// supplied source.
func NewCodeGeneratorFromSource(source io.Reader) *CodeGenerator {
	if source == nil {
		source = rand.Reader
	}
	return &CodeGenerator{source: source}
}

// Generate returns a fresh verification code. Rejection sampling keeps the
// distribution uniform across the whole range.
func (g *CodeGenerator) Generate() (string, error) {
	// Largest multiple of codeRange below 2^32; values at or above it would
	// bias the modulo.
	const limit = (1 << 32) / codeRange * codeRange

	buf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		v := binary.BigEndian.Uint32(buf)
		if uint64(v) >= limit {
			continue
		}
		return fmt.Sprintf("%06d", codeMin+v%codeRange), nil
	}
}
