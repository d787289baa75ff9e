package security

import (
	"bytes"
	"encoding/binary"
	"regexp"
	"strconv"
	"testing"
)

func TestCodeGeneratorProducesSixDigits(t *testing.T) {
	generator := NewCodeGenerator()
	pattern := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 100; i++ {
		code, err := generator.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("expected a 6-digit code, got %q", code)
		}

		value, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code is not numeric: %v", err)
		}
		if value < 100000 || value > 999999 {
			t.Fatalf("code %d outside the allowed range", value)
		}
	}
}

func TestCodeGeneratorIsDeterministicForFixedSource(t *testing.T) {
	seed := make([]byte, 4)
	binary.BigEndian.PutUint32(seed, 42)

	generator := NewCodeGeneratorFromSource(bytes.NewReader(seed))

	code, err := generator.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if code != "100042" {
		t.Fatalf("expected code 100042 for seed 42, got %q", code)
	}
}

func TestCodeGeneratorRejectsBiasedValues(t *testing.T) {
	// The first word sits above the rejection limit and must be discarded in
	// favour of the second.
	source := make([]byte, 8)
	binary.BigEndian.PutUint32(source[0:4], ^uint32(0))
	binary.BigEndian.PutUint32(source[4:8], 7)

	generator := NewCodeGeneratorFromSource(bytes.NewReader(source))

	code, err := generator.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if code != "100007" {
		t.Fatalf("expected the biased word to be rejected, got %q", code)
	}
}

func TestCodeGeneratorFailsOnExhaustedSource(t *testing.T) {
	generator := NewCodeGeneratorFromSource(bytes.NewReader(nil))

	if _, err := generator.Generate(); err == nil {
		t.Fatal("expected an error for an exhausted random source")
	}
}
