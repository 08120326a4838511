package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeKeyRoundTrips(t *testing.T) {
	ck := NewCompositeKey("subscription")
	ck.AddString("late")
	ck.AddUint64(42)
	key := ck.Build()

	parsed := NewCompositeKey("subscription")
	if err := parsed.Parse(key); err != nil {
		t.Fatalf("failed to parse key: %v", err)
	}

	field, err := parsed.GetString()
	if err != nil {
		t.Fatalf("failed to get string field: %v", err)
	}
	id, err := parsed.GetUint64()
	if err != nil {
		t.Fatalf("failed to get uint64 field: %v", err)
	}

	assert.Equal(t, "subscription", parsed.GetPrefix())
	assert.Equal(t, "late", field)
	assert.Equal(t, uint64(42), id)
}

func TestCompositeKeyParsesSingleFieldWithoutTrailingDelimiter(t *testing.T) {
	key := []byte("subscription:late")

	ck := NewCompositeKey("subscription")
	if err := ck.Parse(key); err != nil {
		t.Fatalf("failed to parse raw key: %v", err)
	}

	val, err := ck.GetString()
	if err != nil {
		t.Fatalf("failed to get string field: %v", err)
	}
	if val != "late" {
		t.Errorf("expected %q, got %q", "late", val)
	}
}

func TestUint32RoundTrip(t *testing.T) {
	b := Uint32ToBytes(123456)
	v, err := BytesToUint32(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, uint32(123456), v)

	if _, err := BytesToUint32([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short byte slice")
	}
}

func TestUintRoundTrip(t *testing.T) {
	b := UintToBytes(9876543210)
	v, err := BytesToUint(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, uint64(9876543210), v)
}
