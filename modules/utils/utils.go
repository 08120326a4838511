package utils

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// UintToBytes encodes a uint64 as big-endian bytes, suitable for use as a
// Pebble/Badger key component that must sort numerically.
func UintToBytes(value uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, value)
	return b
}

func BytesToUint(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid byte slice length: expected 8, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Uint32ToBytes encodes a uint32 (subscription ids, sequence numbers) as
// big-endian bytes.
func Uint32ToBytes(value uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, value)
	return b
}

func BytesToUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("invalid byte slice length: expected 4, got %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func StringToUint64(value string) (uint64, error) {
	return strconv.ParseUint(value, 10, 64)
}

// HandleAndLog runs a deferred action (typically a Close) and logs any
// error instead of letting it disappear in a defer statement.
func HandleAndLog(action func() error, log *zap.Logger) {
	if err := action(); err != nil {
		log.Error("error during deferred execution", zap.Error(err))
	}
}
