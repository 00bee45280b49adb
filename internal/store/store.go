// Package store persists announcement records in one partition per source
// and answers the novelty question for the ingestion worker.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/benny59/architetti/internal/model"
)

var (
	// ErrInvalidPartition is returned for nicknames that cannot name a table.
	ErrInvalidPartition = errors.New("invalid partition name")
	// ErrConfigKeyNotFound is returned when the configuration partition has no such key.
	ErrConfigKeyNotFound = errors.New("config key not found")
)

var partitionPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Store is the dedup store. Insert appends unconditionally: callers check
// Exists first.
type Store interface {
	EnsurePartitions(ctx context.Context, nicknames []string) error
	Exists(ctx context.Context, nickname, checksum string) (bool, error)
	Insert(ctx context.Context, nickname string, rec model.Record) error
	Records(ctx context.Context, nickname string, limit int) ([]model.Record, error)
	Count(ctx context.Context, nickname string) (int, error)
	ConfigValue(ctx context.Context, key string) (string, error)
	SetConfigValue(ctx context.Context, key, value string) error
	Close() error
}

// ValidatePartition rejects nicknames that are not safe table suffixes.
func ValidatePartition(nickname string) error {
	if !partitionPattern.MatchString(nickname) {
		return fmt.Errorf("%w: %q", ErrInvalidPartition, nickname)
	}
	return nil
}

func tableName(nickname string) (string, error) {
	if err := ValidatePartition(nickname); err != nil {
		return "", err
	}
	return "records_" + nickname, nil
}
