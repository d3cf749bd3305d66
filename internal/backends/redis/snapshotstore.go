package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menusync/internal/types"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyNameTemplate = "_menusync_snapshot_%s"

	// DefaultSnapshotTTL bounds how stale a restored snapshot may be.
	DefaultSnapshotTTL = 7 * 24 * time.Hour
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// SnapshotStore implements ports.SnapshotStore with one zstd-compressed JSON value per location.
type SnapshotStore struct {
	cli *redis.Client
	key string
	ttl time.Duration
}

func NewSnapshotStore(cli *redis.Client, locationID string, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotStore{cli: cli, key: fmt.Sprintf(snapshotKeyNameTemplate, locationID), ttl: ttl}
}

// LoadSnapshot returns the stored snapshot, or (nil, nil) when none exists.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (*types.Snapshot, error) {
	raw, err := s.cli.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", s.key, err)
	}
	return snap, nil
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	b, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.cli.Set(ctx, s.key, b, s.ttl).Err()
}

// EncodeSnapshot encodes the snapshot as JSON and compresses it.
func EncodeSnapshot(snap types.Snapshot) ([]byte, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
}

// DecodeSnapshot decompresses and JSON-decodes a value written by EncodeSnapshot.
func DecodeSnapshot(in []byte) (*types.Snapshot, error) {
	b, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, err
	}
	var snap types.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
