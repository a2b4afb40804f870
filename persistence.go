package dataflow

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// snapshotRecord is the wire form of a StateSnapshot. The values travel
// through the TopicState interface, so every named type in the snapshot must
// be registered with gob.Register() by the application.
type snapshotRecord struct {
	Version uint32
	States  []TopicState
}

// SaveSnapshot persists a snapshot under the given key in the given bucket.
//
// Pair it with LoadSnapshot to carry graph state across process restarts:
// save the store's latest snapshot whenever convenient, and on startup merge
// the loaded snapshot into the ResumeFromSnapshot push.
func SaveSnapshot(ctx context.Context, bucket *blob.Bucket, key string, s *StateSnapshot) error {
	var buf bytes.Buffer
	record := snapshotRecord{Version: s.Version(), States: s.TopicStates()}
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bucket.WriteAll(ctx, key, buf.Bytes(), nil); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// LoadSnapshot reads a snapshot previously persisted under the given key.
//
// A missing key is not an error: it returns the empty snapshot, so that a
// first-ever startup resumes from nothing without a special case.
func LoadSnapshot(ctx context.Context, bucket *blob.Bucket, key string) (*StateSnapshot, error) {
	p, err := bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return NewStateSnapshot(), nil
		}
		return nil, fmt.Errorf("read %q: %w", key, err)
	}

	var record snapshotRecord
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&record); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}

	s := PrimeSnapshot(record.States...)
	s.version = record.Version
	return s, nil
}
