package dataflow_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/blob/memblob"

	"github.com/go-dataflow/go-dataflow"
)

func TestSnapshotPersistence(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	t.Run("MissingKeyYieldsEmptySnapshot", func(t *testing.T) {
		s, err := dataflow.LoadSnapshot(ctx, bucket, "graphs/never-saved")
		if err != nil {
			t.Fatal("LoadSnapshot()", err)
		}
		if s.Version() != 0 || s.Len() != 0 {
			t.Errorf("LoadSnapshot() of a missing key = version %v with %v values, want the empty snapshot", s.Version(), s.Len())
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		store := dataflow.NewGraphStateStore()
		for i := 1; i <= 2; i++ {
			err := store.TakeNewSnapshot([]dataflow.TopicState{
				sessionCount{Count: i},
				scratch{}, // anonymous, must not be persisted
			})
			if err != nil {
				t.Fatal("TakeNewSnapshot()", err)
			}
		}

		const key = "graphs/test/latest"
		if err := dataflow.SaveSnapshot(ctx, bucket, key, store.LastState()); err != nil {
			t.Fatal("SaveSnapshot()", err)
		}
		loaded, err := dataflow.LoadSnapshot(ctx, bucket, key)
		if err != nil {
			t.Fatal("LoadSnapshot()", err)
		}

		if got, want := loaded.Version(), store.LastState().Version(); got != want {
			t.Errorf("loaded version = %v, want %v", got, want)
		}
		if diff := cmp.Diff(store.LastState().TopicStates(), loaded.TopicStates()); diff != "" {
			t.Error("Loaded values differ (-want +got):", diff)
		}
	})
}
