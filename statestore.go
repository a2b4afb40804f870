package dataflow

// A GraphStateStore keeps the latest StateSnapshot of a graph, and one
// previous snapshot for lookback. Fold each evaluation pass's output list
// into the store with TakeNewSnapshot; read the accumulated state with
// LastState.
//
// The zero value is not ready to use; call NewGraphStateStore.
type GraphStateStore struct {
	// lookback holds the most recent snapshots, oldest first. It is never
	// empty: the constructor seeds it with the empty snapshot.
	lookback []*StateSnapshot
}

// maxLookback bounds the snapshots retained by the store: the latest and
// one before it.
const maxLookback = 2

// NewGraphStateStore returns a store seeded with the empty snapshot.
func NewGraphStateStore() *GraphStateStore {
	return &GraphStateStore{lookback: []*StateSnapshot{NewStateSnapshot()}}
}

// TakeNewSnapshot extends the latest snapshot with the given output list
// and appends the result, dropping the oldest retained snapshot beyond the
// lookback depth. It fails when the list carries duplicate named ids; the
// store is unchanged in that case.
func (s *GraphStateStore) TakeNewSnapshot(states []TopicState) error {
	next, err := ExtendSnapshot(s.LastState(), states)
	if err != nil {
		return err
	}
	s.lookback = append(s.lookback, next)
	if len(s.lookback) > maxLookback {
		s.lookback = s.lookback[1:]
	}
	return nil
}

// LastState returns the most recent snapshot. It never returns nil.
func (s *GraphStateStore) LastState() *StateSnapshot {
	return s.lookback[len(s.lookback)-1]
}

// PreviousState returns the snapshot preceding the latest one, or the
// latest itself (the seed empty snapshot) when no snapshot has been taken
// yet.
func (s *GraphStateStore) PreviousState() *StateSnapshot {
	return s.lookback[0]
}
