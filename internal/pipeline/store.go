package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/couchcryptid/quake-map/internal/domain"
)

// SnapshotStore keeps the most recent snapshot in memory. Readers always see
// a complete snapshot; Load swaps it in atomically.
type SnapshotStore struct {
	latest atomic.Pointer[domain.Snapshot]
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Load replaces the stored snapshot.
func (s *SnapshotStore) Load(_ context.Context, snap domain.Snapshot) error {
	s.latest.Store(&snap)
	return nil
}

// Latest returns the stored snapshot and false if no pass has completed.
func (s *SnapshotStore) Latest() (domain.Snapshot, bool) {
	p := s.latest.Load()
	if p == nil {
		return domain.Snapshot{}, false
	}
	return *p, true
}
