// Package detstore holds the latest detection snapshot per stream role.
//
// It is the only state shared between pipeline components: stream workers
// write (one writer per role), the KPI aggregator and presentation reads.
// Snapshots are replaced wholesale; a reader sees either the previous
// snapshot or the new one, never a mix. Intermediate snapshots published
// between reads are silently superseded.
package detstore

import (
	"sync"

	"github.com/visionops/restaurant-analytics/internal/capture"
	"github.com/visionops/restaurant-analytics/internal/models"
)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	snapshots map[models.Role]models.Snapshot
	frames    map[models.Role]capture.Frame
}

func New() *Store {
	return &Store{
		snapshots: make(map[models.Role]models.Snapshot),
		frames:    make(map[models.Role]capture.Frame),
	}
}

// Publish replaces the snapshot for the role. The caller must hand over a
// fully built snapshot and never mutate it afterwards.
func (s *Store) Publish(role models.Role, snap models.Snapshot) {
	s.mu.Lock()
	s.snapshots[role] = snap
	s.mu.Unlock()
}

// PublishFrame records the most recent raw frame for the role.
func (s *Store) PublishFrame(role models.Role, frame capture.Frame) {
	s.mu.Lock()
	s.frames[role] = frame
	s.mu.Unlock()
}

// Get returns the latest snapshot for the role. The second return is false
// when the role has never published, which is distinct from a zero-count
// snapshot.
func (s *Store) Get(role models.Role) (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[role]
	return snap, ok
}

// ReadAll returns a copy of the latest snapshot per published role, so the
// caller can iterate without racing a concurrent Publish. Roles that never
// published are absent from the map.
func (s *Store) ReadAll() map[models.Role]models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Role]models.Snapshot, len(s.snapshots))
	for role, snap := range s.snapshots {
		out[role] = snap
	}
	return out
}

// LatestFrames returns a copy of the most recent raw frame per role.
// Frame bytes are copied; callers may hold them as long as they like.
func (s *Store) LatestFrames() map[models.Role]capture.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Role]capture.Frame, len(s.frames))
	for role, frame := range s.frames {
		data := make([]byte, len(frame.Data))
		copy(data, frame.Data)
		frame.Data = data
		out[role] = frame
	}
	return out
}
