package storage

import (
	"sync"
	"time"

	"github.com/stratis-storage/go-dbus-client-gen/internal/managed"
)

// SnapshotStore keeps the most recently fetched managed-objects tree
// in-memory and guards access with a RWMutex.
type SnapshotStore struct {
	mu        sync.RWMutex
	objects   managed.ManagedObjects
	updatedAt time.Time

	clock func() time.Time
}

// Option configures SnapshotStore behaviour.
type Option func(*SnapshotStore)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *SnapshotStore) {
		s.clock = clock
	}
}

// NewSnapshotStore initialises an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		objects: managed.ManagedObjects{},
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace stores a deep copy of the given tree and records the update time.
func (s *SnapshotStore) Replace(objects managed.ManagedObjects) {
	cp := objects.Copy()
	if cp == nil {
		cp = managed.ManagedObjects{}
	}

	s.mu.Lock()
	s.objects = cp
	s.updatedAt = s.clock()
	s.mu.Unlock()
}

// Snapshot returns a defensive copy of the current tree and its update time.
func (s *SnapshotStore) Snapshot() (managed.ManagedObjects, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.objects.Copy(), s.updatedAt
}

// Len returns the number of objects in the current tree.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
