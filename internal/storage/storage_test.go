package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/stratis-storage/go-dbus-client-gen/internal/managed"
)

func sampleObjects() managed.ManagedObjects {
	return managed.ManagedObjects{
		"/org/storage/examples/pool/1": {
			"org.storage.examples.Pool": {
				"Name": dbus.MakeVariant("pool1"),
			},
		},
	}
}

func TestNewSnapshotStoreIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()

	objects, updatedAt := store.Snapshot()
	if len(objects) != 0 {
		t.Fatalf("expected empty snapshot, got %v", objects)
	}
	if !updatedAt.IsZero() {
		t.Fatalf("expected zero update time before first Replace, got %v", updatedAt)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestReplaceRecordsUpdateTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewSnapshotStore(WithClock(func() time.Time { return now }))

	store.Replace(sampleObjects())

	objects, updatedAt := store.Snapshot()
	if store.Len() != 1 || len(objects) != 1 {
		t.Fatalf("expected one object, got %d", len(objects))
	}
	if !updatedAt.Equal(now) {
		t.Fatalf("expected update time %v, got %v", now, updatedAt)
	}
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()
	store.Replace(sampleObjects())

	objects, _ := store.Snapshot()
	objects["/org/storage/examples/pool/1"]["org.storage.examples.Pool"]["Name"] = dbus.MakeVariant("mutated")

	again, _ := store.Snapshot()
	name := again["/org/storage/examples/pool/1"]["org.storage.examples.Pool"]["Name"]
	if got, _ := name.Value().(string); got != "pool1" {
		t.Fatalf("snapshot mutation leaked into store: %v", name)
	}
}

func TestReplaceCopiesInput(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()
	input := sampleObjects()
	store.Replace(input)

	input["/org/storage/examples/pool/1"]["org.storage.examples.Pool"]["Name"] = dbus.MakeVariant("mutated")

	objects, _ := store.Snapshot()
	name := objects["/org/storage/examples/pool/1"]["org.storage.examples.Pool"]["Name"]
	if got, _ := name.Value().(string); got != "pool1" {
		t.Fatalf("input mutation leaked into store: %v", name)
	}

	store.Replace(nil)
	if store.Len() != 0 {
		t.Fatalf("expected nil replace to clear the store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Replace(sampleObjects())
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Snapshot()
		}()
	}
	wg.Wait()

	if store.Len() != 1 {
		t.Fatalf("expected one object after concurrent writes, got %d", store.Len())
	}
}
