package memory

import "testing"

func TestMatchStoreLifecycle(t *testing.T) {
	store := NewMatchStore()

	match := store.GetOrCreate("match-1")
	if match == nil {
		t.Fatalf("expected match")
	}
	if _, ok := store.Get("match-1"); !ok {
		t.Fatalf("expected match present")
	}

	store.DeleteIfEmpty("match-1")
	if _, ok := store.Get("match-1"); ok {
		t.Fatalf("expected match removed when empty")
	}
}

func TestMatchStoreKeepsOccupiedMatches(t *testing.T) {
	store := NewMatchStore()

	match := store.GetOrCreate("match-1")
	match.Join("u1", seenRecord(nil))

	store.DeleteIfEmpty("match-1")
	if _, ok := store.Get("match-1"); !ok {
		t.Fatalf("occupied match must survive DeleteIfEmpty")
	}
}
