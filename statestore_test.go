package drift

import (
	"reflect"
	"testing"
)

func TestStateStoreSetGetDelete(t *testing.T) {
	store := newStateStore()

	store.Set("a", map[string]interface{}{"k": "v"})
	if state, ok := store.Get("a"); !ok || state.(map[string]interface{})["k"] != "v" {
		t.Fatalf("get = %v, %v", state, ok)
	}

	store.Delete([]string{"a", "missing"})
	if _, ok := store.Get("a"); ok {
		t.Fatal("entry should be gone")
	}
	if store.Len() != 0 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestStateStoreMergeAndReplace(t *testing.T) {
	store := newStateStore()
	store.Set("a", "stored-a")
	store.Set("gone", "stored-gone")

	merged := store.MergeAndReplace(
		[]string{"a", "b"},
		map[string]interface{}{"b": "incoming-b"},
	)

	want := map[string]interface{}{"a": "stored-a", "b": "incoming-b"}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}

	// The merge result is the new store: entries outside the union fall away.
	if _, ok := store.Get("gone"); ok {
		t.Fatal("entry outside the union should have fallen away")
	}
	if !reflect.DeepEqual(store.Snapshot(), want) {
		t.Fatalf("store = %v, want %v", store.Snapshot(), want)
	}
}

func TestStateStoreIncomingWins(t *testing.T) {
	store := newStateStore()
	store.Set("a", "stored")

	merged := store.MergeAndReplace([]string{"a"}, map[string]interface{}{"a": "incoming"})
	if merged["a"] != "incoming" {
		t.Fatalf("merged = %v, caller-supplied state must win", merged)
	}
}

func TestStateStoreMergeResultIsDetached(t *testing.T) {
	store := newStateStore()
	merged := store.MergeAndReplace([]string{"a"}, map[string]interface{}{"a": "v"})
	merged["b"] = "mutated"

	if _, ok := store.Get("b"); ok {
		t.Fatal("mutating the merge result must not touch the store")
	}
}
