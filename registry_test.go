package dispatchloop

import "testing"

func TestRegistry_InsertMaintainsPriorityOrder(t *testing.T) {
	var r registry[string]
	r.insert(5, 1, "mid")
	r.insert(1, 2, "first")
	r.insert(5, 3, "mid-later")
	r.insert(9, 4, "last")

	got := r.snapshot()
	want := []string{"first", "mid", "mid-later", "last"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.payload != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, e.payload, want[i])
		}
	}
}

func TestRegistry_MarkDeletedFlagsFirstMatch(t *testing.T) {
	var r registry[string]
	r.insert(0, 1, "a")
	r.insert(0, 2, "b")

	if !r.markDeleted(func(s string) bool { return s == "b" }) {
		t.Fatal("expected markDeleted to find a match")
	}
	for _, e := range r.snapshot() {
		if e.payload == "b" && !e.isDeleteRequested() {
			t.Fatal("matched entry should be flagged delete_requested")
		}
		if e.payload == "a" && e.isDeleteRequested() {
			t.Fatal("non-matching entry should be untouched")
		}
	}

	if r.markDeleted(func(s string) bool { return s == "absent" }) {
		t.Fatal("markDeleted should report false when nothing matches")
	}
}

func TestRegistry_SweepReapsOnlyEligibleEntries(t *testing.T) {
	var r registry[string]
	keep := r.insert(0, 1, "keep")
	reap := r.insert(0, 2, "reap")
	pending := r.insert(0, 3, "pending")
	inDispatch := r.insert(0, 4, "in-dispatch")

	reap.requestDelete()
	pending.requestDelete()
	inDispatch.requestDelete()
	inDispatch.mu.Lock()
	inDispatch.inDispatch = true
	inDispatch.mu.Unlock()

	var freed []string
	r.sweep(map[*entry[string]]struct{}{pending: {}}, func(s string) { freed = append(freed, s) })

	if len(freed) != 1 || freed[0] != "reap" {
		t.Fatalf("freed = %v, want [reap]", freed)
	}

	remaining := r.snapshot()
	if len(remaining) != 3 {
		t.Fatalf("remaining = %d entries, want 3", len(remaining))
	}
	for _, e := range remaining {
		if e == reap {
			t.Fatal("reap entry should have been removed from the registry")
		}
	}
	_ = keep
}

func TestRegistry_DrainAllIgnoresLifecycleFlags(t *testing.T) {
	var r registry[string]
	r.insert(0, 1, "active")
	busy := r.insert(0, 2, "busy")
	busy.mu.Lock()
	busy.inDispatch = true
	busy.mu.Unlock()

	var freed []string
	r.drainAll(func(s string) { freed = append(freed, s) })

	if len(freed) != 2 {
		t.Fatalf("drainAll freed %d entries, want 2", len(freed))
	}
	if len(r.snapshot()) != 0 {
		t.Fatal("registry should be empty after drainAll")
	}
}
