package dispatchloop

import "testing"

func TestFDTable_RegisterUnregister(t *testing.T) {
	var tbl fdTable
	tbl.register(3, EventRead)
	tbl.register(4, EventWrite)

	tbl.unregister(3, EventRead)

	snap := tbl.snapshotForPoll()
	if len(snap) != 1 || snap[0].fd != 4 {
		t.Fatalf("snapshot = %+v, want only fd 4", snap)
	}
}

func TestFDTable_SnapshotForPollResetsRevents(t *testing.T) {
	var tbl fdTable
	tbl.register(1, EventRead)
	tbl.mergeRevents([]pollFD{{fd: 1, events: EventRead, revents: EventRead}})

	snap := tbl.snapshotForPoll()
	if snap[0].revents != 0 {
		t.Fatal("snapshotForPoll scratch must start with revents cleared")
	}
	// the live table itself should still carry the previously merged bit.
	if tbl.wakeRevents() != EventRead {
		t.Fatal("snapshotForPoll must not mutate the live table")
	}
}

func TestFDTable_MergeRevents_DuplicateFDBothUpdated(t *testing.T) {
	var tbl fdTable
	tbl.register(0, EventRead) // wake slot, unrelated to this fd
	tbl.register(5, EventRead)
	tbl.register(5, EventRead) // deliberate duplicate (fd, events) pair

	tbl.mergeRevents([]pollFD{{fd: 5, events: EventRead, revents: EventRead}})

	count := 0
	for _, e := range tbl.nonWakeSnapshot() {
		if e.fd == 5 {
			if e.revents != EventRead {
				t.Fatalf("duplicate entry missed merge: %+v", e)
			}
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected both duplicate fd=5 entries to receive revents, got %d", count)
	}
}

func TestFDTable_WakeRevents(t *testing.T) {
	var tbl fdTable
	tbl.register(9, EventRead)
	if tbl.wakeRevents() != 0 {
		t.Fatal("wakeRevents should start at zero")
	}
	tbl.mergeRevents([]pollFD{{fd: 9, events: EventRead, revents: EventRead}})
	if tbl.wakeRevents() != EventRead {
		t.Fatal("wakeRevents should reflect index 0's merged revents")
	}
}

func TestFDTable_NonWakeSnapshotExcludesIndexZero(t *testing.T) {
	var tbl fdTable
	tbl.register(0, EventRead)
	tbl.register(1, EventRead)
	tbl.register(2, EventWrite)

	snap := tbl.nonWakeSnapshot()
	if len(snap) != 2 {
		t.Fatalf("nonWakeSnapshot = %d entries, want 2", len(snap))
	}
	for _, e := range snap {
		if e.fd == 0 {
			t.Fatal("nonWakeSnapshot must exclude the wake slot")
		}
	}
}

func TestFDTable_NonWakeSnapshotEmptyWhenOnlyWakeRegistered(t *testing.T) {
	var tbl fdTable
	tbl.register(0, EventRead)
	if snap := tbl.nonWakeSnapshot(); snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
}
