package sync

import (
	"testing"
	"time"
)

func TestResolveNewRecordWhenLocalMissing(t *testing.T) {
	c := &Change{Op: OpUpdate}
	r := Resolve(Row{Exists: false}, c, 1700000000000, 0)
	if !r.Apply || r.Reason != "new_record" {
		t.Errorf("got apply=%v reason=%q, want apply=true reason=new_record", r.Apply, r.Reason)
	}
}

func TestResolveDeleteOfAbsentRecord(t *testing.T) {
	c := &Change{Op: OpDelete}
	r := Resolve(Row{Exists: false}, c, 0, 0)
	if !r.Apply || r.Reason != "delete_of_absent" {
		t.Errorf("got apply=%v reason=%q, want apply=true reason=delete_of_absent", r.Apply, r.Reason)
	}
}

func TestResolveDeleteAlwaysApplies(t *testing.T) {
	c := &Change{Op: OpDelete}
	local := Row{Exists: true, UpdatedAt: time.UnixMilli(2000000000000)}
	r := Resolve(local, c, 0, 0)
	if !r.Apply || r.Reason != "delete_operation" {
		t.Errorf("got apply=%v reason=%q, want apply=true reason=delete_operation", r.Apply, r.Reason)
	}
}

func TestResolveLoopPreventionRapidUpdate(t *testing.T) {
	// local.UpdatedAt = 1704067200500ms, incoming = 1704067200800ms; delta=300ms < 1000ms.
	local := Row{Exists: true, UpdatedAt: time.UnixMilli(1704067200500)}
	c := &Change{Op: OpUpdate}
	r := Resolve(local, c, 1704067200800, 0)
	if r.Apply || r.Reason != "loop_prevention_rapid_update" {
		t.Errorf("got apply=%v reason=%q, want apply=false reason=loop_prevention_rapid_update", r.Apply, r.Reason)
	}
}

func TestResolveNewerTimestampApplies(t *testing.T) {
	local := Row{Exists: true, UpdatedAt: time.UnixMilli(1704067200000)}
	c := &Change{Op: OpUpdate}
	r := Resolve(local, c, 1704067210000, 0)
	if !r.Apply || r.Reason != "newer_timestamp" {
		t.Errorf("got apply=%v reason=%q, want apply=true reason=newer_timestamp", r.Apply, r.Reason)
	}
}

func TestResolveOlderTimestampSkips(t *testing.T) {
	local := Row{Exists: true, UpdatedAt: time.UnixMilli(1704067210000)}
	c := &Change{Op: OpUpdate}
	r := Resolve(local, c, 1704067200000, 0)
	if r.Apply || r.Reason != "older_timestamp" {
		t.Errorf("got apply=%v reason=%q, want apply=false reason=older_timestamp", r.Apply, r.Reason)
	}
}

// An exact timestamp tie has delta=0 < loopWindowMs, so the loop window
// wins before the version tie-break is consulted, whatever the versions.
func TestResolveExactTieHigherVersionIsLoopSuppressed(t *testing.T) {
	local := Row{Exists: true, UpdatedAt: time.UnixMilli(1704067200000), Version: 1}
	c := &Change{Op: OpUpdate}
	r := Resolve(local, c, 1704067200000, 2)
	if r.Apply || r.Reason != "loop_prevention_rapid_update" {
		t.Errorf("got apply=%v reason=%q, want apply=false reason=loop_prevention_rapid_update", r.Apply, r.Reason)
	}
}

func TestResolveExactTieSameOrOlderVersionIsLoopSuppressed(t *testing.T) {
	local := Row{Exists: true, UpdatedAt: time.UnixMilli(1704067200000), Version: 2}
	c := &Change{Op: OpUpdate}
	r := Resolve(local, c, 1704067200000, 1)
	if r.Apply || r.Reason != "loop_prevention_rapid_update" {
		t.Errorf("got apply=%v reason=%q, want apply=false reason=loop_prevention_rapid_update", r.Apply, r.Reason)
	}
}
