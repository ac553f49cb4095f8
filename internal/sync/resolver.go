package sync

// loopWindowMs is the loop-suppression window: a near-simultaneous echo
// this close to the local row's updated_at is assumed to be our own
// write returning through CDC.
const loopWindowMs = 1000

// tieWindowMs is the tie-break window. It is strictly smaller than
// loopWindowMs, and Δ<loopWindowMs is checked first, so every Δ that
// would fall in the tie window (including Tinc == Tlocal exactly) is
// already skipped as loop_prevention_rapid_update: the version
// tie-break branch is unreachable through Resolve. This is implemented
// as specified rather than "corrected" — see the open question in
// DESIGN.md.
const tieWindowMs = 100

// Resolve compares an incoming filtered change against the current
// local row and decides APPLY or SKIP.
func Resolve(local Row, c *Change, incomingUpdatedAtMs int64, incomingVersion int64) Resolution {
	if !local.Exists {
		if c.Op == OpDelete {
			return Resolution{Apply: true, Reason: "delete_of_absent"}
		}
		return Resolution{Apply: true, Reason: "new_record"}
	}

	if c.Op == OpDelete {
		return Resolution{Apply: true, Reason: "delete_operation"}
	}

	tLocal := local.UpdatedAt.UnixMilli()
	tInc := incomingUpdatedAtMs
	delta := tInc - tLocal
	if delta < 0 {
		delta = -delta
	}

	switch {
	case delta < loopWindowMs:
		return Resolution{Apply: false, Reason: "loop_prevention_rapid_update"}
	case tInc > tLocal:
		return Resolution{Apply: true, Reason: "newer_timestamp"}
	case delta < tieWindowMs:
		if incomingVersion > local.Version {
			return Resolution{Apply: true, Reason: "higher_version"}
		}
		return Resolution{Apply: false, Reason: "same_or_older_version"}
	default:
		return Resolution{Apply: false, Reason: "older_timestamp"}
	}
}
