package sync

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/regiond/regiond/pkg/logging"
)

// microsecondThreshold is the boundary above which an integer column is
// interpreted as a microsecond epoch timestamp rather than a plain
// integer.
const microsecondThreshold = 100_000_000_000

// envelope is the raw shape accepted on the bus. Both the wrapped
// ({"payload": {...}}) and flat ({"op": ..., ...}) layouts decode into
// this one struct: Payload is populated in the wrapped case, and the
// flat-case fields are promoted into an equivalent payload by Decode().
type envelope struct {
	Payload *envelopePayload `json:"payload"`
	envelopePayload
}

type envelopePayload struct {
	Op         string         `json:"op"`
	After      map[string]any `json:"after"`
	SyncOrigin string         `json:"_sync_origin"`
}

type envelopeKey struct {
	ID any `json:"id"`
}

// DecodeError identifies why a message was skipped rather than
// processed. It is not a fatal error: the caller logs it and the
// Consumer Loop advances the offset.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return e.Reason }

var log = logging.GetDefault().Component("decoder")

// Decode parses raw message bytes into a normalized Change. A nil
// *Change with a non-nil error means "skip this message"; it is never a
// reason to stop the consumer.
func Decode(topic string, keyBytes, valueBytes []byte) (*Change, error) {
	if len(valueBytes) == 0 {
		// A null value is a compaction tombstone, not a decode failure.
		return nil, &DecodeError{Reason: "tombstone"}
	}

	var env envelope
	if err := json.Unmarshal(valueBytes, &env); err != nil {
		log.Warn("malformed envelope JSON", "topic", topic, "error", err)
		return nil, &DecodeError{Reason: fmt.Sprintf("malformed_json: %v", err)}
	}

	payload := env.envelopePayload
	if env.Payload != nil {
		payload = *env.Payload
	}

	op, ok := parseOp(payload.Op)
	if !ok {
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown_op: %q", payload.Op)}
	}

	if payload.SyncOrigin == "" {
		log.Warn("missing _sync_origin, skipping", "topic", topic)
		return nil, &DecodeError{Reason: "missing_sync_origin"}
	}

	table := Table(strings.TrimPrefix(topic, "sync."))

	primaryKey, err := decodePrimaryKey(keyBytes, payload.After)
	if err != nil {
		return nil, &DecodeError{Reason: "missing_id"}
	}

	change := &Change{
		Table:      table,
		PrimaryKey: primaryKey,
		Op:         op,
		After:      payload.After,
		SyncOrigin: Region(payload.SyncOrigin),
	}

	if ms, ok := sourceTimestampMs(payload.After); ok {
		change.SourceTimestampMs = ms
		change.HasSourceTimestamp = true
	}

	return change, nil
}

// decodePrimaryKey prefers key.id, falling back to after.id.
func decodePrimaryKey(keyBytes []byte, after map[string]any) (string, error) {
	if len(keyBytes) > 0 {
		var key envelopeKey
		if err := json.Unmarshal(keyBytes, &key); err == nil && key.ID != nil {
			return fmt.Sprintf("%v", key.ID), nil
		}
	}
	if after != nil {
		if id, ok := after["id"]; ok && id != nil {
			return fmt.Sprintf("%v", id), nil
		}
	}
	return "", &DecodeError{Reason: "missing_id"}
}

// sourceTimestampMs derives the event's origin timestamp from
// after.updated_at (preferred) or after.created_at, normalizing a
// microsecond epoch value down to milliseconds.
func sourceTimestampMs(after map[string]any) (int64, bool) {
	for _, col := range []string{"updated_at", "created_at"} {
		v, ok := after[col]
		if !ok {
			continue
		}
		n, ok := toInt64(v)
		if !ok {
			continue
		}
		if n > microsecondThreshold {
			n /= 1000
		}
		return n, true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
