package sync

import (
	"context"
	"time"
)

// RowStore is the narrow persistence interface the Sink Writer needs.
// The concrete implementation (internal/storage) backs it with
// pgxpool; tests back it with an in-memory fake, since no live
// Postgres is available in this environment.
type RowStore interface {
	GetRow(ctx context.Context, table Table, id string) (Row, error)
	Upsert(ctx context.Context, table Table, id string, columns []string, values []any, syncSource Region) error
	Delete(ctx context.Context, table Table, id string) error
}

// Sink executes the mutation chosen by the Conflict Resolver and
// records a Sync Event.
type Sink struct {
	store    RowStore
	metrics  *Metrics
	local    Region
	onRecord func(SyncEvent)
}

// NewSink constructs a Sink Writer bound to a RowStore and a Metrics
// store.
func NewSink(store RowStore, metrics *Metrics, local Region) *Sink {
	return &Sink{store: store, metrics: metrics, local: local}
}

// OnRecord registers a callback invoked with every SyncEvent recorded,
// used by cmd/regiond to fan events out over the observability
// WebSocket hub.
func (s *Sink) OnRecord(fn func(SyncEvent)) {
	s.onRecord = fn
}

// Apply executes c's mutation unconditionally, assuming the Policy Gate
// already accepted c and the Conflict Resolver decided to apply it; it
// does not consult either itself. columns/values are the privacy-filtered,
// schema-whitelisted INSERT column list (empty for deletes).
func (s *Sink) Apply(ctx context.Context, c *Change, columns []string, values []any) error {
	var err error
	switch c.Op {
	case OpDelete:
		err = s.store.Delete(ctx, c.Table, c.PrimaryKey)
	default:
		err = s.store.Upsert(ctx, c.Table, c.PrimaryKey, columns, values, c.SyncOrigin)
	}
	if err != nil {
		return err
	}

	s.recordMetrics(c)
	return nil
}

func (s *Sink) recordMetrics(c *Change) {
	now := time.Now()
	var latencyMs int64
	switch {
	case c.HasSourceTimestamp:
		latencyMs = now.UnixMilli() - c.SourceTimestampMs
	case !c.ReceiptTime.IsZero():
		latencyMs = now.UnixMilli() - c.ReceiptTime.UnixMilli()
	}
	event := SyncEvent{
		Source:    c.SyncOrigin,
		Dest:      s.local,
		Table:     c.Table,
		RecordID:  c.PrimaryKey,
		LatencyMs: latencyMs,
		At:        now,
	}
	s.metrics.Record(event)
	if s.onRecord != nil {
		s.onRecord(event)
	}
}
