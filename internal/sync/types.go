// Package sync implements the inbound change processor: the core that
// decodes CDC envelopes from the peer region, applies policy and privacy
// rules, resolves write conflicts with local state, and materializes
// accepted changes into the local store.
package sync

import "time"

// Region identifies a replication endpoint. The closed set used in
// production is {india, china}, but the code accepts any two-element
// symmetric set supplied via configuration.
type Region string

// Table identifies a replicated table, derived from a topic name by
// stripping the "sync." prefix.
type Table string

const (
	TableUsers    Table = "users"
	TableProducts Table = "products"
	TableSales    Table = "sales"
)

// Op is a CDC operation code.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// parseOp maps the single-letter envelope code to an Op.
func parseOp(code string) (Op, bool) {
	switch code {
	case "c":
		return OpCreate, true
	case "u":
		return OpUpdate, true
	case "d":
		return OpDelete, true
	default:
		return "", false
	}
}

// Change is the normalized output of the Envelope Decoder.
type Change struct {
	Table             Table
	PrimaryKey        string
	Op                Op
	After             map[string]any
	SyncOrigin        Region
	SourceTimestampMs int64
	HasSourceTimestamp bool
	// ReceiptTime is stamped by the consumer when the record is pulled
	// off the bus, used as the latency fallback when the envelope
	// carries no source timestamp.
	ReceiptTime time.Time
}

// Row is the current local post-image of a replicated record.
type Row struct {
	Exists    bool
	UpdatedAt time.Time
	Version   int64
}

// Decision is the Policy Gate's verdict.
type Decision struct {
	Accept bool
	Reason string
}

// Resolution is the Conflict Resolver's verdict.
type Resolution struct {
	Apply  bool
	Reason string
}

// SyncEvent is an observability record emitted by the Sink Writer.
type SyncEvent struct {
	Source    Region
	Dest      Region
	Table     Table
	RecordID  string
	LatencyMs int64
	At        time.Time
}

// direction returns the metrics key "${source}-to-${destination}".
func direction(source, dest Region) string {
	return string(source) + "-to-" + string(dest)
}
