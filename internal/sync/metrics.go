package sync

import (
	"strings"
	gosync "sync"
	"time"
)

const (
	ringCapacity      = 100
	recordMapCapacity = 1000
)

// recordKey addresses the per-record map by (table, id).
type recordKey struct {
	table Table
	id    string
}

// Metrics is a thread-safe, in-process observability sink. It keeps a
// bounded ring buffer of events per direction and a bounded map of the
// most recent event per (table, id). All aggregates in Stats are
// computed on demand from the ring contents, never maintained as
// running totals.
type Metrics struct {
	mu         gosync.Mutex
	rings      map[string][]SyncEvent
	perRecord  map[recordKey]SyncEvent
	recordFIFO []recordKey
}

// NewMetrics constructs an empty Metrics store.
func NewMetrics() *Metrics {
	return &Metrics{
		rings:     make(map[string][]SyncEvent),
		perRecord: make(map[recordKey]SyncEvent),
	}
}

// Record appends e to its direction's ring (evicting the oldest entry
// once the ring is at capacity) and updates the per-record map
// (evicting the oldest tracked record on insert-overflow).
func (m *Metrics) Record(e SyncEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := direction(e.Source, e.Dest)
	ring := m.rings[dir]
	ring = append(ring, e)
	if len(ring) > ringCapacity {
		ring = ring[len(ring)-ringCapacity:]
	}
	m.rings[dir] = ring

	key := recordKey{table: e.Table, id: e.RecordID}
	if _, exists := m.perRecord[key]; !exists {
		if len(m.recordFIFO) >= recordMapCapacity {
			oldest := m.recordFIFO[0]
			m.recordFIFO = m.recordFIFO[1:]
			delete(m.perRecord, oldest)
		}
		m.recordFIFO = append(m.recordFIFO, key)
	}
	m.perRecord[key] = e
}

// Stats is the aggregate view returned by GET /api/stats/sync.
type Stats struct {
	Direction         string      `json:"direction"`
	ReceivesFrom      string      `json:"receives_from"`
	TotalSyncs        int         `json:"totalSyncs"`
	AvgLatencyMs      float64     `json:"avgLatencyMs"`
	MinLatencyMs      int64       `json:"minLatencyMs"`
	MaxLatencyMs      int64       `json:"maxLatencyMs"`
	LastSyncTime      *time.Time  `json:"lastSyncTime"`
	LastSyncLatencyMs int64       `json:"lastSyncLatencyMs"`
	SyncsLastMinute   int         `json:"syncsLastMinute"`
	AvgLastMinuteMs   float64     `json:"avgLastMinuteMs"`
	RecentSyncs       []SyncEvent `json:"recentSyncs"`
}

// Stats computes the aggregate stats for a direction from its ring
// buffer contents.
func (m *Metrics) Stats(direction string) Stats {
	m.mu.Lock()
	ring := append([]SyncEvent(nil), m.rings[direction]...)
	m.mu.Unlock()

	stats := Stats{Direction: direction, ReceivesFrom: receivesFrom(direction)}
	if len(ring) == 0 {
		return stats
	}

	stats.TotalSyncs = len(ring)
	stats.MinLatencyMs = ring[0].LatencyMs
	stats.MaxLatencyMs = ring[0].LatencyMs
	var sum int64
	cutoff := time.Now().Add(-time.Minute)
	var lastMinuteSum int64
	var lastMinuteCount int

	for _, e := range ring {
		sum += e.LatencyMs
		if e.LatencyMs < stats.MinLatencyMs {
			stats.MinLatencyMs = e.LatencyMs
		}
		if e.LatencyMs > stats.MaxLatencyMs {
			stats.MaxLatencyMs = e.LatencyMs
		}
		if e.At.After(cutoff) {
			lastMinuteSum += e.LatencyMs
			lastMinuteCount++
		}
	}
	stats.AvgLatencyMs = float64(sum) / float64(len(ring))
	stats.SyncsLastMinute = lastMinuteCount
	if lastMinuteCount > 0 {
		stats.AvgLastMinuteMs = float64(lastMinuteSum) / float64(lastMinuteCount)
	}

	last := ring[len(ring)-1]
	lastAt := last.At
	stats.LastSyncTime = &lastAt
	stats.LastSyncLatencyMs = last.LatencyMs

	recentCount := len(ring)
	if recentCount > 10 {
		recentCount = 10
	}
	recent := make([]SyncEvent, recentCount)
	for i := 0; i < recentCount; i++ {
		recent[i] = ring[len(ring)-1-i]
	}
	stats.RecentSyncs = recent

	return stats
}

// receivesFrom extracts the source region from a "${source}-to-${dest}"
// direction key, as built by direction().
func receivesFrom(direction string) string {
	source, _, ok := strings.Cut(direction, "-to-")
	if !ok {
		return ""
	}
	return source
}

// RecordSyncTime returns the last sync event for (table, id), if any.
func (m *Metrics) RecordSyncTime(table Table, id string) (SyncEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.perRecord[recordKey{table: table, id: id}]
	return e, ok
}
