package sync

import (
	"context"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

func newTestConsumer(store RowStore, local Region) (*Consumer, *Metrics) {
	metrics := NewMetrics()
	sink := NewSink(store, metrics, local)
	c := NewConsumer(ConsumerConfig{ClientID: "test", GroupID: "test"}, sink, local)
	return c, metrics
}

func TestConsumerHandleRejectsUsersTable(t *testing.T) {
	store := newFakeRowStore()
	c, _ := newTestConsumer(store, "china")

	record := &kgo.Record{
		Topic: "sync.users",
		Value: []byte(`{"op":"c","after":{"id":1,"username":"bob"},"_sync_origin":"india"}`),
	}
	c.handle(context.Background(), record)

	if len(store.upserts) != 0 {
		t.Fatal("users table must never be written by the consumer")
	}
}

func TestConsumerHandleAppliesLegitimateStockUpdate(t *testing.T) {
	store := newFakeRowStore()
	store.put(TableProducts, "7", Row{Exists: true, UpdatedAt: time.Unix(1704067200, 0).UTC(), Version: 1})
	c, metrics := newTestConsumer(store, "china")

	record := &kgo.Record{
		Topic: "sync.products",
		Value: []byte(`{"op":"u","after":{"id":7,"stock_quantity":8,"updated_at":1704067205000000,"version":2,"created_by_user_id":42,"username":"alice"},"_sync_origin":"india"}`),
	}
	c.handle(context.Background(), record)

	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	up := store.upserts[0]
	if columnIndex(up.columns, "username") != -1 {
		t.Error("username must never appear in the upsert column list")
	}
	idx := columnIndex(up.columns, "created_by_user_id")
	if idx == -1 || up.values[idx] != nil {
		t.Error("created_by_user_id must be nulled")
	}
	if metrics.Stats("india-to-china").TotalSyncs != 1 {
		t.Error("expected a sync event to be recorded")
	}
}

func TestConsumerHandleSkipsRapidEcho(t *testing.T) {
	store := newFakeRowStore()
	store.put(TableProducts, "7", Row{Exists: true, UpdatedAt: time.UnixMilli(1704067200500)})
	c, metrics := newTestConsumer(store, "china")

	record := &kgo.Record{
		Topic: "sync.products",
		Value: []byte(`{"op":"u","after":{"id":7,"stock_quantity":9,"updated_at":1704067200800000},"_sync_origin":"india"}`),
	}
	c.handle(context.Background(), record)

	if len(store.upserts) != 0 {
		t.Fatal("a rapid echo within the loop window must not be written")
	}
	if metrics.Stats("india-to-china").TotalSyncs != 0 {
		t.Error("a skipped change must not record a sync event")
	}
}

func TestConsumerHandleDeleteWinsRegardlessOfTimestamp(t *testing.T) {
	store := newFakeRowStore()
	store.put(TableProducts, "7", Row{Exists: true, UpdatedAt: time.Now()})
	c, _ := newTestConsumer(store, "china")

	record := &kgo.Record{
		Topic: "sync.products",
		Key:   []byte(`{"id":7}`),
		Value: []byte(`{"op":"d","_sync_origin":"india"}`),
	}
	c.handle(context.Background(), record)

	if len(store.deletes) != 1 || store.deletes[0] != "7" {
		t.Errorf("deletes = %v, want [7]", store.deletes)
	}
}

func TestConsumerHandleEchoOfOwnProductWriteRejected(t *testing.T) {
	store := newFakeRowStore()
	c, _ := newTestConsumer(store, "china")

	record := &kgo.Record{
		Topic: "sync.products",
		Value: []byte(`{"op":"u","after":{"id":7,"stock_quantity":10,"updated_at":1700000000000000},"_sync_origin":"china"}`),
	}
	c.handle(context.Background(), record)

	if len(store.upserts) != 0 {
		t.Fatal("an echo of our own region's write must not be applied")
	}
}

func TestConsumerHandleSkipsUnparseableMessageWithoutPanicking(t *testing.T) {
	store := newFakeRowStore()
	c, _ := newTestConsumer(store, "china")

	record := &kgo.Record{Topic: "sync.products", Value: []byte("not json")}
	c.handle(context.Background(), record) // must not panic; offset handling is the caller's job.

	if len(store.upserts) != 0 {
		t.Error("malformed payload must not produce a write")
	}
}
