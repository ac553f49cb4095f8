package sync

import "testing"

func TestDecodeWrappedEnvelope(t *testing.T) {
	value := []byte(`{"payload":{"op":"u","after":{"id":7,"stock_quantity":8,"updated_at":1704067205000000},"_sync_origin":"india"}}`)
	key := []byte(`{"id":7}`)

	c, err := Decode("sync.products", key, value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Table != TableProducts {
		t.Errorf("table = %q, want products", c.Table)
	}
	if c.PrimaryKey != "7" {
		t.Errorf("primaryKey = %q, want 7", c.PrimaryKey)
	}
	if c.Op != OpUpdate {
		t.Errorf("op = %q, want update", c.Op)
	}
	if c.SyncOrigin != "india" {
		t.Errorf("syncOrigin = %q, want india", c.SyncOrigin)
	}
	if !c.HasSourceTimestamp || c.SourceTimestampMs != 1704067205000 {
		t.Errorf("sourceTimestampMs = %d (has=%v), want 1704067205000", c.SourceTimestampMs, c.HasSourceTimestamp)
	}
}

func TestDecodeFlatEnvelope(t *testing.T) {
	value := []byte(`{"op":"c","after":{"id":9},"_sync_origin":"china"}`)

	c, err := Decode("sync.sales", nil, value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Table != TableSales || c.Op != OpCreate || c.PrimaryKey != "9" {
		t.Errorf("unexpected change: %+v", c)
	}
}

func TestDecodeTombstoneSkipped(t *testing.T) {
	_, err := Decode("sync.products", []byte(`{"id":7}`), nil)
	if err == nil {
		t.Fatal("expected tombstone to be skipped")
	}
}

func TestDecodeMissingSyncOriginSkipped(t *testing.T) {
	value := []byte(`{"op":"u","after":{"id":1}}`)
	_, err := Decode("sync.products", nil, value)
	if err == nil {
		t.Fatal("expected missing sync origin to be skipped")
	}
}

func TestDecodeMissingIDSkipped(t *testing.T) {
	value := []byte(`{"op":"c","after":{},"_sync_origin":"india"}`)
	_, err := Decode("sync.products", nil, value)
	if err == nil {
		t.Fatal("expected missing id to be skipped")
	}
}

func TestDecodeMalformedJSONSkipped(t *testing.T) {
	_, err := Decode("sync.products", nil, []byte(`not json`))
	if err == nil {
		t.Fatal("expected malformed JSON to be skipped")
	}
}

func TestDecodeUsesCreatedAtFallback(t *testing.T) {
	value := []byte(`{"op":"c","after":{"id":1,"created_at":1700000000000000},"_sync_origin":"india"}`)
	c, err := Decode("sync.sales", nil, value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.HasSourceTimestamp || c.SourceTimestampMs != 1700000000000 {
		t.Errorf("sourceTimestampMs = %d (has=%v), want 1700000000000", c.SourceTimestampMs, c.HasSourceTimestamp)
	}
}
