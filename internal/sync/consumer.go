package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/regiond/regiond/pkg/logging"
)

// Topics subscribed at startup. fromBeginning is always false: the
// consumer group only tails live records.
var Topics = []string{"sync.users", "sync.products", "sync.sales"}

// Reconnect policy for the bus client, adapted from the teacher's
// internal/node/retry_worker.go calculateNextRetry.
const (
	reconnectInitial    = 300 * time.Millisecond
	reconnectMultiplier = 2.0
	reconnectCap        = 30 * time.Second
	reconnectMaxAttempts = 15
)

// ConsumerConfig configures the bus client and the consumer group.
type ConsumerConfig struct {
	Brokers  []string
	ClientID string
	GroupID  string
}

// Consumer is the single cooperative worker that drives
// Decode -> Gate -> Resolve -> Filter -> Sink for every record on its
// assigned partitions, strictly in partition order.
type Consumer struct {
	cfg     ConsumerConfig
	client  *kgo.Client
	sink    *Sink
	local   Region
	log     *logging.Logger
}

// NewConsumer constructs a Consumer. Dial() must be called before Run.
func NewConsumer(cfg ConsumerConfig, sink *Sink, local Region) *Consumer {
	return &Consumer{
		cfg:   cfg,
		sink:  sink,
		local: local,
		log:   logging.GetDefault().Component("consumer"),
	}
}

// Dial connects to the bus with exponential backoff. Per spec.md §6,
// a startup failure here is not fatal to the whole process: the
// caller logs the error and continues operating without sync, but a
// Dial error after the retry budget is exhausted is still returned so
// the caller can decide how to surface it.
func (c *Consumer) Dial(ctx context.Context) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.cfg.Brokers...),
		kgo.ClientID(c.cfg.ClientID),
		kgo.ConsumerGroup(c.cfg.GroupID),
		kgo.ConsumeTopics(Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.DisableAutoCommit(),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
	}

	backoff := reconnectInitial
	var lastErr error
	for attempt := 0; attempt < reconnectMaxAttempts; attempt++ {
		client, err := kgo.NewClient(opts...)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx)
			cancel()
			if err == nil {
				c.client = client
				return nil
			}
			client.Close()
		}

		lastErr = err
		c.log.Warn("bus connect attempt failed", "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * reconnectMultiplier)
		if backoff > reconnectCap {
			backoff = reconnectCap
		}
	}

	return fmt.Errorf("bus unreachable after %d attempts: %w", reconnectMaxAttempts, lastErr)
}

// Run pulls fetches until ctx is cancelled. It never wedges on a
// poison message: decode, policy, and resolver failures are logged and
// the offset still advances.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.Error("fetch error", "topic", topic, "partition", partition, "error", err)
		})

		var toCommit []*kgo.Record
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			for _, record := range p.Records {
				c.handle(ctx, record)
				toCommit = append(toCommit, record)
			}
		})

		if len(toCommit) > 0 {
			if err := c.client.CommitRecords(ctx, toCommit...); err != nil {
				c.log.Error("commit offsets failed", "error", err)
			}
		}
	}
}

// handle runs the full Decode -> Gate -> Resolve -> Filter -> Sink
// pipeline for one record. All failures are logged and swallowed: the
// offset advances regardless (see Run and spec.md §7).
func (c *Consumer) handle(ctx context.Context, record *kgo.Record) {
	change, err := Decode(record.Topic, record.Key, record.Value)
	if err != nil {
		c.log.Debug("skipping message", "topic", record.Topic, "reason", err)
		return
	}
	change.ReceiptTime = time.Now()

	decision := Gate(c.local, change)
	if !decision.Accept {
		c.log.Debug("policy rejected", "table", change.Table, "reason", decision.Reason)
		return
	}

	local, err := c.sink.store.GetRow(ctx, change.Table, change.PrimaryKey)
	if err != nil {
		c.log.Error("failed to read local row", "table", change.Table, "id", change.PrimaryKey, "error", err)
		return
	}

	incomingMs := change.SourceTimestampMs
	incomingVersion := int64(0)
	if v, ok := toInt64(change.After["version"]); ok {
		incomingVersion = v
	}

	resolution := Resolve(local, change, incomingMs, incomingVersion)
	c.log.Debug("resolved", "table", change.Table, "id", change.PrimaryKey, "apply", resolution.Apply, "reason", resolution.Reason)
	if !resolution.Apply {
		return
	}

	var columns []string
	var values []any
	if change.Op != OpDelete {
		filteredCols, filteredVals := Filter(change.After)
		var dropped []string
		columns, values, dropped = whitelist(change.Table, filteredCols, filteredVals)
		if len(dropped) > 0 {
			c.log.Warn("dropping unknown columns", "table", change.Table, "columns", dropped)
		}
	}

	if err := c.sink.Apply(ctx, change, columns, values); err != nil {
		c.log.Error("sink write failed", "table", change.Table, "id", change.PrimaryKey, "error", err)
		return
	}
}

// Close releases the bus client.
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
