package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Queue accepts entries for later settlement.
type Queue interface {
	Enqueue(ctx context.Context, entry Entry) error
}

// Ledger is the durable list operators work from.
type Ledger interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
}

// LedgerQueue writes straight to the ledger. Used when Kafka is not configured.
type LedgerQueue struct {
	ledger Ledger
}

func NewLedgerQueue(ledger Ledger) *LedgerQueue {
	return &LedgerQueue{ledger: ledger}
}

func (q *LedgerQueue) Enqueue(ctx context.Context, entry Entry) error {
	return q.ledger.Record(ctx, entry)
}

// MemoryLedger keeps entries in process. Recording the same id twice is a no-op.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

func (l *MemoryLedger) Record(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[entry.ID.String()]; !ok {
		l.entries[entry.ID.String()] = entry
	}
	return nil
}

// List returns entries newest first.
func (l *MemoryLedger) List(_ context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Producer is the subset of the Kafka producer the queue needs.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaQueue publishes entries keyed by entry id.
type KafkaQueue struct {
	producer Producer
	topic    string
}

func NewKafkaQueue(producer Producer, topic string) *KafkaQueue {
	return &KafkaQueue{producer: producer, topic: topic}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, entry Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal reconciliation entry: %w", err)
	}
	return q.producer.Produce(ctx, q.topic, []byte(entry.ID.String()), value)
}
