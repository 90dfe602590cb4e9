package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// flakyHandler fails the listed offsets a set number of times before succeeding.
type flakyHandler struct {
	mu       sync.Mutex
	failures map[int64]int
	seen     []int64
}

func (h *flakyHandler) Handle(_ context.Context, msg *Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.Offset)
	if h.failures[msg.Offset] > 0 {
		h.failures[msg.Offset]--
		return errors.New("ledger unavailable")
	}
	return nil
}

func newTestConsumer(h Handler) *Consumer {
	return &Consumer{
		handler:    h,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		minBackoff: time.Millisecond,
		maxBackoff: 4 * time.Millisecond,
	}
}

func records(offsets ...int64) []*kgo.Record {
	out := make([]*kgo.Record, 0, len(offsets))
	for _, o := range offsets {
		out = append(out, &kgo.Record{Topic: "domainvault.reconciliation", Offset: o})
	}
	return out
}

func TestFailedRecordIsRetriedBeforeLaterOnes(t *testing.T) {
	h := &flakyHandler{failures: map[int64]int{5: 3}}
	c := newTestConsumer(h)

	handled := c.handlePartition(context.Background(), records(4, 5, 6))

	require.Len(t, handled, 3)
	assert.Equal(t, []int64{4, 5, 5, 5, 5, 6}, h.seen)
}

func TestStoppingDuringRetryLeavesFailedRecordUncommitted(t *testing.T) {
	h := &flakyHandler{failures: map[int64]int{5: 1 << 30}}
	c := newTestConsumer(h)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	handled := c.handlePartition(ctx, records(4, 5, 6))

	require.Len(t, handled, 1)
	assert.Equal(t, int64(4), handled[0].Offset)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.NotContains(t, h.seen, int64(6))
}
