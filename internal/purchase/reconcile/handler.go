package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"domainvault/internal/platform/kafka/consumer"
)

// TopicHandler moves entries from the reconciliation topic into the ledger.
type TopicHandler struct {
	ledger Ledger
	logger *slog.Logger
}

func NewTopicHandler(ledger Ledger, logger *slog.Logger) *TopicHandler {
	return &TopicHandler{ledger: ledger, logger: logger}
}

// Handle acknowledges malformed records after logging them; a ledger write
// failure is returned so the record is retried.
func (h *TopicHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	if _, err := uuid.Parse(string(msg.Key)); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: reconciliation record has invalid key",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: failed to unmarshal reconciliation entry",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	if err := h.ledger.Record(ctx, entry); err != nil {
		return fmt.Errorf("record reconciliation entry: %w", err)
	}
	h.logger.DebugContext(ctx, "recorded reconciliation entry",
		"entry_id", entry.ID,
		"outcome", string(entry.Outcome),
		"domain", entry.Domain,
	)
	return nil
}
