package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/internal/ledger"
)

// Event types
const (
	EventLedgerEntry = "ledger.entry"
	EventRunSummary  = "reconciliation.summary"
)

// Event is the JSON payload of every message
type Event struct {
	Type    string          `json:"type"`
	RunID   string          `json:"run_id"`
	Entry   *ledger.Entry   `json:"entry,omitempty"`
	Summary *domain.Summary `json:"summary,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes the ledger entries of a result, one message per entry keyed
// by its hash, followed by a run summary. It implements domain.LedgerWriter.
type Publisher struct {
	writer messageWriter
	mapper ledger.AccountMapper
	logger *slog.Logger
}

var _ domain.LedgerWriter = (*Publisher)(nil)

// NewPublisher creates a Publisher writing to topic on the given brokers
func NewPublisher(brokers []string, topic string, mapper ledger.AccountMapper, logger *slog.Logger) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, mapper, logger)
}

func newPublisher(w messageWriter, mapper ledger.AccountMapper, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer: w,
		mapper: mapper,
		logger: logger.With("system", "kafka"),
	}
}

// Write implements domain.LedgerWriter
func (p *Publisher) Write(ctx context.Context, result *domain.ReconciliationResult) error {
	msgs, err := p.messages(result)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing %d messages: %w", len(msgs), err)
	}

	p.logger.Info("Published reconciliation events", "run_id", result.RunID, "messages", len(msgs))
	return nil
}

func (p *Publisher) messages(result *domain.ReconciliationResult) ([]kafka.Message, error) {
	entries, err := ledger.BuildEntries(result, p.mapper)
	if err != nil {
		return nil, fmt.Errorf("building ledger entries: %w", err)
	}

	msgs := make([]kafka.Message, 0, len(entries)+1)
	for i := range entries {
		msg, err := message(entries[i].Hash, Event{Type: EventLedgerEntry, RunID: result.RunID, Entry: &entries[i]})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	summary := result.Summary()
	msg, err := message(result.RunID, Event{Type: EventRunSummary, RunID: result.RunID, Summary: &summary})
	if err != nil {
		return nil, err
	}

	return append(msgs, msg), nil
}

func message(key string, event Event) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	return kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: []kafka.Header{{Key: "type", Value: []byte(event.Type)}},
	}, nil
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
