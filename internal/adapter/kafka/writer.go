package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/exposure-keys-etl/internal/config"
	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes key results to a Kafka topic.
// It implements pipeline.KeysLoader.
type Writer struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured keys topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaKeysTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, cfg.BatchSize, logger)
}

func newWriter(w messageWriter, batchSize int, logger *slog.Logger) *Writer {
	return &Writer{writer: w, batchSize: max(batchSize, 1), logger: logger}
}

// LoadKeys publishes every result of a run in BATCH_SIZE chunks, keyed by
// location and coverage.
func (w *Writer) LoadKeys(ctx context.Context, run domain.Run, results []domain.ResultRecord) error {
	for start := 0; start < len(results); start += w.batchSize {
		end := min(start+w.batchSize, len(results))
		msgs := make([]kafkago.Message, 0, end-start)
		for _, r := range results[start:end] {
			msg, err := serializeToMessage(run, r)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish keys %d-%d: %w", start, end, err)
		}
	}
	w.logger.Info("key results published", "run_id", run.ID, "messages", len(results))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ResultRecord into a Kafka message.
func serializeToMessage(run domain.Run, r domain.ResultRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize key result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.LocID + "-" + strconv.Itoa(r.CoverageType)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(r.Status)},
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "processed_at", Value: []byte(run.StartedAt.Format(time.RFC3339))},
		},
	}, nil
}
