package kafka

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/aqi-advisory-service/internal/config"
	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// headerOrder fixes the order advisory headers are written in.
var headerOrder = []string{"category", "unsafe", "processed_at"}

// Writer produces advisories to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes advisories to the sink topic in a single
// WriteMessages call. Messages are keyed by reading ID.
func (w *Writer) LoadBatch(ctx context.Context, advisories []domain.Advisory) error {
	if len(advisories) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(advisories))
	for i := range advisories {
		msg, err := serializeToMessage(advisories[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("advisories published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an advisory into a Kafka message.
func serializeToMessage(adv domain.Advisory) (kafkago.Message, error) {
	out, err := domain.SerializeAdvisory(adv)
	if err != nil {
		return kafkago.Message{}, err
	}
	headers := make([]kafkago.Header, 0, len(headerOrder))
	for _, k := range headerOrder {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(out.Headers[k])})
	}
	return kafkago.Message{
		Key:     out.Key,
		Value:   out.Value,
		Headers: headers,
	}, nil
}
