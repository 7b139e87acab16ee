package forward

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shopify/sarama"

	"bobbin/internal/config"
	"bobbin/internal/hub"
	"bobbin/internal/logging"
)

// Forwarder sends each consumed entry to Kafka as a JSON message.
type Forwarder struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// New connects a synchronous producer using the [forward] settings.
func New(cfg *config.Config, logger *slog.Logger) (*Forwarder, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.Forward.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Net.DialTimeout = time.Duration(cfg.Forward.TimeoutSeconds) * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Forward.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("connect kafka brokers %v: %w", cfg.Forward.Brokers, err)
	}

	return &Forwarder{
		producer: producer,
		topic:    cfg.Forward.Topic,
		logger:   logger,
	}, nil
}

// Consume forwards one published entry. Failures never propagate.
func (f *Forwarder) Consume(entry hub.Entry) {
	data, err := json.Marshal(entry.Event)
	if err != nil {
		logging.WarnWithContext(f.logger, "failed to encode event for forwarding", "forward_encode_failed",
			logging.Uint64("seq", entry.Seq),
			logging.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: f.topic,
		Key:   sarama.StringEncoder(entry.Event.Identifier),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := f.producer.SendMessage(msg); err != nil {
		logging.WarnWithContext(f.logger, "failed to forward event", "forward_send_failed",
			logging.String(logging.FieldErrorHint, "check broker connectivity and topic configuration"),
			logging.String(logging.FieldImpact, "event is archived locally but missing from the topic"),
			logging.Uint64("seq", entry.Seq),
			logging.Error(err))
	}
}

// Close flushes and shuts down the producer.
func (f *Forwarder) Close() error {
	if f == nil || f.producer == nil {
		return nil
	}
	return f.producer.Close()
}
