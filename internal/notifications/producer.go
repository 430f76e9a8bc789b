package notifications

import (
	"context"
	"fmt"
	"time"

	"busseat/internal/seats"
	"busseat/internal/shared/config"
	"busseat/pkg/logger"

	"github.com/IBM/sarama"
)

// BookingProducer publishes booking events and owns the broker connection
type BookingProducer interface {
	seats.BookingPublisher
	Close() error
}

// KafkaBookingProducer handles publishing booking events to Kafka
type KafkaBookingProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewSaramaConfig returns the producer settings used for booking events
func NewSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	// Idempotent producers need at least one retry
	saramaConfig.Producer.Retry.Max = max(cfg.RetryMax, 1)
	if cfg.Timeout > 0 {
		saramaConfig.Producer.Timeout = cfg.Timeout
	}
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keeps a run's events on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	return saramaConfig
}

// NewKafkaBookingProducer connects a sync producer to the configured brokers
func NewKafkaBookingProducer(cfg config.KafkaConfig) (*KafkaBookingProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.GetDefault().Info("Kafka booking producer created", "brokers", cfg.Brokers, "topic", cfg.BookingTopic)
	return NewBookingProducer(producer, cfg.BookingTopic), nil
}

// NewBookingProducer wraps an existing sync producer
func NewBookingProducer(producer sarama.SyncProducer, topic string) *KafkaBookingProducer {
	return &KafkaBookingProducer{
		producer: producer,
		topic:    topic,
		logger:   logger.GetDefault(),
	}
}

func (p *KafkaBookingProducer) PublishBookingConfirmed(ctx context.Context, booking *seats.BookingResponse) error {
	event := NewBookingConfirmedEvent(booking)

	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(event),
		Timestamp: event.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send booking event to Kafka: %w", err)
	}

	p.logger.DebugContext(ctx, "Booking event published",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"booking_id", event.BookingID.String(),
	)
	return nil
}

func createHeaders(event *BookingEvent) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("booking_id"), Value: []byte(event.BookingID.String())},
		{Key: []byte("run_id"), Value: []byte(event.RunID.String())},
		{Key: []byte("producer"), Value: []byte("busseat-seats")},
		{Key: []byte("created_at"), Value: []byte(event.CreatedAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (p *KafkaBookingProducer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		p.logger.Info("Kafka booking producer closed")
	}
	return nil
}

// LogProducer stands in for Kafka when it is disabled; it only logs
type LogProducer struct {
	logger *logger.Logger
}

func NewLogProducer() *LogProducer {
	return &LogProducer{logger: logger.GetDefault()}
}

func (p *LogProducer) PublishBookingConfirmed(ctx context.Context, booking *seats.BookingResponse) error {
	p.logger.InfoContext(ctx, "Booking confirmed (event publishing disabled)",
		"booking_id", booking.ID.String(),
		"run_id", booking.RunID.String(),
		"seat_number", booking.SeatNumber,
	)
	return nil
}

func (p *LogProducer) Close() error { return nil }

// NewProducer picks Kafka when enabled, otherwise the log-only producer
func NewProducer(cfg config.KafkaConfig) (BookingProducer, error) {
	if !cfg.Enabled {
		return NewLogProducer(), nil
	}
	return NewKafkaBookingProducer(cfg)
}
