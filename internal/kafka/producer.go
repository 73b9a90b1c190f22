package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/amanigreeva/Sociosphere-sub001/internal/config"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg *config.Config) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.TopicOut,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w}
}

// PublishEvent emits a chat event keyed by conversation id so all events of
// one conversation land on the same partition, in order.
func (p *Producer) PublishEvent(ctx context.Context, ev *models.Envelope) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.ConversationID),
		Value: value,
		Time:  time.Now(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error { return p.writer.Close() }
