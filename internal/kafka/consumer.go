package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/amanigreeva/Sociosphere-sub001/internal/config"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg *config.Config) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.TopicIn,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: r}
}

// Start consumes until ctx is done, invoking handle per record. Read errors
// end the loop; the caller decides whether that is fatal.
func (c *Consumer) Start(ctx context.Context, handle func(key string, value []byte)) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}
		handle(string(m.Key), m.Value)
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
