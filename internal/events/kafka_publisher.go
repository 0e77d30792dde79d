// internal/events/kafka_publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaPublisher struct {
	stock  *kafka.Writer
	orders *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing stock movements and order
// status changes to their respective topics.
func NewKafkaPublisher(brokers []string, stockTopic, orderTopic string) Publisher {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
		}
	}

	return &kafkaPublisher{
		stock:  newWriter(stockTopic),
		orders: newWriter(orderTopic),
	}
}

func (p *kafkaPublisher) PublishStockMovement(ctx context.Context, event *StockMovement) error {
	return p.publish(ctx, p.stock, event.BookID.String(), event.Type, event)
}

func (p *kafkaPublisher) PublishOrderStatus(ctx context.Context, event *OrderStatusChange) error {
	return p.publish(ctx, p.orders, event.OrderID.String(), event.Type, event)
}

func (p *kafkaPublisher) publish(ctx context.Context, w *kafka.Writer, key, eventType string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("write %s event to kafka: %w", eventType, err)
	}

	return nil
}

func (p *kafkaPublisher) Close() error {
	if err := p.stock.Close(); err != nil {
		p.orders.Close()
		return err
	}
	return p.orders.Close()
}
