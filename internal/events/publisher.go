// Package events publishes entity-change notifications to Kafka so
// downstream consumers can react to store mutations.
package events

import (
	"context"
	"strconv"
	"time"

	"bridgeconnector/internal/commerce"
	"bridgeconnector/internal/logger"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

const (
	Topic        = "product-events"
	publishLimit = 5 * time.Second
)

type message struct {
	Entity    string `json:"entity"`
	Operation string `json:"operation"`
	EntityID  int64  `json:"entity_id"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher writes change events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

func NewPublisher(brokers []string, log *logger.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		log: log,
	}
}

// AfterWrite satisfies commerce.PostWriteHook. Delivery is best effort: a
// broker outage must never fail the store mutation that triggered it.
func (p *Publisher) AfterWrite(change commerce.Change) {
	payload, err := json.Marshal(message{
		Entity:    string(change.Kind),
		Operation: change.Op,
		EntityID:  change.ID,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		p.log.Error("event encode failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishLimit)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(string(change.Kind) + ":" + strconv.FormatInt(change.ID, 10)),
		Value: payload,
	})
	if err != nil {
		p.log.Warn("event publish failed for %s %d: %v", change.Kind, change.ID, err)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
