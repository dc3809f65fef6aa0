// Package kafka is the optional record sink: each stream gets its own topic
// and generated records are produced to it as JSON.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

type Handler struct {
	brokers []string
}

func NewHandler(brokers []string) *Handler {
	return &Handler{
		brokers: brokers,
	}
}

func (h *Handler) createTopicIfNotExists(client *kgo.Client, topic string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	createReq := &kmsg.CreateTopicsRequest{
		Topics: []kmsg.CreateTopicsRequestTopic{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		},
		ValidateOnly: false,
	}

	resp, err := createReq.RequestWith(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	for _, topic := range resp.Topics {
		if topic.ErrorCode != 0 && topic.ErrorCode != 36 { // 36 is topic already exists
			return fmt.Errorf("failed to create topic %s: %v", topic.Topic, topic.ErrorCode)
		}
	}

	return nil
}

// TopicFor names the per-stream topic.
func (h *Handler) TopicFor(streamID string) string {
	return "records-" + streamID
}

// NewSink builds a producer client with the stream's topic already created.
func (h *Handler) NewSink(streamID string) (*kgo.Client, error) {
	producer, err := kgo.NewClient(
		kgo.SeedBrokers(h.brokers...),
		kgo.ProducerBatchMaxBytes(2*1024*1024),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RetryTimeout(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	if err := h.createTopicIfNotExists(producer, h.TopicFor(streamID)); err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	return producer, nil
}

// ProduceRecord publishes one serialized record to the stream's topic.
func (h *Handler) ProduceRecord(ctx context.Context, producer *kgo.Client, streamID string, data []byte) error {
	record := &kgo.Record{
		Topic: h.TopicFor(streamID),
		Value: data,
	}

	result := producer.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("failed to produce record: %w", err)
	}

	return nil
}
