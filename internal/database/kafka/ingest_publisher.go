package kafka

import (
	"Jarvis_Memory/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// IngestPublisher 封装了向记忆摄取主题发布消息的逻辑。
// 消息按 user_id 作为 key 发送，同一用户的记忆落在同一分区内保序。
type IngestPublisher struct {
	writer *kafka.Writer
}

// NewIngestPublisher 创建一个新的 IngestPublisher 实例。
func NewIngestPublisher(client *KafkaClient) *IngestPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      client.Config.Brokers,
		Topic:        client.Config.IngestTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	})
	return &IngestPublisher{writer: writer}
}

// Publish 将 IngestMessage 序列化为 JSON 并发送到摄取主题。
func (p *IngestPublisher) Publish(ctx context.Context, msg models.IngestMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ingest message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.UserID),
		Value: jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *IngestPublisher) Close() error {
	return p.writer.Close()
}
