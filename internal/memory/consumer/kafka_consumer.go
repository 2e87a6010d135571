package consumer

import (
	"Jarvis_Memory/internal/database/kafka"
	"Jarvis_Memory/internal/memory/service"
	"Jarvis_Memory/internal/models"
	"Jarvis_Memory/pkg/logger"
	"context"
	"encoding/json"
	"errors"
)

// KafkaConsumer consumes ingestion messages and feeds them to the
// MemoryService. A malformed or failed message is logged and skipped;
// ingestion is at-least-once and AddMemory's vector upserts are idempotent,
// so redelivery is harmless at the index layer.
type KafkaConsumer struct {
	kafkaClient   *kafka.KafkaClient
	memoryService *service.MemoryService
	logger        *logger.Logger
}

// NewKafkaConsumer creates a new KafkaConsumer.
func NewKafkaConsumer(kafkaClient *kafka.KafkaClient, memoryService *service.MemoryService, logger *logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		kafkaClient:   kafkaClient,
		memoryService: memoryService,
		logger:        logger,
	}
}

// Start launches the consume loop. It returns when ctx is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) {
	go func() {
		for {
			msg, err := c.kafkaClient.Reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to fetch message")
				continue
			}

			var ingest models.IngestMessage
			if err := json.Unmarshal(msg.Value, &ingest); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to unmarshal ingest message")
				if err := c.kafkaClient.Reader.CommitMessages(ctx, msg); err != nil {
					c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to commit message")
				}
				continue
			}

			if _, err := c.memoryService.AddMemory(ctx, ingest.Content, ingest.Type, ingest.UserID); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to add memory")
				continue
			}

			if err := c.kafkaClient.Reader.CommitMessages(ctx, msg); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to commit message")
			}
		}
	}()
}
