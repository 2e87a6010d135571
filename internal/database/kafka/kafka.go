package kafka

import (
	"Jarvis_Memory/internal/config"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaClient 持有记忆摄取主题的 reader 以及用于管理的连接。
// 句柄由调用方显式创建并注入，不使用包级单例。
type KafkaClient struct {
	Reader *kafka.Reader
	Conn   *kafka.Conn // 用于管理的连接
	Config *config.KafkaConfig
}

// Connect 初始化并返回一个 KafkaClient 实例。
// 首次调用时，它会连接到 Kafka 并在摄取主题不存在时自动创建它。
func Connect(cfg *config.KafkaConfig) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}
	if cfg.IngestTopic == "" {
		return nil, fmt.Errorf("未配置 Kafka 摄取主题")
	}

	// 1. 建立管理连接
	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka 初始化连接失败: %w", err)
	}

	// 2. 获取已存在的主题
	partitions, err := conn.ReadPartitions()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	exists := false
	for _, p := range partitions {
		if p.Topic == cfg.IngestTopic {
			exists = true
			break
		}
	}

	// 3. 摄取主题不存在时创建它
	if !exists {
		log.Printf("主题 '%s' 不存在，准备创建...", cfg.IngestTopic)
		err = conn.CreateTopics(kafka.TopicConfig{
			Topic:             cfg.IngestTopic,
			NumPartitions:     1, // 使用默认值
			ReplicationFactor: 1, // 使用默认值
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
		}
	}

	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "memory-ingest-group"
	}

	// 4. 创建用于消费的 Reader
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.IngestTopic,
		GroupID:     groupID,
		MinBytes:    10e3, // 10KB
		MaxBytes:    10e6, // 10MB
		MaxAttempts: 10,
		Dialer: &kafka.Dialer{
			Timeout: 10 * time.Second,
		},
	})

	return &KafkaClient{Reader: reader, Conn: conn, Config: cfg}, nil
}

// Close 安全地关闭 Kafka 连接。
func (c *KafkaClient) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Reader != nil {
		if err := c.Reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 Kafka reader 失败: %w", err))
		}
	}
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 Kafka 管理连接失败: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("关闭 Kafka 客户端时发生多个错误: %v", errs)
	}
	return nil
}

// HealthCheck 检查 Kafka 连接的健康状况。
func (c *KafkaClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.Conn == nil {
		return fmt.Errorf("kafka 客户端未初始化，无法进行健康检查")
	}
	_, err := c.Conn.Controller()
	return err
}
