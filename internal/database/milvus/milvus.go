package milvus

import (
	"Jarvis_Memory/internal/config"
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
// 集合级别的操作（建集合、写入、搜索）由 internal/vectorstore 完成，
// 这里只负责连接的生命周期管理。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// Connect 创建并返回一个 Milvus 客户端实例。
// 句柄由调用方显式持有并注入，不使用包级单例。
func Connect(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	// 使用配置中的地址创建 Milvus 客户端。
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	return &MilvusClient{Client: c, Config: cfg}, nil
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c != nil && c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	_, err := c.Client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}
