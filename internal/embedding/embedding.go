package embedding

import (
	"Jarvis_Memory/internal/config"
	"fmt"
)

// NewEmdModel 根据配置创建并返回一个新的 Embedding 模型实例。
// 运行时只存在一个具体后端；协调器不会对提供商做任何分支判断。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(cfg *config.EmbeddingConfig) (Embedding, error) {
	// 根据提供商类型创建相应的 Embedding 模型实例。
	switch cfg.Provider {
	case "gemini":
		return NewGoogleModel(cfg.APIKey, cfg.Model)
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
