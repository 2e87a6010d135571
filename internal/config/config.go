package config

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// MilvusConfig 定义了 Milvus 向量数据库的连接和集合配置。
type MilvusConfig struct {
	Address            string `yaml:"address"`            // Milvus 服务地址
	MemoryCollection   string `yaml:"memoryCollection"`   // 语义记忆集合名称
	CalendarCollection string `yaml:"calendarCollection"` // 日历事件集合名称
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`     // Kafka Broker 地址列表
	IngestTopic string   `yaml:"ingestTopic"` // 记忆摄取主题
	GroupID     string   `yaml:"groupID"`     // 消费者组 ID
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"` // Milvus 数据库配置
	Redis  RedisConfig  `yaml:"redis"`  // Redis 数据库配置
	MySQL  MySQLConfig  `yaml:"mysql"`  // MySQL 数据库配置
	Kafka  KafkaConfig  `yaml:"kafka"`  // Kafka 消息队列配置
}

// EmbeddingConfig 包含了 Embedding 提供商的配置。
// 运行时只会根据 provider 选择一个提供商，协调器不感知具体后端。
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`  // Embedding提供商 (例如: "openai", "gemini", "ollama")
	Model     string `yaml:"model"`     // 模型名称 (例如: "text-embedding-ada-002")
	APIKey    string `yaml:"apiKey"`    // API 密钥
	BaseURL   string `yaml:"baseURL"`   // 服务基础 URL (ollama 等本地服务需要)
	Dimension int    `yaml:"dimension"` // 向量维度 (text-embedding-ada-002 为 1536)
}

// CalendarConfig 定义了外部日历提供商的配置。
type CalendarConfig struct {
	Provider   string `yaml:"provider"`   // 日历提供商 (目前支持: "google")
	CalendarID string `yaml:"calendarID"` // 默认日历 ID (例如: "primary")
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
	ListenAddr  string `yaml:"listenAddr"`  // HTTP 监听地址
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App       AppInfo         `yaml:"app"`       // 应用程序信息
	Embedding EmbeddingConfig `yaml:"embedding"` // Embedding 配置部分
	Calendar  CalendarConfig  `yaml:"calendar"`  // 外部日历配置
	Logger    LoggerConfig    `yaml:"logger"`    // 日志记录器配置
	Databases DatabaseConfigs `yaml:"databases"` // 数据库配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	err = yaml.Unmarshal(yamlFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults 为缺省字段填充默认值。
func applyDefaults(cfg *AppConfig) {
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1536
	}
	if cfg.Databases.Milvus.MemoryCollection == "" {
		cfg.Databases.Milvus.MemoryCollection = "assistant_memory"
	}
	if cfg.Databases.Milvus.CalendarCollection == "" {
		cfg.Databases.Milvus.CalendarCollection = "calendar_events"
	}
	if cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8080"
	}
}
