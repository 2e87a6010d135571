package mysql

import (
	"Jarvis_Memory/internal/config"
	"Jarvis_Memory/internal/models"
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Client 持有一个 GORM 数据库句柄。
// 不再使用包级单例：句柄由调用方显式创建并注入到各个 store 中，
// 生命周期（Connect/Close）完全由组装代码控制。
type Client struct {
	DB *gorm.DB
}

// Connect 建立到 MySQL 的连接，配置连接池并执行幂等的表结构迁移。
// 重复调用是安全的：AutoMigrate 只会补齐缺失的表和索引。
func Connect(cfg *config.MySQLConfig) (*Client, error) {
	// 构建 DSN (Data Source Name) 字符串。
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Address,
		cfg.Database,
	)

	// 使用 GORM 连接到 MySQL 数据库。
	// TranslateError 使唯一键冲突以 gorm.ErrDuplicatedKey 返回，
	// store 层依赖它识别并发镜像同一远端事件的竞争。
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}

	// 获取底层 *sql.DB 实例，以便进行连接池配置。
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("无法获取底层 SQL DB 实例: %w", err)
	}

	// 配置连接池参数。
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	// 迁移本子系统拥有的两张权威表。
	if err := db.AutoMigrate(&models.MemoryRecord{}, &models.CalendarEvent{}); err != nil {
		return nil, fmt.Errorf("MySQL 表结构迁移失败: %w", err)
	}

	return &Client{DB: db}, nil
}

// Close 安全地关闭数据库连接。
func (c *Client) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("获取底层 SQL DB 实例失败: %w", err)
	}
	return sqlDB.Close()
}

// HealthCheck 检查数据库连接的健康状况。
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return fmt.Errorf("数据库连接未初始化")
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("无法获取底层 SQL DB 实例进行健康检查: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
