package provider

import (
	"Jarvis_Memory/internal/models"
	"context"
	"time"
)

// Provider 定义外部日历服务的操作接口。所有调用都使用调用方传入的
// 用户级访问令牌,provider 本身不持有任何凭证。
type Provider interface {
	// ListEvents 拉取时间窗口内的远端事件。
	ListEvents(ctx context.Context, token string, start, end time.Time) ([]*models.CalendarEvent, error)

	// CreateEvent 在远端创建事件,返回远端事件 ID。
	CreateEvent(ctx context.Context, token string, event *models.CalendarEvent) (string, error)

	// UpdateEvent 用本地事件内容覆盖远端副本。
	UpdateEvent(ctx context.Context, token string, externalEventID string, event *models.CalendarEvent) error

	// DeleteEvent 删除远端事件。
	DeleteEvent(ctx context.Context, token string, externalEventID string) error
}

// TokenSupplier 按用户查找日历访问令牌。ok 为 false 表示该用户未绑定
// 日历授权,不是错误。
type TokenSupplier interface {
	AccessToken(ctx context.Context, userID string) (token string, ok bool, err error)
}
