package models

import "time"

// MemoryRecord 代表一条语义记忆。MySQL 中的行是事实的唯一权威来源，
// 向量索引只持有以同一 ID 回指该行的派生点，可随时重建。
type MemoryRecord struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	Content string `gorm:"type:text;not null" json:"content"`
	Type    string `gorm:"size:64;not null;default:'general'" json:"type"`
	UserID  string `gorm:"size:64;index;not null" json:"user_id"`

	// VectorID 在记录被成功写入向量索引后等于 ID 本身；
	// 为 nil 表示该记录处于"未索引"的降级状态，可通过 Reindex 修复。
	VectorID *string `gorm:"size:36" json:"vector_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MemoryRecord) TableName() string {
	return "memories"
}

// IngestMessage 是记忆摄取主题上的消息格式。聊天管线、批量导入等
// 生产方每条记忆发布一条消息。
type IngestMessage struct {
	Content string `json:"content"`
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
}
