package models

import "time"

// CalendarEvent 代表一条日历事件。本地行拥有身份 (ID)；
// 外部提供商的副本通过 ExternalEventID 关联，是一个并行表示。
type CalendarEvent struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:512;not null" json:"title"`
	Start       time.Time `gorm:"index;not null" json:"start"`
	End         time.Time `gorm:"not null" json:"end"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Location    string    `gorm:"size:512" json:"location,omitempty"`
	IsAllDay    bool      `json:"is_all_day"`
	UserID      string    `gorm:"size:64;index;uniqueIndex:uniq_external_event_user;not null" json:"user_id"`

	// ExternalEventID 是提供商分配的事件 ID。与 UserID 组成唯一索引，
	// 保证同一个提供商窗口被拉取两次也不会产生重复行。
	ExternalEventID    *string `gorm:"size:255;uniqueIndex:uniq_external_event_user" json:"external_event_id,omitempty"`
	ExternalCalendarID *string `gorm:"size:255" json:"external_calendar_id,omitempty"`

	// Synced 为 true 表示提供商侧存在对应副本。提供商变更失败时
	// 该标志保持不变，远端副本被记录为过期（不自动修复）。
	Synced bool `json:"synced"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CalendarEvent) TableName() string {
	return "calendar_events"
}

// CalendarEventPatch 描述一次部分更新。nil 字段保持原值。
type CalendarEventPatch struct {
	Title       *string    `json:"title,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	IsAllDay    *bool      `json:"is_all_day,omitempty"`
}

// Apply 将补丁应用到事件副本上并返回结果，不修改原事件。
func (p *CalendarEventPatch) Apply(ev CalendarEvent) CalendarEvent {
	if p.Title != nil {
		ev.Title = *p.Title
	}
	if p.Start != nil {
		ev.Start = *p.Start
	}
	if p.End != nil {
		ev.End = *p.End
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	if p.Location != nil {
		ev.Location = *p.Location
	}
	if p.IsAllDay != nil {
		ev.IsAllDay = *p.IsAllDay
	}
	return ev
}
