package provider

import (
	"Jarvis_Memory/internal/config"
	"Jarvis_Memory/internal/models"
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const allDayDateFormat = "2006-01-02"

// GoogleProvider 基于 Google Calendar API 的 Provider 实现。每次调用
// 使用调用方的令牌构建服务实例,多个用户之间互不共享凭证。
type GoogleProvider struct {
	calendarID string
}

// NewGoogleProvider 创建 GoogleProvider。
func NewGoogleProvider(cfg *config.CalendarConfig) *GoogleProvider {
	return &GoogleProvider{calendarID: cfg.CalendarID}
}

func (p *GoogleProvider) service(ctx context.Context, token string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

// ListEvents 拉取窗口内的远端事件,重复事件展开为单次实例。
func (p *GoogleProvider) ListEvents(ctx context.Context, token string, start, end time.Time) ([]*models.CalendarEvent, error) {
	svc, err := p.service(ctx, token)
	if err != nil {
		return nil, err
	}

	res, err := svc.Events.List(p.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	events := make([]*models.CalendarEvent, 0, len(res.Items))
	for _, item := range res.Items {
		event, err := p.fromGoogleEvent(item)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// CreateEvent 在远端创建事件并返回远端 ID。
func (p *GoogleProvider) CreateEvent(ctx context.Context, token string, event *models.CalendarEvent) (string, error) {
	svc, err := p.service(ctx, token)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert(p.calendarID, p.toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent 用本地内容覆盖远端副本。
func (p *GoogleProvider) UpdateEvent(ctx context.Context, token string, externalEventID string, event *models.CalendarEvent) error {
	svc, err := p.service(ctx, token)
	if err != nil {
		return err
	}

	if _, err := svc.Events.Update(p.calendarID, externalEventID, p.toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}
	return nil
}

// DeleteEvent 删除远端事件。
func (p *GoogleProvider) DeleteEvent(ctx context.Context, token string, externalEventID string) error {
	svc, err := p.service(ctx, token)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(p.calendarID, externalEventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}

func (p *GoogleProvider) toGoogleEvent(event *models.CalendarEvent) *calendar.Event {
	ge := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
	}
	if event.IsAllDay {
		ge.Start = &calendar.EventDateTime{Date: event.Start.Format(allDayDateFormat)}
		ge.End = &calendar.EventDateTime{Date: event.End.Format(allDayDateFormat)}
	} else {
		ge.Start = &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339)}
		ge.End = &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339)}
	}
	return ge
}

// fromGoogleEvent 转换远端事件。DateTime 为空表示全天事件,此时使用
// Date 字段。
func (p *GoogleProvider) fromGoogleEvent(item *calendar.Event) (*models.CalendarEvent, error) {
	externalID := item.Id
	calendarID := p.calendarID
	event := &models.CalendarEvent{
		Title:              item.Summary,
		Description:        item.Description,
		Location:           item.Location,
		ExternalEventID:    &externalID,
		ExternalCalendarID: &calendarID,
		Synced:             true,
	}

	start, allDay, err := parseEventTime(item.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event start: %w", err)
	}
	end, _, err := parseEventTime(item.End)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event end: %w", err)
	}
	event.Start = start
	event.End = end
	event.IsAllDay = allDay
	return event, nil
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, nil
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		return t, false, err
	}
	t, err := time.Parse(allDayDateFormat, edt.Date)
	return t, true, err
}

var _ Provider = (*GoogleProvider)(nil)
