package api

import (
	calendarservice "Jarvis_Memory/internal/calendar/service"
	"Jarvis_Memory/internal/database/kafka"
	memoryservice "Jarvis_Memory/internal/memory/service"
	"Jarvis_Memory/internal/models"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler 封装了所有 API endpoint 的处理函数。业务规则全部在 service
// 层,这里只做参数绑定和错误码映射。
type Handler struct {
	memories  *memoryservice.MemoryService
	calendar  *calendarservice.CalendarService
	publisher *kafka.IngestPublisher
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(memories *memoryservice.MemoryService, calendar *calendarservice.CalendarService, publisher *kafka.IngestPublisher) *Handler {
	return &Handler{memories: memories, calendar: calendar, publisher: publisher}
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// --- Memory Handlers ---

// CreateMemoryRequest 定义了新增记忆请求的 JSON 结构。
type CreateMemoryRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
	UserID  string `json:"user_id" binding:"required"`
}

// CreateMemory 处理新增记忆请求。
func (h *Handler) CreateMemory(c *gin.Context) {
	var req CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.memories.AddMemory(c.Request.Context(), req.Content, req.Type, req.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// IngestMemory 将记忆发布到摄取主题,由消费者异步写入。适合聊天管线
// 等不需要同步拿到记录的生产方。
func (h *Handler) IngestMemory(c *gin.Context) {
	var req CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := models.IngestMessage{Content: req.Content, Type: req.Type, UserID: req.UserID}
	if err := h.publisher.Publish(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "memory queued"})
}

// ListMemories 返回用户的全部记忆,按更新时间倒序。
func (h *Handler) ListMemories(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	records, err := h.memories.ListMemories(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memories": records})
}

// SearchMemoriesRequest 定义了语义检索请求的 JSON 结构。
type SearchMemoriesRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// SearchMemories 处理记忆语义检索请求。
func (h *Handler) SearchMemories(c *gin.Context) {
	var req SearchMemoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.memories.SimilaritySearch(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memories": records})
}

// UpdateMemoryRequest 定义了更新记忆请求的 JSON 结构。
type UpdateMemoryRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
}

// UpdateMemory 处理更新记忆请求。记录不存在时返回 404。
func (h *Handler) UpdateMemory(c *gin.Context) {
	var req UpdateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.memories.UpdateMemory(c.Request.Context(), c.Param("id"), req.Content, req.Type)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteMemory 处理删除记忆请求。记录不存在时返回 404。
func (h *Handler) DeleteMemory(c *gin.Context) {
	deleted, err := h.memories.DeleteMemory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "memory deleted"})
}

// ReindexMemoriesRequest 定义了重建索引请求的 JSON 结构。
type ReindexMemoriesRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ReindexMemories 从关系库重建用户的向量索引。
func (h *Handler) ReindexMemories(c *gin.Context) {
	var req ReindexMemoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.memories.Reindex(c.Request.Context(), req.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reindexed": count})
}

// --- Calendar Handlers ---

// FetchEvents 返回时间窗口内的事件,本地与远端合并去重。
func (h *Handler) FetchEvents(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
		return
	}

	events, err := h.calendar.FetchEvents(c.Request.Context(), userID, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// CreateEventRequest 定义了创建事件请求的 JSON 结构。
type CreateEventRequest struct {
	UserID      string    `json:"user_id" binding:"required"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	IsAllDay    bool      `json:"is_all_day"`
}

// CreateEvent 处理创建事件请求。
func (h *Handler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := &models.CalendarEvent{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		Description: req.Description,
		Location:    req.Location,
		IsAllDay:    req.IsAllDay,
	}
	created, err := h.calendar.CreateEvent(c.Request.Context(), req.UserID, event)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateEventRequest 定义了更新事件请求的 JSON 结构,未出现的字段保持
// 原值。
type UpdateEventRequest struct {
	UserID      string     `json:"user_id" binding:"required"`
	Title       *string    `json:"title"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	IsAllDay    *bool      `json:"is_all_day"`
}

// UpdateEvent 处理更新事件请求。事件不存在时返回 404,非本人事件返回 403。
func (h *Handler) UpdateEvent(c *gin.Context) {
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := models.CalendarEventPatch{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		Description: req.Description,
		Location:    req.Location,
		IsAllDay:    req.IsAllDay,
	}
	event, err := h.calendar.UpdateEvent(c.Request.Context(), req.UserID, c.Param("id"), patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent 处理删除事件请求。
func (h *Handler) DeleteEvent(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	deleted, err := h.calendar.DeleteEvent(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}

// ReindexEventsRequest 定义了事件索引重建请求的 JSON 结构。
type ReindexEventsRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ReindexEvents 从关系库重建用户的事件向量索引。
func (h *Handler) ReindexEvents(c *gin.Context) {
	var req ReindexEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.calendar.Reindex(c.Request.Context(), req.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reindexed": count})
}

// SearchEventsRequest 定义了事件语义检索请求的 JSON 结构。
type SearchEventsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Query  string `json:"query" binding:"required"`
	Limit  int    `json:"limit"`
}

// SearchEvents 处理事件语义检索请求,结果只包含该用户自己的事件。
func (h *Handler) SearchEvents(c *gin.Context) {
	var req SearchEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := h.calendar.SearchEvents(c.Request.Context(), req.UserID, req.Query, req.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Health 健康检查。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
