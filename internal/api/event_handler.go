package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"EventSync/internal/model"
	"EventSync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 日期参数仅给到天时按台北时间解析
var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// EventReader 只读查询，由 repository.EventRepository 实现
type EventReader interface {
	ListEvents(ctx context.Context, filter repository.EventFilter, limit, offset int) ([]*model.CanonicalEvent, error)
	GetEventByID(ctx context.Context, id string, includeInactive bool) (*model.CanonicalEvent, error)
}

// EventHandler 提供给前端的活动查询接口
type EventHandler struct {
	reader EventReader
	logger *logrus.Logger
}

func NewEventHandler(reader EventReader, logger *logrus.Logger) *EventHandler {
	return &EventHandler{reader: reader, logger: logger}
}

// ListEvents 活动列表
// GET /api/events?category=concert&city=台北&start_date=2026-11-01&end_date=2026-11-30&limit=50&offset=0&include_inactive=false
func (h *EventHandler) ListEvents(c *gin.Context) {
	filter := repository.EventFilter{City: c.Query("city")}

	if raw := c.Query("category"); raw != "" {
		category, ok := model.ParseCategory(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知分类: %s", raw)})
			return
		}
		filter.Category = category
	}

	var err error
	if filter.StartDate, err = parseDateParam(c.Query("start_date"), false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date 格式错误: " + err.Error()})
		return
	}
	if filter.EndDate, err = parseDateParam(c.Query("end_date"), true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date 格式错误: " + err.Error()})
		return
	}
	filter.IncludeInactive, _ = strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, err := h.reader.ListEvents(c.Request.Context(), filter, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("ListEvents failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []*model.CanonicalEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}

// GetEvent 活动详情
// GET /api/events/:id?include_inactive=true
func (h *EventHandler) GetEvent(c *gin.Context) {
	id := c.Param("id")
	includeInactive, _ := strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))

	event, err := h.reader.GetEventByID(c.Request.Context(), id, includeInactive)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("GetEvent failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
		return
	}
	c.JSON(http.StatusOK, newEventDetail(event))
}

// parseDateParam 仅给到天的上界取当天最后一刻
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, taipei)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// eventDetail 详情响应附带封面图
type eventDetail struct {
	*model.CanonicalEvent
	CoverImage *model.Image `json:"coverImage,omitempty"`
}

func newEventDetail(e *model.CanonicalEvent) eventDetail {
	d := eventDetail{CanonicalEvent: e}
	if img, ok := e.CoverImage(); ok {
		d.CoverImage = &img
	}
	return d
}
