package api

import (
	"context"
	"errors"
	"net/http"

	"EventSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IngestionRunner 由 service.IngestionService 实现
type IngestionRunner interface {
	Run(ctx context.Context) (*service.RunReport, error)
	Sweep(ctx context.Context) (int64, error)
}

type SyncHandler struct {
	runner IngestionRunner
	logger *logrus.Logger
}

func NewSyncHandler(runner IngestionRunner, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, logger: logger}
}

// RunHandler 同步执行一次全量采集，返回各来源统计
// @Router /sync [post]
func (h *SyncHandler) RunHandler(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("采集失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// SweepHandler 失效已结束的活动
// @Router /sync/sweep [post]
func (h *SyncHandler) SweepHandler(c *gin.Context) {
	n, err := h.runner.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Errorf("清理过期活动失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": n})
}
