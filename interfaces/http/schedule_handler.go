package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type IScheduleHandler interface {
	Schedule(ctx *gin.Context)
	List(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	ProcessOverdue(ctx *gin.Context)
}

type ScheduleHandler struct {
	scheduleUsecase usecase.IScheduleUsecase
}

func NewScheduleHandler(uc usecase.IScheduleUsecase) IScheduleHandler {
	return &ScheduleHandler{scheduleUsecase: uc}
}

// Schedule stores a future publish intent. Re-posting the same
// (content_id, post_index) reschedules in place rather than duplicating.
func (h *ScheduleHandler) Schedule(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	if accountID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing account_id"})
		return
	}
	var req dto.ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.scheduleUsecase.Schedule(ctx.Request.Context(), accountID, &req)
	if err != nil {
		if errors.Is(err, model.ErrScheduleConflict) {
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.GetLogger().WithField("error", err).Error("schedule request failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *ScheduleHandler) List(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	limit := 50
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	list, err := h.scheduleUsecase.List(ctx.Request.Context(), accountID, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []*model.ScheduledPost{}
	}
	ctx.JSON(http.StatusOK, gin.H{"schedules": list})
}

func (h *ScheduleHandler) Cancel(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	if err := h.scheduleUsecase.Cancel(ctx.Request.Context(), accountID, id); err != nil {
		if errors.Is(err, model.ErrScheduleConflict) {
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// ProcessOverdue allows manual triggering of the overdue sweep (admin/dev utility)
func (h *ScheduleHandler) ProcessOverdue(ctx *gin.Context) {
	batchSize := 10
	if v := ctx.Query("batch"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			batchSize = n
		}
	}
	if err := h.scheduleUsecase.ProcessOverdue(ctx.Request.Context(), batchSize); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"processed": false, "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"processed": true, "batch": batchSize})
}
