package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/usecase"
)

type IPublishHandler interface {
	PostNow(ctx *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(uc usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: uc}
}

// PostNow publishes immediately on each requested platform. The response is
// always 200 with per-platform outcomes; callers inspect individual statuses
// because one platform failing does not undo another's post.
func (h *PublishHandler) PostNow(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	if accountID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing account_id"})
		return
	}
	var req dto.PostNowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Caption == "" && len(req.MediaRefs) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "caption or media required"})
		return
	}

	results := h.publishUsecase.PostNow(ctx.Request.Context(), accountID, &req)
	ctx.JSON(http.StatusOK, gin.H{"content_id": req.ContentID, "results": results})
}
