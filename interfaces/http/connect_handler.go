package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type IConnectHandler interface {
	InitiateAuth(ctx *gin.Context)
	OAuth2Callback(ctx *gin.Context)
	OAuth1Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
	List(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	Validate(ctx *gin.Context)
}

type ConnectHandler struct {
	connectUsecase  usecase.IConnectUsecase
	validateUsecase usecase.IValidateUsecase
}

func NewConnectHandler(connectUC usecase.IConnectUsecase, validateUC usecase.IValidateUsecase) IConnectHandler {
	return &ConnectHandler{connectUsecase: connectUC, validateUsecase: validateUC}
}

// InitiateAuth starts an authorization flow. ?flow=oauth1 attaches the
// signing leg; the default is the OAuth2 code flow.
func (h *ConnectHandler) InitiateAuth(ctx *gin.Context) {
	platform := ctx.Param("platform")
	accountID := ctx.GetString("account_id")
	if accountID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing account_id"})
		return
	}

	var err error
	var resp interface{}
	if ctx.Query("flow") == model.FlowOAuth1 {
		resp, err = h.connectUsecase.InitiateOAuth1(ctx.Request.Context(), accountID, platform)
	} else {
		resp, err = h.connectUsecase.InitiateOAuth2(ctx.Request.Context(), accountID, platform)
	}
	if err != nil {
		if errors.Is(err, model.ErrConnectionNotFound) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "connect the platform before adding the oauth1 leg"})
			return
		}
		logger.GetLogger().WithField("error", err).Warn("authorization initiation failed")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// OAuth2Callback completes the PKCE code flow.
func (h *ConnectHandler) OAuth2Callback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if code == "" || state == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing code or state"})
		return
	}
	conn, err := h.connectUsecase.CompleteOAuth2(ctx.Request.Context(), state, code)
	if err != nil {
		h.callbackError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connected": true, "platform": conn.Platform, "handle": conn.Handle})
}

// OAuth1Callback completes the three-legged flow. Twitter sends
// oauth_token/oauth_verifier; our state rides on the callback URL.
func (h *ConnectHandler) OAuth1Callback(ctx *gin.Context) {
	state := ctx.Query("state")
	verifier := ctx.Query("oauth_verifier")
	if state == "" || verifier == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing state or oauth_verifier"})
		return
	}
	conn, err := h.connectUsecase.CompleteOAuth1(ctx.Request.Context(), state, verifier)
	if err != nil {
		h.callbackError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connected": true, "platform": conn.Platform, "handle": conn.Handle, "oauth1": true})
}

func (h *ConnectHandler) callbackError(ctx *gin.Context, err error) {
	if errors.Is(err, model.ErrInvalidOrExpiredState) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired state; restart the authorization flow"})
		return
	}
	var exchange *model.TokenExchangeError
	if errors.As(err, &exchange) {
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": exchange.Platform,
			"status":   exchange.StatusCode,
		}).Warn("token exchange rejected")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": exchange.Error()})
		return
	}
	logger.GetLogger().WithField("error", err).Error("authorization callback failed")
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *ConnectHandler) Status(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	resp, err := h.connectUsecase.Status(ctx.Request.Context(), accountID, ctx.Param("platform"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *ConnectHandler) List(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	list, err := h.connectUsecase.List(ctx.Request.Context(), accountID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connections": list})
}

func (h *ConnectHandler) Disconnect(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	if err := h.connectUsecase.Disconnect(ctx.Request.Context(), accountID, ctx.Param("platform")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"disconnected": true})
}

// Validate is the dashboard pre-flight: can this account perform this action
// right now. An expired token is refreshed as a side effect.
func (h *ConnectHandler) Validate(ctx *gin.Context) {
	accountID := ctx.GetString("account_id")
	platform := ctx.Param("platform")
	capability := model.Capability(ctx.DefaultQuery("capability", string(model.CapabilityPostText)))

	resp, err := h.validateUsecase.Validate(ctx.Request.Context(), accountID, platform, capability)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
