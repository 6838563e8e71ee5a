package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/realtime"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"
)

func InitiateRouter(
	connectHandler httpHandler.IConnectHandler,
	publishHandler httpHandler.IPublishHandler,
	scheduleHandler httpHandler.IScheduleHandler,
	userRepository repository.IUser,
	scheduleHub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Platform callbacks arrive from the browser redirect without our bearer
	// token; the single-use state parameter authenticates them instead.
	router.GET("/auth/:platform/callback", func(ctx *gin.Context) {
		if ctx.Query("oauth_verifier") != "" {
			connectHandler.OAuth1Callback(ctx)
			return
		}
		connectHandler.OAuth2Callback(ctx)
	})

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	auth := api.Group("/auth")
	{
		auth.POST("/:platform", connectHandler.InitiateAuth)
		auth.GET("/:platform/status", connectHandler.Status)
		auth.GET("/:platform/validate", connectHandler.Validate)
		auth.DELETE("/:platform", connectHandler.Disconnect)
	}
	api.GET("/connections", connectHandler.List)

	api.POST("/posts", publishHandler.PostNow)

	schedules := api.Group("/schedules")
	{
		schedules.POST("", scheduleHandler.Schedule)
		schedules.GET("", scheduleHandler.List)
		schedules.DELETE("/:id", scheduleHandler.Cancel)
		schedules.POST("/process-overdue", scheduleHandler.ProcessOverdue)
	}

	if scheduleHub != nil {
		api.GET("/schedules/stream", scheduleHub.Serve)
	}

	return router
}
