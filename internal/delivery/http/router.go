package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
)

type Router struct {
	profileHandler *handler.ProfileHandler
	feedHandler    *handler.FeedHandler
	swipeHandler   *handler.SwipeHandler
	messageHandler *handler.MessageHandler
	wsHandler      *handler.WSHandler
	authMiddleware *middleware.AuthMiddleware
	allowedOrigins []string
	log            *zap.Logger
}

func NewRouter(
	profileHandler *handler.ProfileHandler,
	feedHandler *handler.FeedHandler,
	swipeHandler *handler.SwipeHandler,
	messageHandler *handler.MessageHandler,
	wsHandler *handler.WSHandler,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
	log *zap.Logger,
) *Router {
	return &Router{
		profileHandler: profileHandler,
		feedHandler:    feedHandler,
		swipeHandler:   swipeHandler,
		messageHandler: messageHandler,
		wsHandler:      wsHandler,
		authMiddleware: authMiddleware,
		allowedOrigins: allowedOrigins,
		log:            log,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.OrNop(r.log)))
	router.Use(middleware.CORS(r.allowedOrigins))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(r.authMiddleware.RequireAuth())
	{
		profile := protected.Group("/profile")
		{
			profile.GET("/me", r.profileHandler.GetMyProfile)
			profile.PUT("/me/music", r.profileHandler.UpdateMusic)
		}

		protected.GET("/feed", r.feedHandler.GetFeed)

		swipe := protected.Group("/swipe")
		{
			swipe.POST("/like", r.swipeHandler.Like)
			swipe.POST("/dislike", r.swipeHandler.Dislike)
		}

		matches := protected.Group("/matches")
		{
			matches.GET("", r.swipeHandler.ListMatches)
			matches.GET("/unread-count", r.swipeHandler.UnreadCount)
			matches.POST("/read", r.swipeHandler.MarkRead)
			matches.DELETE("/:match_id", r.swipeHandler.Unmatch)
		}

		rooms := protected.Group("/rooms/:room_id/messages")
		{
			rooms.GET("", r.messageHandler.ListMessages)
			rooms.POST("", r.messageHandler.SendMessage)
			rooms.POST("/read", r.messageHandler.MarkRead)
		}

		conversations := protected.Group("/conversations")
		{
			conversations.GET("/previews", r.messageHandler.Previews)
			conversations.GET("/unread-count", r.messageHandler.UnreadCount)
		}

		protected.GET("/ws", r.wsHandler.Connect)
	}

	return router
}
