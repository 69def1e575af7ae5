package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"paperhub/internal/infra/config"
	"paperhub/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Chat           ChatHTTP
	Upload         UploadHTTP
	Realtime       http.Handler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(cfg.FrontendURL),
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Realtime != nil {
		router.GET("/ws", gin.WrapH(h.Realtime))
	}

	api := router.Group("/api")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Chat != nil {
		chatGroup := api.Group("/chat")
		chatGroup.GET("/users", h.Chat.ListUsers)
		chatGroup.GET("/search/users", h.Chat.SearchUsers)
		chatGroup.GET("/conversations", h.Chat.ListConversations)
		chatGroup.GET("/history/:conversationId", h.Chat.History)
		chatGroup.GET("/unread-count", h.Chat.UnreadCount)
		chatGroup.POST("/send", h.Chat.Send)
		chatGroup.POST("/mark-read", h.Chat.MarkRead)
		chatGroup.DELETE("/message/:messageId", h.Chat.DeleteMessage)
		chatGroup.DELETE("/clear/:conversationId", h.Chat.ClearConversation)
		if h.Upload != nil {
			chatGroup.POST("/upload", h.Upload.Upload)
		}
		// Registered last so fixed paths above win over the wildcard.
		chatGroup.GET("/:recipientId", h.Chat.QuickChat)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func allowedOrigins(frontendURL string) []string {
	origin := strings.TrimSpace(frontendURL)
	if origin == "" {
		return []string{"*"}
	}
	return []string{origin}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
