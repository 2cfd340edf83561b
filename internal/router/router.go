package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/handler"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/middleware"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/response"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	TakingTest   *handler.TakingTestHandler
	WS           *handler.WSHandler
	AdminSession *handler.AdminSessionHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.GinMode != gin.TestMode {
		router.Use(gin.Logger())
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set; otherwise allow all for dev.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth (Public) ──────────────────────────────────────────────
	router.POST("/auth/login", handlers.Auth.Login)

	// ─── 2. Taking Test (Candidate JWT) ────────────────────────────────
	takingTest := router.Group("/taking-test/:session_id")
	takingTest.Use(middleware.RequireCandidateJWT(authService))
	{
		takingTest.GET("", handlers.TakingTest.GetSession)
		takingTest.GET("/test", handlers.TakingTest.GetTest)
		takingTest.GET("/questions", handlers.TakingTest.GetQuestions)
		takingTest.POST("/save-progress", handlers.TakingTest.SaveProgress)
		takingTest.POST("/submit", handlers.TakingTest.Submit)
	}

	// ─── 3. WebSocket (Candidate WS Auth) ──────────────────────────────
	ws := router.Group("/ws")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/taking-test/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin (Admin JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.PATCH("/sessions/:session_id/schedule", handlers.AdminSession.Reschedule)
	}

	return router
}
