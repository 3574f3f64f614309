package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/handler"
	"github.com/certready/certready-backend/internal/middleware"
	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Billing  *handler.BillingHandler
	Exam     *handler.ExamHandler
	Session  *handler.SessionHandler
	Training *handler.TrainingHandler
	Webhook  *handler.WebhookHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Webhook-Secret"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter shared by login and the webhook endpoints
	// (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Webhook Group (Shared-Secret, Rate Limited) ────────────────
	// Inbound calls from the identity provider and the payment
	// processor. Authenticated by X-Webhook-Secret, not JWT.
	webhooks := router.Group("/api/v1/webhooks")
	webhooks.Use(authLimiter.Middleware())
	{
		webhooks.POST("/identity", handlers.Webhook.Identity)
		webhooks.POST("/payments/completed", handlers.Webhook.PaymentCompleted)
		webhooks.POST("/payments/failed", handlers.Webhook.PaymentFailed)
	}

	// ─── 3. Public Catalog ─────────────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	{
		publicAPI.GET("/products", handlers.Billing.ListProducts)
	}

	// ─── 4. User Group (JWT + Single Device) ───────────────────────────
	userAPI := router.Group("/api/v1")
	userAPI.Use(
		middleware.RequireAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Billing
		userAPI.POST("/checkout", handlers.Billing.CreateCheckout)
		userAPI.GET("/transactions", handlers.Billing.ListMyTransactions)
		userAPI.GET("/access", handlers.Billing.MyAccessStatus)

		// Exams (catalog view; admins see inactive exams too)
		userAPI.GET("/exams", handlers.Exam.ListExams)
		userAPI.GET("/exams/:id", handlers.Exam.GetExam)

		// Exam session lifecycle
		userAPI.POST("/exams/:id/session", handlers.Session.Start)
		userAPI.GET("/exams/:id/session/timing", handlers.Session.Timing)
		userAPI.POST("/exams/:id/session/pause", handlers.Session.StartPause)
		userAPI.POST("/exams/:id/session/resume", handlers.Session.Resume)
		userAPI.GET("/exams/:id/session/questions/:index/access", handlers.Session.QuestionAccess)
		userAPI.POST("/exams/:id/session/answers", handlers.Session.SaveAnswer)
		userAPI.POST("/exams/:id/session/submit", handlers.Session.Submit)
		userAPI.GET("/exams/:id/leaderboard", handlers.Session.Leaderboard)

		// Training sessions
		userAPI.POST("/training", handlers.Training.Create)
		userAPI.GET("/training/:id", handlers.Training.Get)
		userAPI.PUT("/training/:id/answers", handlers.Training.SaveAnswers)
		userAPI.GET("/training/:id/answers", handlers.Training.Answers)
		userAPI.POST("/training/:id/complete", handlers.Training.Complete)
		userAPI.POST("/training/:id/abandon", handlers.Training.Abandon)
	}

	// ─── 5. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exams/:id/clock", handlers.WS.ExamClockStream)
	}

	// ─── 6. Admin Group (JWT + Admin Role) ─────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireAdmin(),
	)
	{
		// Exam management
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		adminAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)

		// Product management
		adminAPI.POST("/products", handlers.Billing.UpsertProduct)

		// Manual transactions
		adminAPI.POST("/transactions", handlers.Billing.RecordManualTransaction)
		adminAPI.PUT("/transactions/:id", handlers.Billing.UpdateManualTransaction)
		adminAPI.DELETE("/transactions/:id", handlers.Billing.DeleteManualTransaction)
		adminAPI.GET("/users/:id/transactions", handlers.Billing.UserTransactions)

		// System
		adminAPI.POST("/system/sweep", handlers.System.TriggerSweep)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
