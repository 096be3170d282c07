package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"medicheck-server/internal/appointments"
	"medicheck-server/internal/assistant"
	"medicheck-server/internal/checkin"
	"medicheck-server/internal/clock"
	"medicheck-server/internal/config"
	"medicheck-server/internal/handlers"
	"medicheck-server/internal/hospitals"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/metrics"
	"medicheck-server/internal/middleware"
	"medicheck-server/internal/repository"
)

// Dependencies are the process-wide resources the routes are built on.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Logger    *logger.Logger
	Clock     clock.Clock
	Hospitals *hospitals.Directory
	Generator assistant.Generator
	// Registry receives the check-in metrics and is served on /metrics.
	// Nil disables both.
	Registry *prometheus.Registry
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Hospitals == nil {
		deps.Hospitals = hospitals.Default()
	}
	if deps.Generator == nil {
		deps.Generator = assistant.Unavailable{}
	}

	repo := repository.NewAppointmentRepository(deps.DB)
	appointmentService := appointments.NewService(repo, deps.Hospitals, deps.Clock, deps.Logger, appointments.Options{
		TimeZone: cfg.TimeZone,
		Timeout:  cfg.RepositoryTimeout,
	})

	var checkInMetrics *metrics.CheckInMetrics
	if deps.Registry != nil {
		checkInMetrics = metrics.NewCheckInMetrics(deps.Registry)
	}
	checkInService := checkin.NewService(repo, appointmentService, deps.Hospitals, deps.Clock, deps.Logger, checkin.Options{
		Timeout: cfg.RepositoryTimeout,
		Metrics: checkInMetrics,
		Refresh: appointmentService.FetchByOwner,
	})

	authHandler := handlers.NewAuthHandler(deps.DB, cfg, deps.Logger)
	accountHandler := handlers.NewAccountHandler(deps.DB, deps.Logger)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	checkInHandler := handlers.NewCheckInHandler(checkInService, deps.Logger)
	catalogHandler := handlers.NewCatalogHandler(appointmentService, deps.Hospitals)
	assistantHandler := handlers.NewAssistantHandler(assistant.NewService(deps.Generator, deps.Logger))

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
		public.GET("/catalog", catalogHandler.GetCatalog)
		public.GET("/hospitals", catalogHandler.GetHospitals)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		accountRoutes := private.Group("/account")
		{
			accountRoutes.PUT("/password", accountHandler.ChangePassword)
			accountRoutes.DELETE("", accountHandler.DeleteAccount)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/today", appointmentHandler.GetTodayAtHospital)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)
		}

		checkInRoutes := private.Group("/check-in")
		{
			checkInRoutes.POST("/verify", checkInHandler.Verify)
			checkInRoutes.POST("/batch", checkInHandler.Batch)
			checkInRoutes.POST("/:id", checkInHandler.CheckIn)
		}

		private.POST("/assistant/chat", assistantHandler.Chat)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}
}
