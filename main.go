package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"medicheck-server/internal/assistant"
	"medicheck-server/internal/clock"
	"medicheck-server/internal/config"
	"medicheck-server/internal/hospitals"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/middleware"
	"medicheck-server/internal/models"
	"medicheck-server/internal/routes"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("info").WithError(err).Fatal("Error loading config")
	}

	log := logger.New(cfg.LogLevel)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.WithError(envErr).Warn("Error loading .env file")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

// run wires the server and blocks until it stops. Resources opened here are
// released before it returns.
func run(cfg *config.Config, log *logger.Logger) error {
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var generator assistant.Generator = assistant.Unavailable{}
	if cfg.Gemini.APIKey != "" {
		gemini, err := assistant.NewGeminiGenerator(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return fmt.Errorf("create Gemini client: %w", err)
		}
		defer gemini.Close()
		generator = gemini
	} else {
		log.Warn("GEMINI_API_KEY not set; assistant disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:        db,
		Config:    cfg,
		Logger:    log,
		Clock:     clock.Real{},
		Hospitals: hospitals.Default(),
		Generator: generator,
		Registry:  registry,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.WithField("port", cfg.Port).WithField("timezone", cfg.TimeZone.String()).Info("Server starting")
	if err := router.Run(serverAddr); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}
