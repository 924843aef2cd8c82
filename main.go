package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"tibyan/controllers"
	"tibyan/middleware"
	"tibyan/models"
	"tibyan/pkg/analytics"
	"tibyan/pkg/cache"
	"tibyan/pkg/config"
	"tibyan/pkg/ingest"
	"tibyan/pkg/services"
	"tibyan/pkg/store"
	"tibyan/routes"
)

func main() {
	// config init via package init()

	var st store.Store
	if config.DatabaseDSN != "" {
		db, err := gorm.Open(mysql.Open(config.DatabaseDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}); err != nil {
			log.Fatalf("failed migrate: %v", err)
		}
		st = store.NewGormStore(db)
	} else {
		log.Printf("[main] DATABASE_DSN empty, using in-memory store")
		st = store.NewMemoryStore()
	}

	classifier := services.NewSentimentService(services.SentimentOptions{
		BaseURL:     config.ClassifierURL,
		MaxInFlight: config.ClassifierConcurrency,
		Timeout:     time.Duration(config.ClassifierTimeoutSeconds) * time.Second,
		BatchSize:   config.ClassifierBatchSize,
		BatchPause:  time.Duration(config.ClassifierBatchPauseMs) * time.Millisecond,
	})
	defer classifier.Close()

	processor := ingest.NewProcessor(st, classifier)

	reportCache := cache.New(config.ReportCacheMaxItems)
	engine := analytics.NewEngine(st).
		WithCache(reportCache, time.Duration(config.ReportCacheTTLSeconds)*time.Second)

	hub := controllers.NewLiveHub(config.JWTSecret)

	middleware.SetRateLimitConfig(
		time.Duration(config.RateLimitWindowSeconds)*time.Second,
		config.RateLimitCapacity,
	)

	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Store:     st,
		Processor: processor,
		Engine:    engine,
		Hub:       hub,
		JWTSecret: config.JWTSecret,
	})
	r.Run(":" + config.Port)
}
