// Package main is the API server entry point. It loads configuration, opens
// the database and cache connections, wires the service graph and serves HTTP.
package main

import (
	"context"
	"log"
	"time"

	"aurum/internal/config"
	"aurum/internal/repositories"
	"aurum/internal/repositories/cache"
	"aurum/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadEnv()

	db, err := repositories.Connect(repositories.DBConfig{
		MaxIdleConns:    config.GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    config.GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		ConnMaxLifetime: config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	// Redis is optional; the ledger falls back to uncached reads without it.
	var cacheService *cache.CacheService
	if config.GetEnv("REDIS_ENABLED", "true") == "true" {
		client := cache.NewRedisClient(&cache.RedisConfig{
			Host:     config.GetEnv("REDIS_HOST", "localhost"),
			Port:     config.GetEnv("REDIS_PORT", "6379"),
			Password: config.GetEnv("REDIS_PASSWORD", ""),
			DB:       config.GetIntEnv("REDIS_DB", 0),
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable, running without cache: %v", err)
		} else {
			cacheService = cache.NewCacheService(client, config.GetDurationEnv("CACHE_TTL", 5*time.Minute))
			defer func() {
				if err := cacheService.Close(); err != nil {
					log.Printf("Failed to close Redis connection: %v", err)
				}
			}()
		}
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Throttle the credential endpoints.
	authLimiter := limiter.New(limiter.Config{
		Max:        config.GetIntEnv("AUTH_RATE_LIMIT", 5),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
	app.Use("/api/register", authLimiter)
	app.Use("/api/login", authLimiter)

	routes.SetupRoutes(app, db, cacheService)

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
