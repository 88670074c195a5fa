package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/bohemiyan/accesscontrol"
	"github.com/bohemiyan/accesscontrol/internal/config"
	"github.com/bohemiyan/accesscontrol/internal/db"
	"github.com/bohemiyan/accesscontrol/internal/routes"
	"github.com/bohemiyan/accesscontrol/zaplog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile := zaplog.Init(cfg.LogFile)

	pgDB, err := db.NewPostgresDB(cfg)
	if err != nil {
		zaplog.Log.Fatalf("Failed to initialize PostgreSQL: %v", err)
	}
	zaplog.Log.Info("Successfully connected to PostgreSQL database")
	defer pgDB.Close()

	redisClient, err := db.NewRedisClient(cfg)
	if err != nil {
		zaplog.Log.Fatalf("Failed to initialize Redis: %v", err)
	}
	zaplog.Log.Info("Successfully connected to Redis")
	defer redisClient.Close()

	ac, err := accesscontrol.New(accesscontrol.Config{
		DB:                 pgDB.GormDB,
		RedisClient:        redisClient,
		Logger:             zaplog.Log,
		CacheTTL:           cfg.CacheTTL,
		CachePrefix:        "acl:",
		AutoMigrate:        cfg.AutoMigrate,
		EnableAuditLogging: true,
	})
	if err != nil {
		zaplog.Log.Fatalf("Failed to initialize access control: %v", err)
	}

	app := fiber.New()
	app.Use(zaplog.FiberLoggingMiddleware(logFile))
	routes.Setup(app, ac)

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	zaplog.Log.Infof("Server started on port %d", cfg.AppPort)
	log.Fatal(app.Listen(addr))
}
