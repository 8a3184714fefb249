package main

import (
	"fmt"
	"log"
	"os"

	"web_chat_service/internal/room/app"
	"web_chat_service/internal/room/repository"
	"web_chat_service/internal/room/router"
	"web_chat_service/pkg/config"
	"web_chat_service/pkg/database"
	"web_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RoomService, config.EnvConfig.RoomServiceLogPath)
	cfg := config.LoadConfig[config.Room](config.EnvConfig.RoomService, config.EnvConfig.RoomServiceYAMLPath)

	// 1. room storage directory, one sqlite file per room
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		logger.Log.Fatal(fmt.Sprintf("create storage dir %s err : %v", cfg.StorageDir, err))
	}

	// 2. redis connection (durable connection attachments)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. init repositories and the room hub
	attachRepo := repository.NewRedisAttachmentRepository(redisClient)
	logStore := repository.NewSQLiteLogStore(cfg.StorageDir)
	hub := app.NewHub(logStore, attachRepo, cfg.HistoryPageSize)
	defer hub.Shutdown()

	wsHandler := app.NewRoomWebsocketHandler(hub, cfg.SendBuffer)

	// 4. fiber app with access log
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RoomServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, wsHandler, hub)

	port := ":" + cfg.Port
	log.Printf("Room Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
