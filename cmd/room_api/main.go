package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"web_chat_service/internal/roomapi/app"
	"web_chat_service/internal/roomapi/repository"
	"web_chat_service/internal/roomapi/router"
	"web_chat_service/pkg/config"
	"web_chat_service/pkg/database"
	"web_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RoomAPI, config.EnvConfig.RoomAPILogPath)
	cfg := config.LoadConfig[config.RoomAPI](config.EnvConfig.RoomAPI, config.EnvConfig.RoomAPIYAMLPath)

	// 1. postgres connection for room metadata
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr: fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.PostgreSQL.Host,
			cfg.PostgreSQL.Port,
			cfg.PostgreSQL.User,
			cfg.PostgreSQL.Password,
			cfg.PostgreSQL.Database,
		),
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}

	roomRepo := repository.NewRoomRepository(db)
	if err := roomRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal(fmt.Sprintf("migrate postgres err : %v", err))
	}

	// 2. minio connection for image uploads
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	// 3. usecases and handler
	coordinator := repository.NewCoordinatorClient(
		fmt.Sprintf("http://%s:%s", cfg.RoomService.Name, cfg.RoomService.Port))
	roomUseCase := app.NewRoomUseCase(roomRepo, coordinator, int64(cfg.RoomLimit))
	imageUseCase := app.NewImageUseCase(minioClient, cfg.MinIO.PresignExpiry)
	roomHandler := app.NewRoomHandler(roomUseCase, imageUseCase)

	// 4. fiber app with access log
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RoomAPILogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, roomHandler)

	port := ":" + cfg.Port
	log.Printf("Room API listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
