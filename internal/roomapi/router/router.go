package router

import (
	"web_chat_service/internal/roomapi/app"
	"web_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// RegisterRoutes wires the room management routes
// @title Web Chat Room API
// @version 1.0
// @description Room management API for the web chat service
// @host localhost:8081
// @BasePath /
func RegisterRoutes(r *fiber.App, roomHandler *app.RoomHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	roomRoutes := r.Group("/room")
	roomRoutes.Use(middlewares.JWTMiddleware())

	roomRoutes.Post("/", roomHandler.CreateRoom)
	roomRoutes.Get("/", roomHandler.ListRooms)
	roomRoutes.Get("/info/:id", roomHandler.RoomInfo)
	roomRoutes.Delete("/:id", roomHandler.DeleteRoom)

	roomRoutes.Get("/favorite", roomHandler.ListFavorites)
	roomRoutes.Post("/:id/favorite", roomHandler.AddFavorite)
	roomRoutes.Delete("/favorite/:id", roomHandler.DeleteFavorite)

	roomRoutes.Get("/image", roomHandler.DownloadURL)
	roomRoutes.Post("/:id/image", roomHandler.UploadURLs)
}
