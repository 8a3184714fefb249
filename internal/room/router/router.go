package router

import (
	"context"

	"web_chat_service/internal/room/app"
	"web_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the room coordinator routes
func RegisterRoutes(r *fiber.App, wsHandler *app.RoomWebsocketHandler, hub *app.Hub) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/room/:id/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	// Called by the room management API while deleting a room.
	r.Delete("/room/:id/storage", func(c *fiber.Ctx) error {
		if err := hub.WipeRoom(c.Context(), c.Params("id")); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
