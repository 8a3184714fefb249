package main

import (
	"web_chat_service/internal/roomapi/router"

	"github.com/gofiber/fiber/v2"
)

// Registers the HTTP routes so swag can walk them.
// swag init output ./docs
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, nil)
}
