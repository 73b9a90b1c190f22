package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/amanigreeva/Sociosphere-sub001/internal/handlers"
	"github.com/amanigreeva/Sociosphere-sub001/internal/ws"
)

func Register(
	app *fiber.App,
	chatHandler *handlers.ChatHandler,
	messageHandler *handlers.MessageHandler,
	hub *ws.Hub,
	jwtMw fiber.Handler,
) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	chats := api.Group("/conversations")
	chats.Use(jwtMw)
	chats.Post("/direct", chatHandler.CreateDirect)
	chats.Post("/group", chatHandler.CreateGroup)
	chats.Get("/", chatHandler.List)
	chats.Get("/with/:user_id", chatHandler.GetBetween)
	chats.Put("/:conversation_id/name", chatHandler.Rename)
	chats.Put("/:conversation_id/image", chatHandler.SetGroupImage)
	chats.Post("/:conversation_id/members", chatHandler.AddMembers)
	chats.Post("/:conversation_id/leave", chatHandler.Leave)
	chats.Delete("/:conversation_id", chatHandler.Delete)
	chats.Post("/:conversation_id/read", chatHandler.MarkRead)
	chats.Post("/:conversation_id/clear", chatHandler.ClearHistory)

	messages := api.Group("/messages")
	messages.Use(jwtMw)
	messages.Post("/", messageHandler.Send)
	messages.Get("/:conversation_id", messageHandler.List)
	messages.Delete("/:message_id", messageHandler.Delete)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(hub.HandleWebsocket))
}
