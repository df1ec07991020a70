package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Register mounts the battle view routes. Everything except the health
// check runs behind the viewer cookie.
func Register(app *fiber.App, h *Handler, ws *WebSocketHandler) {
	app.Get("/healthz", h.Healthz)

	app.Use(h.ViewerMiddleware)

	app.Get("/", h.BattlePage)
	app.Get("/api/view", h.ViewJSON)

	app.Post("/battle", h.StartBattle)
	battle := app.Group("/battle")
	battle.Post("/round", h.NextRound)
	battle.Post("/vote", h.Vote)
	battle.Post("/votes", h.RefreshVotes)
	battle.Post("/reset", h.Reset)

	app.Get("/ws", ws.WebSocketMiddleware, websocket.New(ws.HandleWebSocket))
}
