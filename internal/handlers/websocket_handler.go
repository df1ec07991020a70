package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/latestcomment/ai-battle-arena/internal/models"
	"github.com/latestcomment/ai-battle-arena/internal/services"
)

type WebSocketHandler struct {
	Service *services.BattleService
}

func NewWebSocketHandler(service *services.BattleService) *WebSocketHandler {
	return &WebSocketHandler{Service: service}
}

func (h *WebSocketHandler) WebSocketMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket pushes the viewer's View on join and after every change
// until the page goes away. Incoming frames are ignored.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()

	id, ok := c.Locals("viewer").(uuid.UUID)
	if !ok || id == uuid.Nil {
		return
	}
	sess := h.Service.Session(context.Background(), id)

	watcher := &models.Watcher{
		Id:   uuid.New(),
		Conn: c,
	}
	h.Service.AddWatcher(sess, watcher)
	defer h.Service.RemoveWatcher(sess, watcher)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
