package handlers

import (
	"github.com/chatfront/chatfront-backend/internal/modules/chat/services"
	"github.com/chatfront/chatfront-backend/internal/shared/utils"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// FeedHandler serves the dashboard live feed over a websocket. Each
// connection joins its tenant's room and receives snapshot and
// suggestion events as JSON frames.
type FeedHandler struct {
	feedService *services.FeedService
}

func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// Upgrade gates the route so only websocket upgrade requests pass.
func (h *FeedHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream pumps feed events to the connected dashboard until either side
// closes. A reader goroutine drains client frames to detect disconnect.
func (h *FeedHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		businessID := conn.Params("businessId")
		sub := h.feedService.Subscribe(businessID)
		defer h.feedService.Unsubscribe(sub)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-sub.Events:
				if !ok {
					// dropped by the hub as a slow consumer
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					utils.LogWarn("feed write failed", map[string]interface{}{
						"business_id": businessID,
						"error":       err.Error(),
					})
					return
				}
			case <-closed:
				return
			}
		}
	})
}
