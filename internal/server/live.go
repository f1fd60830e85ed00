package server

import (
	"log"

	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade rejects plain HTTP requests to the live feed endpoint.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return respondWithErrors(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required", nil)
}

// LiveFeedHandler streams feed events to the connected client. Anonymous viewers
// are allowed; the socket is push-only and incoming frames are discarded.
func (s *Server) LiveFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		var uid uint
		if v, ok := conn.Locals("userID").(uint); ok {
			uid = v
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket Feed: Failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		// Start pumps
		go client.WritePump()
		client.ReadPump()
	})
}
