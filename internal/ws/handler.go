package ws

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

const (
	readLimit    = 32 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// HandleWebsocket runs the read loop for one connection. The client must
// send an identify frame before it is registered for pushes; everything
// else it sends is ignored (messages go through the HTTP API).
func (h *Hub) HandleWebsocket(c *websocket.Conn) {
	defer c.Close()

	c.SetReadLimit(readLimit)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	connID := uuid.NewString()
	joined := false
	defer func() {
		if joined {
			h.Leave(connID)
		}
	}()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go h.pingLoop(c, stopPing)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		var ev models.Envelope
		if err := json.Unmarshal(data, &ev); err != nil {
			// ignore invalid JSON from client, don't disconnect
			continue
		}
		if ev.Type == models.EventIdentify && ev.UserID != "" && !joined {
			h.Join(ev.UserID, connID, c)
			joined = true
		}
	}
}

func (h *Hub) pingLoop(c *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
