package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Subscriber interface {
	Available() bool
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

type liveMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// LiveReadings streams every newly stored reading published on channel.
func LiveReadings(cache Subscriber, channel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed not configured", "kind": "unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, channel)
		defer pubsub.Close()
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				err := conn.WriteJSON(liveMessage{Type: "reading", Data: json.RawMessage(msg.Payload)})
				if err != nil {
					slog.Debug("ws write error", "error", err)
					return
				}
			}
		}
	}
}
