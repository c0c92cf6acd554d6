package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type realtimeEventPayload struct {
	BuildingID   string `json:"buildingId"`
	ImpressionID string `json:"impressionId,omitempty"`
	Timestamp    string `json:"timestamp"`
	Source       string `json:"source"`
}

type heartbeatPayload struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// handleEvents streams building events as server-sent events until the client disconnects.
func (h *httpHandler) handleEvents(c *gin.Context) {
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime events are disabled"})
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	c.SSEvent(realtimeEventHeartbeat, newHeartbeat())
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				BuildingID:   message.BuildingID,
				ImpressionID: message.ImpressionID,
				Timestamp:    message.Timestamp.UTC().Format(time.RFC3339Nano),
				Source:       realtimeSourceBackend,
			})
			return true
		case <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, newHeartbeat())
			return true
		}
	})
}

func newHeartbeat() heartbeatPayload {
	return heartbeatPayload{
		Source:    realtimeSourceBackend,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
