package media

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS middleware on the HTTP side; the stream
	// carries status snapshots only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler pushes status snapshots over a websocket until the asset
// reaches a terminal state. It is a push substitute for client polling and is
// purely observational — closing the socket never affects ingestion.
type StreamHandler struct {
	service  *Service
	interval time.Duration
}

func NewStreamHandler(service *Service, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StreamHandler{service: service, interval: interval}
}

type statusFrame struct {
	ID              string `json:"id"`
	Status          Status `json:"status"`
	ThumbnailPath   string `json:"thumbnail_path,omitempty"`
	ProcessingError string `json:"processing_error,omitempty"`
}

// Stream handles GET /media/:id/status/stream.
func (h *StreamHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.GetStatus(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "media asset not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("media_stream upgrade_failed media_id=%s error=%q", id, err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		asset, err := h.service.GetStatus(ctx, id)
		if err != nil {
			return
		}

		frame := statusFrame{ID: asset.ID, Status: asset.Status}
		if asset.ThumbnailPath != nil {
			frame.ThumbnailPath = *asset.ThumbnailPath
		}
		if asset.ProcessingError != nil {
			frame.ProcessingError = *asset.ProcessingError
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
		if asset.Status.Terminal() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(asset.Status)))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
