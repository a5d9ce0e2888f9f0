package media

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// webhookPayload is the processor's completion report.
type webhookPayload struct {
	MediaID       string    `json:"media_id" binding:"required"`
	Status        string    `json:"status" binding:"required"`
	Error         string    `json:"error"`
	ThumbnailPath string    `json:"thumbnail_path"`
	Metadata      *Metadata `json:"metadata"`
}

// WebhookHandler is the single inbound boundary for processing outcomes.
// Authentication (static processor bearer token) happens in middleware.
type WebhookHandler struct {
	service *Service
	links   Activator
}

// Activator finalizes links that were pre-declared against an asset that was
// still processing. Implemented by the link service.
type Activator interface {
	ActivatePending(ctx context.Context, mediaID string) (int, error)
}

func NewWebhookHandler(service *Service, links Activator) *WebhookHandler {
	return &WebhookHandler{service: service, links: links}
}

// HandleOutcome godoc
// @Summary Processing completion callback
// @Description Called by the trusted external processor. Idempotent on duplicate identical payloads.
// @Tags Internal
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,404,409,500 {object} map[string]interface{}
// @Router /internal/media/callback [post]
func (h *WebhookHandler) HandleOutcome(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "media_id and status are required"})
		return
	}

	asset, err := h.service.ReportOutcome(c.Request.Context(), payload.MediaID, Outcome{
		Status:        Status(payload.Status),
		Error:         payload.Error,
		ThumbnailPath: payload.ThumbnailPath,
		Metadata:      payload.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidOutcome):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, ErrAssetNotFound):
			// The caller must not retry; the id will never exist.
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "media asset not found"})
		case errors.Is(err, ErrConflictingOutcome):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "asset already has a different terminal outcome"})
		default:
			log.Printf("media_webhook store_update_failed media_id=%s error=%q", payload.MediaID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to record outcome"})
		}
		return
	}

	// Deferred attaches become live once the asset is ready. Failures here are
	// logged, not surfaced: the outcome itself was recorded.
	if asset.Status == StatusReady && h.links != nil {
		if n, err := h.links.ActivatePending(c.Request.Context(), asset.ID); err != nil {
			log.Printf("media_webhook activate_pending_failed media_id=%s error=%q", asset.ID, err)
		} else if n > 0 {
			log.Printf("media_webhook activated_pending_links media_id=%s count=%d", asset.ID, n)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
