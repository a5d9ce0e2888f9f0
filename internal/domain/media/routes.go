package media

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the public media endpoints under the scoped group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, stream *StreamHandler) {
	m := r.Group("/media")
	{
		m.POST("", h.Upload)
		m.GET("", h.ListMine)
		m.GET("/:id", h.GetByID)
		m.GET("/:id/status", h.Status)
		m.GET("/:id/status/stream", stream.Stream)
		m.PATCH("/:id/tags", h.UpdateTags)
		m.DELETE("/:id", h.Delete)
	}
}

// RegisterWebhookRoutes registers the processor callback. The group must be
// protected by the processor token middleware.
func RegisterWebhookRoutes(r *gin.RouterGroup, h *WebhookHandler) {
	r.POST("/media/callback", h.HandleOutcome)
}
