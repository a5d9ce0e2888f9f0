package link

import "github.com/gin-gonic/gin"

// RegisterRoutes registers link endpoints under the protected group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	owners := r.Group("/owners/:type/:id/links")
	{
		owners.GET("", h.ListOwner)
		owners.GET("/:role", h.ListGroup)
		owners.POST("/:role", h.Attach)
		owners.PUT("/:role/order", h.Reorder)
		owners.PUT("/:role/replace", h.Replace)
		owners.POST("/:role/:linkID/primary", h.SetPrimary)
	}
	links := r.Group("/links")
	{
		links.PATCH("/:linkID/visibility", h.SetVisibility)
		links.DELETE("/:linkID", h.Detach)
	}
}
