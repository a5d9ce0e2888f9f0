package media

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler handles the public media endpoints. Requests are scoped to a
// property by the scope middleware; ownership checks beyond that are out of
// scope here.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload godoc
// @Summary Upload a media file
// @Description Accepts a file plus its declared kind. Returns immediately after the bytes are durable; processing continues asynchronously.
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Param kind formData string true "Declared kind: image|video|audio|document"
// @Success 201 {object} map[string]interface{}
// @Failure 400,401,413,502 {object} map[string]interface{}
// @Router /media [post]
func (h *Handler) Upload(c *gin.Context) {
	propertyID := mustPropertyID(c)
	if propertyID == 0 {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no file provided"})
		return
	}
	kind := Kind(strings.TrimSpace(c.PostForm("kind")))

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable file"})
		return
	}
	defer file.Close()

	asset, err := h.service.Submit(c.Request.Context(), propertyID, SubmitInput{
		FileName: fileHeader.Filename,
		Kind:     kind,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrInvalidMimeType),
			errors.Is(err, ErrKindMismatch), errors.Is(err, ErrInvalidKind):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, ErrStorage):
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "storage failure, retry the upload"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "upload failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": assetJSON(asset)})
}

// Status godoc
// @Summary Get processing status for an asset
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /media/{id}/status [get]
func (h *Handler) Status(c *gin.Context) {
	asset, err := h.service.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "media asset not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": statusJSON(asset)})
}

// GetByID godoc
// @Summary Get full asset metadata
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /media/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	asset, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "media asset not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": assetJSON(asset)})
}

// ListMine godoc
// @Summary List assets for the scoped property
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /media [get]
func (h *Handler) ListMine(c *gin.Context) {
	propertyID := mustPropertyID(c)
	if propertyID == 0 {
		return
	}

	assets, err := h.service.ListByProperty(c.Request.Context(), propertyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list media"})
		return
	}

	items := make([]gin.H, 0, len(assets))
	for _, a := range assets {
		items = append(items, assetJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

// UpdateTags godoc
// @Summary Replace the asset's tag set
// @Tags Media
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]interface{}
// @Router /media/{id}/tags [patch]
func (h *Handler) UpdateTags(c *gin.Context) {
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body"})
		return
	}

	asset, err := h.service.UpdateTags(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "media asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update tags"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": assetJSON(asset)})
}

// Delete godoc
// @Summary Delete an unreferenced asset
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,409 {object} map[string]interface{}
// @Router /media/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted"})
	case errors.Is(err, ErrAssetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "media asset not found"})
	case errors.Is(err, ErrAssetLinked):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "asset is still linked; detach it first"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
	}
}

func assetJSON(a *Asset) gin.H {
	out := gin.H{
		"id":         a.ID,
		"url":        a.FileURL,
		"name":       a.OriginalName,
		"kind":       a.Kind,
		"mime_type":  a.MimeType,
		"size":       a.SizeBytes,
		"status":     a.Status,
		"tags":       a.TagList(),
		"created_at": a.CreatedAt,
	}
	if a.ThumbnailPath != nil {
		out["thumbnail_path"] = *a.ThumbnailPath
	}
	if a.DurationSeconds != nil {
		out["duration_seconds"] = *a.DurationSeconds
	}
	if a.ProcessingError != nil {
		out["processing_error"] = *a.ProcessingError
	}
	if len(a.Metadata) > 0 {
		if m, err := DecodeMetadata(a.Metadata); err == nil && m != nil {
			out["metadata"] = m
		}
	}
	return out
}

func statusJSON(a *Asset) gin.H {
	out := gin.H{"id": a.ID, "status": a.Status}
	if a.ThumbnailPath != nil {
		out["thumbnail_path"] = *a.ThumbnailPath
	}
	if a.ProcessingError != nil {
		out["processing_error"] = *a.ProcessingError
	}
	return out
}

func mustPropertyID(c *gin.Context) int64 {
	id, exists := c.Get("property_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return 0
	}
	switch v := id.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid property id"})
	return 0
}
