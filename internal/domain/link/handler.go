package link

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mediahub/internal/domain/media"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type attachRequest struct {
	MediaID          string  `json:"media_id" binding:"required"`
	Language         string  `json:"language"`
	Caption          *string `json:"caption"`
	IsPrimary        bool    `json:"is_primary"`
	DisplayOrder     *int    `json:"display_order"`
	Deferred         bool    `json:"deferred"`
	SupersedeCurrent bool    `json:"supersede_current"`
	ShowInTour       *bool   `json:"show_in_tour"`
	ShowPublic       *bool   `json:"show_public"`
}

// Attach godoc
// @Summary Attach a media asset to an owner in a role
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Owner type: asset|venue|visit_stop"
// @Param id path int true "Owner ID"
// @Param role path string true "Role"
// @Success 201 {object} map[string]interface{}
// @Failure 400,404,409,422 {object} map[string]interface{}
// @Router /owners/{type}/{id}/links/{role} [post]
func (h *Handler) Attach(c *gin.Context) {
	owner, role, ok := ownerRole(c)
	if !ok {
		return
	}
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "media_id is required"})
		return
	}

	l, err := h.service.Attach(c.Request.Context(), owner, role, req.MediaID, AttachOptions{
		Language:         req.Language,
		Caption:          req.Caption,
		IsPrimary:        req.IsPrimary,
		DisplayOrder:     req.DisplayOrder,
		Deferred:         req.Deferred,
		SupersedeCurrent: req.SupersedeCurrent,
		ShowInTour:       req.ShowInTour,
		ShowPublic:       req.ShowPublic,
	})
	if err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": l})
}

// ListGroup godoc
// @Summary List the current links of an (owner, role) group
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Router /owners/{type}/{id}/links/{role} [get]
func (h *Handler) ListGroup(c *gin.Context) {
	owner, role, ok := ownerRole(c)
	if !ok {
		return
	}
	links, err := h.service.ListGroup(c.Request.Context(), owner, role)
	if err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": links})
}

// ListOwner godoc
// @Summary List all current links of an owner, grouped by role
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Router /owners/{type}/{id}/links [get]
func (h *Handler) ListOwner(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	links, err := h.service.ListForOwner(c.Request.Context(), owner)
	if err != nil {
		writeLinkError(c, err)
		return
	}
	grouped := make(map[Role][]*Link)
	for _, l := range links {
		grouped[l.Role] = append(grouped[l.Role], l)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": grouped})
}

// Reorder godoc
// @Summary Reorder a group with a full permutation of its link ids
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /owners/{type}/{id}/links/{role}/order [put]
func (h *Handler) Reorder(c *gin.Context) {
	owner, role, ok := ownerRole(c)
	if !ok {
		return
	}
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ids is required"})
		return
	}
	if err := h.service.Reorder(c.Request.Context(), owner, role, req.IDs); err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "reordered"})
}

type replaceRequest struct {
	Links []struct {
		MediaID    string  `json:"media_id" binding:"required"`
		Language   string  `json:"language"`
		Caption    *string `json:"caption"`
		IsPrimary  bool    `json:"is_primary"`
		ShowInTour bool    `json:"show_in_tour"`
		ShowPublic bool    `json:"show_public"`
	} `json:"links"`
}

// Replace godoc
// @Summary Replace a whole (owner, role) group atomically
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /owners/{type}/{id}/links/{role}/replace [put]
func (h *Handler) Replace(c *gin.Context) {
	owner, role, ok := ownerRole(c)
	if !ok {
		return
	}
	var req replaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body"})
		return
	}
	entries := make([]GroupEntry, 0, len(req.Links))
	for _, e := range req.Links {
		entries = append(entries, GroupEntry{
			MediaID:    e.MediaID,
			Language:   e.Language,
			Caption:    e.Caption,
			IsPrimary:  e.IsPrimary,
			ShowInTour: e.ShowInTour,
			ShowPublic: e.ShowPublic,
		})
	}
	links, err := h.service.ReplaceGroup(c.Request.Context(), owner, role, entries)
	if err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": links})
}

// SetPrimary godoc
// @Summary Make a link the primary member of its group
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Router /owners/{type}/{id}/links/{role}/{linkID}/primary [post]
func (h *Handler) SetPrimary(c *gin.Context) {
	owner, role, ok := ownerRole(c)
	if !ok {
		return
	}
	if err := h.service.SetPrimary(c.Request.Context(), owner, role, c.Param("linkID")); err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "primary set"})
}

// SetVisibility godoc
// @Summary Toggle a visibility flag or caption on a link
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /links/{linkID}/visibility [patch]
func (h *Handler) SetVisibility(c *gin.Context) {
	var req struct {
		Field   string  `json:"field"`
		Value   bool    `json:"value"`
		Caption *string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body"})
		return
	}

	linkID := c.Param("linkID")
	var err error
	if req.Field != "" {
		err = h.service.SetVisibility(c.Request.Context(), linkID, req.Field, req.Value)
	} else if req.Caption != nil {
		err = h.service.SetCaption(c.Request.Context(), linkID, req.Caption)
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "field or caption is required"})
		return
	}
	if err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "updated"})
}

// Detach godoc
// @Summary Remove a link
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Router /links/{linkID} [delete]
func (h *Handler) Detach(c *gin.Context) {
	if err := h.service.Detach(c.Request.Context(), c.Param("linkID")); err != nil {
		writeLinkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "detached"})
}

func ownerParam(c *gin.Context) (Owner, bool) {
	ownerType := OwnerType(c.Param("type"))
	if !ownerType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown owner type"})
		return Owner{}, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid owner id"})
		return Owner{}, false
	}
	return Owner{Type: ownerType, ID: id}, true
}

func ownerRole(c *gin.Context) (Owner, Role, bool) {
	owner, ok := ownerParam(c)
	if !ok {
		return Owner{}, "", false
	}
	return owner, Role(c.Param("role")), true
}

func writeLinkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidOwner), errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidVisibility), errors.Is(err, ErrKindNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, ErrAssetNotReady):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, ErrLinkNotFound), errors.Is(err, media.ErrAssetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, ErrInvalidReorder), errors.Is(err, ErrPrimaryNotAllowed),
		errors.Is(err, ErrGroupConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "link operation failed"})
	}
}
