package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"form-workflow-api/models"
	"form-workflow-api/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// List returns the caller's notifications, optionally narrowed by ?type= or ?unreadOnly=true.
func (h *NotificationController) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var (
		items []models.Notification
		err   error
	)
	unreadOnly := strings.TrimSpace(c.Query("unreadOnly"))
	typeTag := strings.TrimSpace(c.Query("type"))
	switch {
	case unreadOnly == "1" || strings.EqualFold(unreadOnly, "true"):
		items, err = h.notifications.ListUnread(c.Request.Context(), actor.UserID)
	case typeTag != "":
		items, err = h.notifications.ListByType(c.Request.Context(), actor.UserID, typeTag)
	default:
		items, err = h.notifications.ListForUser(c.Request.Context(), actor.UserID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *NotificationController) Unread(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	items, err := h.notifications.ListUnread(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "unread": len(items)})
}

func (h *NotificationController) ForForm(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	formID, ok := uintParam(c, "formId")
	if !ok {
		return
	}
	items, err := h.notifications.ListForForm(c.Request.Context(), actor.UserID, formID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *NotificationController) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	stats, err := h.notifications.Stats(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *NotificationController) MarkRead(c *gin.Context) {
	id, ok := h.ownedNotification(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), id)
	h.respondUpdated(c, n, err)
}

func (h *NotificationController) Archive(c *gin.Context) {
	id, ok := h.ownedNotification(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkArchived(c.Request.Context(), id)
	h.respondUpdated(c, n, err)
}

func (h *NotificationController) MarkAllRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func (h *NotificationController) Delete(c *gin.Context) {
	id, ok := h.ownedNotification(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ownedNotification resolves :id and answers 404 unless it belongs to the caller.
func (h *NotificationController) ownedNotification(c *gin.Context) (uint, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return 0, false
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return 0, false
	}
	n, err := h.notifications.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	if n == nil || n.UserID != actor.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return 0, false
	}
	return id, true
}

func (h *NotificationController) respondUpdated(c *gin.Context, n *models.Notification, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notification": n})
}
