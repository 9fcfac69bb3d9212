package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"form-workflow-api/services"
)

type AuditController struct {
	audit *services.AuditService
}

func NewAuditController(audit *services.AuditService) *AuditController {
	return &AuditController{audit: audit}
}

// Search filters by ?action=&entityType=&from=&to=. With no filter it returns the newest entries.
func (h *AuditController) Search(c *gin.Context) {
	from, ok := timeQuery(c, "from", false)
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to", true)
	if !ok {
		return
	}
	filter := services.AuditSearch{
		Action:     strings.ToUpper(strings.TrimSpace(c.Query("action"))),
		EntityType: strings.ToUpper(strings.TrimSpace(c.Query("entityType"))),
		From:       from,
		To:         to,
	}

	if filter == (services.AuditSearch{}) {
		logs, err := h.audit.Recent(c.Request.Context(), intQuery(c, "limit", 100))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": logs})
		return
	}

	logs, err := h.audit.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

func (h *AuditController) ByUser(c *gin.Context) {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	page := intQuery(c, "page", 1)
	size := intQuery(c, "size", 20)

	logs, total, err := h.audit.ForActor(c.Request.Context(), userID, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": logs,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func (h *AuditController) Stats(c *gin.Context) {
	counts, err := h.audit.CountsByAction(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}
