package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"form-workflow-api/services"
)

type TemplateController struct {
	templates services.TemplateStore
}

func NewTemplateController(templates services.TemplateStore) *TemplateController {
	return &TemplateController{templates: templates}
}

func (h *TemplateController) ListActive(c *gin.Context) {
	items, err := h.templates.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListAvailable returns the active templates open to the caller's department.
func (h *TemplateController) ListAvailable(c *gin.Context) {
	department := c.Query("department")
	if department == "" {
		department = c.GetString("department")
	}
	items, err := h.templates.ListAvailableFor(c.Request.Context(), department)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Get returns one template with its required fields and decoded field schema.
func (h *TemplateController) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	tmpl, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	schema, err := tmpl.FieldSchema()
	if err != nil {
		respondError(c, err)
		return
	}
	required, err := tmpl.RequiredFieldNames()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"template":        tmpl,
		"required_fields": required,
		"field_schema":    schema,
	})
}
