package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"form-workflow-api/models"
	"form-workflow-api/services"
	"form-workflow-api/utils"
)

type FormController struct {
	forms *services.FormService
	audit *services.AuditService
}

func NewFormController(forms *services.FormService, audit *services.AuditService) *FormController {
	return &FormController{forms: forms, audit: audit}
}

type submitFormReq struct {
	TemplateID uint                   `json:"template_id" binding:"required"`
	FormData   map[string]interface{} `json:"form_data"`
}

type decisionReq struct {
	Comments *string `json:"comments"`
}

type bulkDecisionReq struct {
	FormIDs  []uint  `json:"form_ids" binding:"required"`
	Comments *string `json:"comments"`
}

type updateStepReq struct {
	Step     int                    `json:"step"`
	FormData map[string]interface{} `json:"form_data"`
}

type commentReq struct {
	Comment string `json:"comment" binding:"required"`
}

type attachmentReq struct {
	OriginalName string `json:"original_name" binding:"required"`
	StoredPath   string `json:"stored_path" binding:"required"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
}

// canView lets students see their own forms and reviewers see any form.
func canView(actor services.Actor, form *models.Form) bool {
	return form.StudentID == actor.UserID || actor.HasRole(models.RoleApprover, models.RoleAdmin)
}

func (h *FormController) Submit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req submitFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.FormData == nil {
		req.FormData = map[string]interface{}{}
	}

	res, err := h.forms.Submit(c.Request.Context(), actor, req.TemplateID, req.FormData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"form":     res.Form,
		"warnings": warningStrings(res.Warnings),
	})
}

func (h *FormController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	form, err := h.forms.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canView(actor, form) {
		respondError(c, services.ErrFormNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": form})
}

func (h *FormController) ListMine(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	forms, err := h.forms.ListForStudent(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": forms})
}

func (h *FormController) ListPending(c *gin.Context) {
	forms, err := h.forms.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": forms})
}

func (h *FormController) Filter(c *gin.Context) {
	filter := services.FormFilter{
		Type:        utils.SanitizeText(c.Query("type"), 191),
		StudentName: utils.SanitizeText(c.Query("studentName"), 100),
		Keyword:     utils.SanitizeText(c.Query("keyword"), 100),
	}
	status, err := utils.ParseFormStatus(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Status = string(status)

	forms, err := h.forms.Filter(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": forms})
}

func (h *FormController) UpdateStep(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req updateStepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.forms.UpdateStep(c.Request.Context(), actor, id, req.Step, req.FormData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"form":     res.Form,
		"warnings": warningStrings(res.Warnings),
	})
}

func (h *FormController) Approve(c *gin.Context) {
	h.decide(c, h.forms.Approve)
}

func (h *FormController) Reject(c *gin.Context) {
	h.decide(c, h.forms.Reject)
}

type decisionFunc func(ctx context.Context, actor services.Actor, formID uint, comments *string) (*services.TransitionResult, error)

func (h *FormController) decide(c *gin.Context, apply decisionFunc) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req decisionReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Comments = sanitizedComments(req.Comments)

	res, err := apply(c.Request.Context(), actor, id, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"form":     res.Form,
		"warnings": warningStrings(res.Warnings),
	})
}

func (h *FormController) BulkApprove(c *gin.Context) {
	h.bulk(c, h.forms.BulkApprove)
}

func (h *FormController) BulkReject(c *gin.Context) {
	h.bulk(c, h.forms.BulkReject)
}

func (h *FormController) bulk(c *gin.Context, apply func(ctx context.Context, actor services.Actor, formIDs []uint, comments *string) *services.BulkResult) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req bulkDecisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(req.FormIDs) > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at most 200 forms per request"})
		return
	}

	res := apply(c.Request.Context(), actor, req.FormIDs, sanitizedComments(req.Comments))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"forms":   res.Forms,
		"items":   res.Items,
	})
}

func (h *FormController) AddComment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	comment, err := h.forms.AddComment(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "comment": comment})
}

func (h *FormController) ListComments(c *gin.Context) {
	form, ok := h.visibleForm(c)
	if !ok {
		return
	}
	comments, err := h.forms.ListComments(c.Request.Context(), form.FormID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": comments})
}

func (h *FormController) AttachFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req attachmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	att, warnings, err := h.forms.AttachFile(c.Request.Context(), actor, id, services.AttachmentMeta{
		OriginalName: utils.SanitizeText(req.OriginalName, 255),
		StoredPath:   utils.SanitizeInput(req.StoredPath),
		FileSize:     req.FileSize,
		MimeType:     utils.SanitizeText(req.MimeType, 100),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"attachment": att,
		"warnings":   warningStrings(warnings),
	})
}

func (h *FormController) ListAttachments(c *gin.Context) {
	form, ok := h.visibleForm(c)
	if !ok {
		return
	}
	items, err := h.forms.ListAttachments(c.Request.Context(), form.FormID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *FormController) DetachFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := uintParam(c, "attachmentId")
	if !ok {
		return
	}

	warnings, err := h.forms.DetachFile(c.Request.Context(), actor, id, attachmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "warnings": warningStrings(warnings)})
}

func (h *FormController) AuditTrail(c *gin.Context) {
	form, ok := h.visibleForm(c)
	if !ok {
		return
	}
	logs, err := h.audit.ForForm(c.Request.Context(), form.FormID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

// visibleForm loads the :id form and hides it from students who do not own it.
func (h *FormController) visibleForm(c *gin.Context) (*models.Form, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return nil, false
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return nil, false
	}
	form, err := h.forms.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !canView(actor, form) {
		respondError(c, services.ErrFormNotFound)
		return nil, false
	}
	return form, true
}

func sanitizedComments(comments *string) *string {
	if comments == nil {
		return nil
	}
	v := utils.SanitizeText(*comments, 2000)
	if v == "" {
		return nil
	}
	return &v
}
