package services

import (
	"context"

	"form-workflow-api/models"
)

const (
	BulkOutcomeSuccess = "success"
	BulkOutcomeError   = "error"
)

// BulkItem is the outcome of one id in a bulk call.
type BulkItem struct {
	FormID    uint      `json:"form_id"`
	Outcome   string    `json:"outcome"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// BulkResult holds the forms that changed, in input order, and one item per input id.
// A failed id never aborts the batch and never appears in Forms.
type BulkResult struct {
	Forms []models.Form `json:"forms"`
	Items []BulkItem    `json:"items"`
}

// Succeeded returns the ids that transitioned.
func (r *BulkResult) Succeeded() []uint {
	ids := make([]uint, 0, len(r.Forms))
	for _, f := range r.Forms {
		ids = append(ids, f.FormID)
	}
	return ids
}

func (s *FormService) BulkApprove(ctx context.Context, actor Actor, formIDs []uint, comments *string) *BulkResult {
	return s.bulk(ctx, ActionApprove, formIDs, func(id uint) (*TransitionResult, error) {
		return s.Approve(ctx, actor, id, comments)
	})
}

func (s *FormService) BulkReject(ctx context.Context, actor Actor, formIDs []uint, comments *string) *BulkResult {
	return s.bulk(ctx, ActionReject, formIDs, func(id uint) (*TransitionResult, error) {
		return s.Reject(ctx, actor, id, comments)
	})
}

func (s *FormService) bulk(ctx context.Context, action string, formIDs []uint, apply func(uint) (*TransitionResult, error)) *BulkResult {
	result := &BulkResult{
		Forms: make([]models.Form, 0, len(formIDs)),
		Items: make([]BulkItem, 0, len(formIDs)),
	}

	for _, id := range formIDs {
		item := BulkItem{FormID: id}
		if err := ctx.Err(); err != nil {
			item.Outcome = BulkOutcomeError
			item.Error = err.Error()
			result.Items = append(result.Items, item)
			bulkItemsTotal.WithLabelValues(action, "canceled").Inc()
			continue
		}

		res, err := apply(id)
		bulkItemsTotal.WithLabelValues(action, outcomeLabel(err)).Inc()
		if err != nil {
			item.Outcome = BulkOutcomeError
			item.ErrorKind = KindOf(err)
			item.Error = err.Error()
			result.Items = append(result.Items, item)
			continue
		}

		item.Outcome = BulkOutcomeSuccess
		for _, w := range res.Warnings {
			item.Warnings = append(item.Warnings, w.Error())
		}
		result.Items = append(result.Items, item)
		result.Forms = append(result.Forms, *res.Form)
	}
	return result
}
