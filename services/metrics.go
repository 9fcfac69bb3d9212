package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_workflow_transitions_total",
			Help: "Form status transitions attempted, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_workflow_notifications_total",
			Help: "Notifications created, by type tag",
		},
		[]string{"type"},
	)

	sideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_workflow_side_effect_failures_total",
			Help: "Notification, audit and e-mail writes that failed after a committed change",
		},
		[]string{"kind"},
	)

	bulkItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_workflow_bulk_items_total",
			Help: "Items processed by bulk approve/reject, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	retentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "form_workflow_notifications_swept_total",
			Help: "Notifications deleted by the retention sweep",
		},
	)
)

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
