package utils

import (
	"fmt"
	"strings"

	"form-workflow-api/models"
)

var (
	statusSynonyms = map[models.FormStatus][]string{
		models.FormStatusPending: {
			"0",
			"pending",
			"submitted",
			"in_review",
		},
		models.FormStatusApproved: {
			"1",
			"approved",
			"approve",
		},
		models.FormStatusRejected: {
			"2",
			"rejected",
			"reject",
			"denied",
		},
	}
	statusAliasToCanonical = buildStatusAliasMap()
)

func buildStatusAliasMap() map[string]models.FormStatus {
	aliasMap := make(map[string]models.FormStatus)
	for canonical, synonyms := range statusSynonyms {
		aliasMap[normalizeStatusCode(string(canonical))] = canonical
		for _, alias := range synonyms {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.NewReplacer("-", "_", " ", "_").Replace(code)
}

// NormalizeFormStatus maps a status name, numeric code or alias to its FormStatus.
func NormalizeFormStatus(raw string) (models.FormStatus, bool) {
	status, ok := statusAliasToCanonical[normalizeStatusCode(raw)]
	return status, ok
}

// ParseFormStatus is NormalizeFormStatus with an error for unknown input. Empty input yields "".
func ParseFormStatus(raw string) (models.FormStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	status, ok := NormalizeFormStatus(raw)
	if !ok {
		return "", fmt.Errorf("unknown form status %q", raw)
	}
	return status, nil
}
