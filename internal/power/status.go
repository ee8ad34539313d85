package power

import (
	"strconv"
	"strings"

	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// ClassifyStatus normalizes the raw result of a status query. A result
// that parses as an integer is taken as a PowerStatus value directly.
// Anything else is classified by case-insensitive substring: "off" wins
// over "on", everything else is unknown.
func ClassifyStatus(raw string) domain.PowerStatus {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.StatusUnknown
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return domain.PowerStatus(n)
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "off") {
		return domain.StatusOff
	}
	if strings.Contains(lower, "on") {
		return domain.StatusOn
	}
	return domain.StatusUnknown
}
