package nuclei

import (
	"strings"

	"shipscan/scanner-api/internal/model"
)

var severityHints = []struct {
	fragments []string
	severity  model.Severity
}{
	{[]string{"crit", "crt"}, model.SeverityCritical},
	{[]string{"high", "hgh"}, model.SeverityHigh},
	{[]string{"med", "moderate"}, model.SeverityMedium},
	{[]string{"low"}, model.SeverityLow},
	{[]string{"info"}, model.SeverityInfo},
}

// NormalizeSeverity maps scanner severity strings onto the five known levels.
// Unrecognised values become info.
func NormalizeSeverity(s string) model.Severity {
	s = strings.ToLower(strings.TrimSpace(s))

	if sev := model.Severity(s); sev.Valid() {
		return sev
	}
	for _, h := range severityHints {
		for _, frag := range h.fragments {
			if strings.Contains(s, frag) {
				return h.severity
			}
		}
	}
	return model.SeverityInfo
}
