package summary

import (
	"fmt"
	"strings"

	"shipscan/scanner-api/internal/model"
)

var bucketLines = []struct {
	severity model.Severity
	format   string
}{
	{model.SeverityCritical, "- %d critical issues detected. You should fix these before shipping."},
	{model.SeverityHigh, "- %d high severity issues found. Prioritise these."},
	{model.SeverityMedium, "- %d medium issues worth addressing soon."},
	{model.SeverityLow, "- %d low severity findings (hardening and best practices)."},
	{model.SeverityInfo, "- %d informational findings."},
}

// Fallback builds a summary from severity counts alone. It is used when no
// completion API is configured or the API call fails.
func Fallback(target string, findings []model.Finding) string {
	if len(findings) == 0 {
		return fmt.Sprintf("No issues were detected for %s in this scan.", target)
	}

	counts := model.CountBySeverity(findings)
	lines := []string{fmt.Sprintf("Security scan summary for %s:", target)}
	for _, b := range bucketLines {
		if n := counts[b.severity]; n > 0 {
			lines = append(lines, fmt.Sprintf(b.format, n))
		}
	}
	return strings.Join(lines, "\n")
}
