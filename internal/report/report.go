// Package report renders scan jobs for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"shipscan/scanner-api/internal/model"
)

var severityColors = map[model.Severity]*color.Color{
	model.SeverityCritical: color.New(color.FgHiRed, color.Bold),
	model.SeverityHigh:     color.New(color.FgRed),
	model.SeverityMedium:   color.New(color.FgYellow),
	model.SeverityLow:      color.New(color.FgCyan),
	model.SeverityInfo:     color.New(color.FgHiBlack),
}

var statusColors = map[model.Status]*color.Color{
	model.StatusPending:  color.New(color.FgHiBlack),
	model.StatusRunning:  color.New(color.FgYellow),
	model.StatusComplete: color.New(color.FgGreen),
	model.StatusError:    color.New(color.FgRed, color.Bold),
}

// Severity returns the padded, colored severity label.
func Severity(s model.Severity) string {
	label := fmt.Sprintf("%-8s", strings.ToUpper(string(s)))
	if c, ok := severityColors[s]; ok {
		return c.Sprint(label)
	}
	return label
}

func Status(s model.Status) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}

// SortFindings orders by severity (most severe first), then by id.
func SortFindings(findings []model.Finding) []model.Finding {
	out := model.CloneFindings(findings)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Print writes a human readable view of job.
func Print(w io.Writer, job model.ScanJob) {
	fmt.Fprintf(w, "[*] Scan %s\n", job.ID)
	fmt.Fprintf(w, "    target:  %s\n", job.URL)
	fmt.Fprintf(w, "    status:  %s\n", Status(job.Status))
	fmt.Fprintf(w, "    updated: %s\n", job.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	if job.Status == model.StatusError {
		fmt.Fprintf(w, "[-] %s\n", job.ErrorMessage)
		return
	}
	if job.Status != model.StatusComplete {
		return
	}

	fmt.Fprintf(w, "\n[+] %d findings\n", len(job.Findings))
	for _, f := range SortFindings(job.Findings) {
		fmt.Fprintf(w, "  %s %s (%s)\n", Severity(f.Severity), f.Name, f.ID)
		fmt.Fprintf(w, "           %s\n", f.MatchedAt)
	}

	if job.AISummary != "" {
		fmt.Fprintf(w, "\n%s\n", job.AISummary)
	}
}
