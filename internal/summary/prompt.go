package summary

import (
	"encoding/json"
	"fmt"

	"shipscan/scanner-api/internal/model"
)

const maxPromptFindings = 50

const systemPrompt = "You are a helpful security expert who explains security issues in clear, actionable terms for non-technical founders."

const promptTemplate = `You are a security expert helping a non-technical founder understand security scan results.

This is output from an automated security scan similar to Nuclei. The findings below represent potential security issues detected on the target application.

Target URL: %s

Security Findings (JSON):
%s%s

Please provide a structured summary using markdown headings. Format your response exactly as follows:

## Summary
Provide 2-4 short bullet points giving a high-level overview of what was found. Keep this brief and non-technical.

## Risk
Provide an overall risk rating: "Low", "Medium", "High", or "Critical". Then add one line explaining why (e.g., "Critical: Multiple critical vulnerabilities detected that could lead to data breaches").

## Fix this first
List 3-6 bullet points ordered by impact. Each bullet should include:
- Issue type (e.g., "Missing security headers")
- Impact (e.g., "exposes your app to XSS attacks")
- Simple fix suggestion (e.g., "Add Content-Security-Policy header")

Focus on the most critical issues first. Be specific but keep language simple for a non-security expert.

## Okay to ship?
Provide one line recommendation: "Safe for private beta", "Safe for public beta", or "Not safe yet" - based on the severity of findings. Add a brief reason if needed.

Keep the entire response concise and actionable. Use simple language throughout.`

// BuildPrompt renders the user prompt over at most the first 50 findings.
func BuildPrompt(target string, findings []model.Finding) (string, error) {
	included := findings
	note := ""
	if len(findings) > maxPromptFindings {
		included = findings[:maxPromptFindings]
		note = fmt.Sprintf("\n\nNote: Showing first %d of %d findings.", maxPromptFindings, len(findings))
	}
	if included == nil {
		included = []model.Finding{}
	}

	raw, err := json.MarshalIndent(included, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}
	return fmt.Sprintf(promptTemplate, target, raw, note), nil
}
