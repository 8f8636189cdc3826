package tests

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"shipscan/scanner-api/internal/model"
	"shipscan/scanner-api/internal/scanners/nuclei"
)

// TestNucleiParserSkipsGarbage ensures malformed lines do not abort parsing
func TestNucleiParserSkipsGarbage(t *testing.T) {
	raw := strings.Join([]string{
		`{{{{`,
		`[INF] Using Nuclei Engine 3.2.9`,
		`{"template-id":"git-config","info":{"name":"Git Config","severity":"high"},"matched-at":"https://a.test/.git/config"}`,
		`{"info":{"name":"no template id"}}`,
		``,
		`{"template-id":"tls-version","info":{"name":"TLS","severity":"info"},"host":"a.test:443"`,
	}, "\n")

	findings, err := nuclei.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parser rejected mixed input: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].ID != "git-config" {
		t.Errorf("expected id git-config, got %s", findings[0].ID)
	}
}

// TestNucleiParserAcceptsValidJSONL ensures every field is mapped
func TestNucleiParserAcceptsValidJSONL(t *testing.T) {
	raw := `{"template-id":"cors-misconfig","info":{"name":"CORS Misconfiguration","severity":"MEDIUM","description":" reflects origin ","tags":["cors","misconfig","cors"]},"host":"https://a.test","matched-at":"https://a.test/api"}
{"template-id":"tech-detect","info":{"severity":"info","tags":"tech, nginx,"},"host":"https://a.test"}`

	findings, err := nuclei.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parser rejected valid jsonl: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}

	want := model.Finding{
		ID:          "cors-misconfig",
		Name:        "CORS Misconfiguration",
		Description: "reflects origin",
		Severity:    model.SeverityMedium,
		MatchedAt:   "https://a.test/api",
		Tags:        []string{"cors", "misconfig"},
	}
	if !reflect.DeepEqual(findings[0], want) {
		t.Errorf("unexpected finding:\n got %+v\nwant %+v", findings[0], want)
	}

	f := findings[1]
	if f.Name != "tech-detect" {
		t.Errorf("expected name to fall back to template id, got %s", f.Name)
	}
	if f.MatchedAt != "https://a.test" {
		t.Errorf("expected matchedAt to fall back to host, got %s", f.MatchedAt)
	}
	if !reflect.DeepEqual(f.Tags, []string{"tech", "nginx"}) {
		t.Errorf("unexpected tags %v", f.Tags)
	}
}

// TestNucleiParserEmptyOutput handles a scan with zero results
func TestNucleiParserEmptyOutput(t *testing.T) {
	findings, err := nuclei.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parser failed on empty output: %v", err)
	}
	if findings == nil || len(findings) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", findings)
	}
}

// TestNucleiParserReaderError surfaces a failing reader
func TestNucleiParserReaderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := nuclei.Parse(iotest.ErrReader(boom))
	if !errors.Is(err, boom) {
		t.Fatalf("expected reader error, got %v", err)
	}
}

// TestNucleiParserSkipsOversizedLines drops lines over the size limit and keeps reading
func TestNucleiParserSkipsOversizedLines(t *testing.T) {
	huge := `{"template-id":"huge","info":{"name":"Huge","severity":"high","description":"` +
		strings.Repeat("a", nuclei.MaxLineBytes) + `"},"matched-at":"https://a.test"}`
	fits := `{"template-id":"fits","info":{"name":"Fits","severity":"low","description":"` +
		strings.Repeat("b", nuclei.MaxLineBytes/2) + `"},"matched-at":"https://a.test"}`
	small := `{"template-id":"small","info":{"name":"Small","severity":"info"},"matched-at":"https://a.test"}`

	raw := strings.Join([]string{huge, fits, huge, small}, "\n")

	findings, err := nuclei.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parser failed on oversized line: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].ID != "fits" || findings[1].ID != "small" {
		t.Errorf("unexpected findings %s, %s", findings[0].ID, findings[1].ID)
	}
}

// TestNucleiParserOversizedLastLine skips an oversized line with no trailing newline
func TestNucleiParserOversizedLastLine(t *testing.T) {
	raw := `{"template-id":"small","info":{"severity":"info"}}` + "\n" + strings.Repeat("x", nuclei.MaxLineBytes+10)

	findings, err := nuclei.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parser failed: %v", err)
	}
	if len(findings) != 1 || findings[0].ID != "small" {
		t.Fatalf("expected only the small finding, got %#v", findings)
	}
}

// TestNucleiParserIgnoresBadTags keeps the finding when tags have an odd shape
func TestNucleiParserIgnoresBadTags(t *testing.T) {
	raw := `{"template-id":"x","info":{"name":"X","severity":"low","tags":42},"matched-at":"https://a.test"}`

	findings, err := nuclei.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Tags != nil {
		t.Fatalf("expected one finding without tags, got %#v", findings)
	}
}

// TestNucleiSeverityMapping tests all severity conversions
func TestNucleiSeverityMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Severity
	}{
		{"critical", model.SeverityCritical},
		{"CRT", model.SeverityCritical},
		{" Critical ", model.SeverityCritical},
		{"HIGH", model.SeverityHigh},
		{"highest", model.SeverityHigh},
		{"Medium", model.SeverityMedium},
		{"med", model.SeverityMedium},
		{"moderate", model.SeverityMedium},
		{"low", model.SeverityLow},
		{"lowish", model.SeverityLow},
		{"info", model.SeverityInfo},
		{"informational", model.SeverityInfo},
		{"unknown-value", model.SeverityInfo}, // default
		{"", model.SeverityInfo},
	}

	for _, tt := range tests {
		if got := nuclei.NormalizeSeverity(tt.input); got != tt.expected {
			t.Errorf("severity mapping failed: %q -> expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

// TestNucleiArgs pins the conservative command line
func TestNucleiArgs(t *testing.T) {
	args := nuclei.Args("https://a.test", nuclei.Options{
		RateLimit:      10,
		RequestTimeout: 0,
		Retries:        1,
		Tags:           []string{"misconfig", "exposure"},
	})

	got := strings.Join(args, " ")
	want := "-u https://a.test -jsonl -silent -no-color -disable-update-check -rate-limit 10 -timeout 1 -retries 1 -tags misconfig,exposure"
	if got != want {
		t.Fatalf("unexpected args:\n got %s\nwant %s", got, want)
	}
}
