package nuclei

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"shipscan/scanner-api/internal/model"
)

type nucleiResult struct {
	TemplateID string `json:"template-id"`
	Host       string `json:"host"`
	MatchedAt  string `json:"matched-at"`
	Info       struct {
		Name        string          `json:"name"`
		Severity    string          `json:"severity"`
		Description string          `json:"description"`
		Tags        json.RawMessage `json:"tags"`
	} `json:"info"`
}

// Parser adapts Parse to scanners.Parser.
type Parser struct{}

func (Parser) Parse(r io.Reader) ([]model.Finding, error) {
	return Parse(r)
}

// MaxLineBytes bounds a single result line, newline included. Longer lines are
// skipped.
const MaxLineBytes = 1 << 20

// Parse reads nuclei -jsonl output. Lines that are not valid result objects are
// skipped; only a failing reader is an error.
func Parse(r io.Reader) ([]model.Finding, error) {
	br := bufio.NewReaderSize(r, MaxLineBytes)
	findings := []model.Finding{}

	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			err = discardLine(br)
		} else if f, ok := parseLine(line); ok {
			findings = append(findings, f)
		}
		if errors.Is(err, io.EOF) {
			return findings, nil
		}
		if err != nil {
			return findings, err
		}
	}
}

// discardLine consumes the rest of an over-long line.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func parseLine(line []byte) (model.Finding, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return model.Finding{}, false
	}

	var res nucleiResult
	if err := json.Unmarshal(line, &res); err != nil {
		return model.Finding{}, false
	}
	if res.TemplateID == "" {
		return model.Finding{}, false
	}

	name := strings.TrimSpace(res.Info.Name)
	if name == "" {
		name = res.TemplateID
	}
	matched := res.MatchedAt
	if matched == "" {
		matched = res.Host
	}

	return model.Finding{
		ID:          res.TemplateID,
		Name:        name,
		Description: strings.TrimSpace(res.Info.Description),
		Severity:    NormalizeSeverity(res.Info.Severity),
		MatchedAt:   matched,
		Tags:        parseTags(res.Info.Tags),
	}, true
}

// parseTags accepts a JSON array or a comma separated string. Anything else
// yields no tags.
func parseTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil
		}
		list = strings.Split(joined, ",")
	}

	seen := make(map[string]struct{}, len(list))
	tags := make([]string, 0, len(list))
	for _, t := range list {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
