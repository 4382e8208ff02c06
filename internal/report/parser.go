package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotAReport is returned when data is neither a JSON report nor a
// Markdown report carrying an embedded payload.
var ErrNotAReport = errors.New("not a valid fhir-validator report")

// Parser deserializes a rendered report.
type Parser interface {
	Parse(data []byte) (*Report, error)
}

// JSONParser parses a JSON report.
type JSONParser struct{}

func (*JSONParser) Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse JSON report: %w", err)
	}
	return &r, nil
}

// MarkdownParser parses a Markdown report by decoding its embedded payload.
type MarkdownParser struct{}

func (*MarkdownParser) Parse(data []byte) (*Report, error) {
	content := string(data)
	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("%w: missing version sentinel", ErrNotAReport)
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("%w: missing data payload", ErrNotAReport)
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("%w: malformed data payload", ErrNotAReport)
	}

	payload, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("%w: corrupted base64 payload: %v", ErrNotAReport, err)
	}
	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: failed to parse embedded JSON: %v", ErrNotAReport, err)
	}
	return &r, nil
}

// Parse detects the format of data and parses it.
func Parse(data []byte) (*Report, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return (&JSONParser{}).Parse(data)
	}
	return (&MarkdownParser{}).Parse(data)
}
