package report

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestMarkdownParserPlainMarkdown(t *testing.T) {
	_, err := (&MarkdownParser{}).Parse([]byte("# Notes\n\n- item\n"))
	if !errors.Is(err, ErrNotAReport) {
		t.Fatalf("expected ErrNotAReport, got %v", err)
	}
}

func TestMarkdownParserCorruptedPayload(t *testing.T) {
	data := versionSentinel + "\n" + dataPrefix + "!!!not-base64!!!" + dataSuffix + "\n"
	_, err := (&MarkdownParser{}).Parse([]byte(data))
	if !errors.Is(err, ErrNotAReport) {
		t.Fatalf("expected ErrNotAReport, got %v", err)
	}
}

func TestMarkdownParserMissingPayload(t *testing.T) {
	_, err := (&MarkdownParser{}).Parse([]byte(versionSentinel + "\n# Report\n"))
	if !errors.Is(err, ErrNotAReport) {
		t.Fatalf("expected ErrNotAReport, got %v", err)
	}
}

func TestMarkdownParserInvalidEmbeddedJSON(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("{not json"))
	data := versionSentinel + "\n" + dataPrefix + payload + dataSuffix + "\n"
	if _, err := (&MarkdownParser{}).Parse([]byte(data)); !errors.Is(err, ErrNotAReport) {
		t.Fatalf("expected ErrNotAReport, got %v", err)
	}
}

func TestParseDetectsJSON(t *testing.T) {
	r, err := Parse([]byte(`  {"id":"abc","results":[]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.ID != "abc" {
		t.Errorf("ID = %q", r.ID)
	}
}
