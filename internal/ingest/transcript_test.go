package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{"basic", "[@u1] hello M]world", Entry{UserID: "u1", Message: "world"}, false},
		{"marker inside message text", "[@u42 2026-01-02 M]remind me to buy milk", Entry{UserID: "u42", Message: "remind me to buy milk"}, false},
		{"last marker wins", "[@u1 M]first M]second", Entry{UserID: "u1", Message: "second"}, false},
		{"no user prefix", "hello world", Entry{}, true},
		{"no marker", "[@u1] hello world", Entry{}, true},
		{"empty message", "[@u1] hello M]", Entry{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrSkip) {
					t.Fatalf("ParseLine(%q) error = %v, want ErrSkip", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Fatalf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseSkipsBadLinesAndContinues(t *testing.T) {
	input := strings.Join([]string{
		"[@u1] greeting M]hello",
		"garbage line",
		"",
		"[@u2] followup M]hi there",
	}, "\n")

	var skipped []int
	entries, err := Parse(strings.NewReader(input), func(lineno int, _ string) {
		skipped = append(skipped, lineno)
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].UserID != "u1" || entries[1].UserID != "u2" {
		t.Fatalf("entries = %+v, want u1 then u2", entries)
	}
	if len(skipped) != 1 || skipped[0] != 2 {
		t.Fatalf("skipped = %v, want just line 2", skipped)
	}
}
