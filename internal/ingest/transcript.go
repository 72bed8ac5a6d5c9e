// Package ingest parses line-oriented chat transcripts into per-user messages.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
)

// Entry is one parsed transcript line.
type Entry struct {
	UserID  string
	Message string
}

// ErrSkip marks a line that does not match the expected transcript shape.
var ErrSkip = errors.New("line does not match transcript shape")

var userPattern = regexp.MustCompile(`^\[@([^\s\]]+)`)

// ParseLine parses a `[@<user_id> ... M]<message>` line. The message starts
// after the last "M]" marker on the line.
func ParseLine(line string) (Entry, error) {
	m := userPattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, fmt.Errorf("%w: no user prefix", ErrSkip)
	}
	idx := strings.LastIndex(line, "M]")
	if idx < 0 {
		return Entry{}, fmt.Errorf("%w: no message marker", ErrSkip)
	}
	msg := strings.TrimSpace(line[idx+2:])
	if msg == "" {
		return Entry{}, fmt.Errorf("%w: empty message", ErrSkip)
	}
	return Entry{UserID: m[1], Message: msg}, nil
}

// Parse reads a transcript line by line. Unparseable lines are skipped, never
// fatal; onSkip (if set) sees each skipped line, otherwise a warning is
// logged.
func Parse(r io.Reader, onSkip func(lineno int, line string)) ([]Entry, error) {
	var out []Entry
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseLine(line)
		if err != nil {
			if onSkip != nil {
				onSkip(lineno, line)
			} else {
				log.Printf("ingest: skipping line %d: %v", lineno, err)
			}
			continue
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return out, nil
}

// LoadFile parses a transcript file from disk.
func LoadFile(path string, onSkip func(lineno int, line string)) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f, onSkip)
}
