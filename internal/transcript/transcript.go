// Package transcript holds the immutable terminal-session transcript that
// every pipeline stage reads. Line numbers are 1-based and stable for the
// lifetime of a run.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Transcript is a raw terminal session with stable 1-based line numbering.
type Transcript struct {
	fileID string
	text   string
	lines  []string
}

// Load reads a transcript from disk. The file ID is the filename without
// its extension.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	base := filepath.Base(path)
	fileID := strings.TrimSuffix(base, filepath.Ext(base))
	return New(fileID, string(data)), nil
}

// New builds a transcript from raw text. A single trailing newline is not
// counted as an extra empty line.
func New(fileID, text string) *Transcript {
	var lines []string
	if text != "" {
		lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}
	return &Transcript{
		fileID: fileID,
		text:   text,
		lines:  lines,
	}
}

func (t *Transcript) FileID() string { return t.fileID }

// Text returns the raw transcript exactly as loaded.
func (t *Transcript) Text() string { return t.text }

func (t *Transcript) LineCount() int { return len(t.lines) }

// Line returns the 1-based line n without its trailing newline.
// Out-of-range lines return the empty string.
func (t *Transcript) Line(n int) string {
	if n < 1 || n > len(t.lines) {
		return ""
	}
	return t.lines[n-1]
}

// Lines returns lines [from, to) as a copy. Bounds are clamped.
func (t *Transcript) Lines(from, to int) []string {
	if from < 1 {
		from = 1
	}
	if to > len(t.lines)+1 {
		to = len(t.lines) + 1
	}
	if from >= to {
		return nil
	}
	out := make([]string, to-from)
	copy(out, t.lines[from-1:to-1])
	return out
}

// Window returns the lines surrounding n for oracle context. Missing
// neighbors come back empty.
func (t *Transcript) Window(n int) (prev, cur, next string) {
	return t.Line(n - 1), t.Line(n), t.Line(n + 1)
}
