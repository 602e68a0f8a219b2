package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// maxListedOutcomes caps how many per-file details the summary prints for
// each non-accepted bucket.
const maxListedOutcomes = 5

// Summary aggregates the batch outcome.
type Summary struct {
	TotalFiles int
	Accepted   int
	Rejected   int
	TooLarge   int
	Failed     int
	Elapsed    time.Duration

	RejectedFiles []FileOutcome
	TooLargeFiles []FileOutcome
	FailedFiles   []FileOutcome
}

func (s *Summary) record(outcome FileOutcome) {
	switch outcome.Bucket {
	case BucketAccepted:
		s.Accepted++
	case BucketRejected:
		s.Rejected++
		s.RejectedFiles = append(s.RejectedFiles, outcome)
	case BucketTooLarge:
		s.TooLarge++
		s.TooLargeFiles = append(s.TooLargeFiles, outcome)
	case BucketFailed:
		s.Failed++
		s.FailedFiles = append(s.FailedFiles, outcome)
	}
}

// Print writes an aligned summary table plus the first few problem files.
func (s *Summary) Print(w io.Writer) {
	rows := [][2]string{
		{"Total files", fmt.Sprintf("%d", s.TotalFiles)},
		{"Accepted", fmt.Sprintf("%d", s.Accepted)},
		{"Rejected", fmt.Sprintf("%d", s.Rejected)},
		{"Too large", fmt.Sprintf("%d", s.TooLarge)},
		{"Failed", fmt.Sprintf("%d", s.Failed)},
	}

	width := 0
	for _, row := range rows {
		if rw := runewidth.StringWidth(row[0]); rw > width {
			width = rw
		}
	}

	fmt.Fprintf(w, "\nBatch summary\n")
	for _, row := range rows {
		fmt.Fprintf(w, "  %s  %s\n", padRight(row[0], width), row[1])
	}
	if s.TotalFiles > 0 && s.Elapsed > 0 {
		perFile := s.Elapsed / time.Duration(s.TotalFiles)
		fmt.Fprintf(w, "  %s  %s (%s per file)\n", padRight("Elapsed", width), s.Elapsed.Round(time.Millisecond), perFile.Round(time.Millisecond))
	}

	printOutcomes(w, "Rejected files", s.RejectedFiles)
	printOutcomes(w, "Too large files", s.TooLargeFiles)
	printOutcomes(w, "Failed files", s.FailedFiles)
}

func printOutcomes(w io.Writer, title string, outcomes []FileOutcome) {
	if len(outcomes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)

	width := 0
	limit := min(len(outcomes), maxListedOutcomes)
	for _, o := range outcomes[:limit] {
		if rw := runewidth.StringWidth(o.FileID); rw > width {
			width = rw
		}
	}
	for _, o := range outcomes[:limit] {
		fmt.Fprintf(w, "  %s  %s\n", padRight(o.FileID, width), truncateDetail(o.Detail, 60))
	}
	if len(outcomes) > maxListedOutcomes {
		fmt.Fprintf(w, "  ... and %d more\n", len(outcomes)-maxListedOutcomes)
	}
}

// truncateDetail shortens a detail string to maxLen runes, replacing the
// last rune with "…" if needed.
func truncateDetail(detail string, maxLen int) string {
	runes := []rune(detail)
	if len(runes) <= maxLen {
		return detail
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
