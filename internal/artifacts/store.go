// Package artifacts routes run outputs to disk: every judged file gets a
// full record, and each file lands in exactly one outcome bucket.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/turncast/turncast/internal/models"
	"github.com/turncast/turncast/internal/oracle"
)

// Outcome bucket directories under the store root.
const (
	dirJudge    = "judge"
	dirAccepted = "accepted"
	dirRejected = "rejected"
	dirTooLarge = "too-large"
	dirFailed   = "failed"
	dirRaw      = "raw"
)

// unsafeChars matches characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Store writes run artifacts under a single output root.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// WriteJudgeRecord stores the full per-file record, written for every file
// that reached the judge regardless of the final outcome.
func (s *Store) WriteJudgeRecord(rec *models.FullRecord) (string, error) {
	return s.writeJSON(dirJudge, rec.FileID, rec)
}

// WriteAccepted stores the canonical simplified record of an accepted
// extraction.
func (s *Store) WriteAccepted(fileID string, rec models.SimplifiedRecord) (string, error) {
	return s.writeJSON(dirAccepted, fileID, rec)
}

// WriteRejected stores the full record of a rejected file, subdivided by
// the rejection reason.
func (s *Store) WriteRejected(reason string, rec *models.FullRecord) (string, error) {
	if reason == "" {
		reason = "unspecified"
	}
	return s.writeJSON(filepath.Join(dirRejected, sanitizeName(reason)), rec.FileID, rec)
}

// WriteTooLarge stores a token-budget rejection.
func (s *Store) WriteTooLarge(rec models.FailureRecord) (string, error) {
	return s.writeJSON(dirTooLarge, rec.FileID, rec)
}

// WriteFailure stores a pipeline failure.
func (s *Store) WriteFailure(rec models.FailureRecord) (string, error) {
	return s.writeJSON(dirFailed, rec.FileID, rec)
}

// WriteRawExchanges archives the raw oracle traffic for one file as
// gzip-compressed JSON.
func (s *Store) WriteRawExchanges(fileID string, exchanges []oracle.Exchange) (string, error) {
	if len(exchanges) == 0 {
		return "", nil
	}

	dir := filepath.Join(s.root, dirRaw)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	path := filepath.Join(dir, sanitizeName(fileID)+".responses.json.gz")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exchanges); err != nil {
		zw.Close()
		return "", fmt.Errorf("encode archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return path, nil
}

func (s *Store) writeJSON(relDir, fileID string, v any) (string, error) {
	dir := filepath.Join(s.root, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", relDir, err)
	}

	path := filepath.Join(dir, sanitizeName(fileID)+".json")
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}
