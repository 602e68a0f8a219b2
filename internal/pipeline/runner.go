// Package pipeline drives the whole extraction: per-model parsing, the
// judge, the rule-based gate, and artifact routing, over a batch of
// transcript files with bounded concurrency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turncast/turncast/internal/artifacts"
	"github.com/turncast/turncast/internal/boundary"
	"github.com/turncast/turncast/internal/config"
	"github.com/turncast/turncast/internal/judge"
	"github.com/turncast/turncast/internal/models"
	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/rules"
	"github.com/turncast/turncast/internal/segment"
	"github.com/turncast/turncast/internal/tokens"
	"github.com/turncast/turncast/internal/transcript"
)

// Bucket is the single outcome every file lands in.
type Bucket string

const (
	BucketAccepted Bucket = "accepted"
	BucketRejected Bucket = "rejected"
	BucketTooLarge Bucket = "too-large"
	BucketFailed   Bucket = "failed"
)

// Runner executes a batch run described by a run spec.
type Runner struct {
	spec    *config.RunSpec
	client  oracle.Client
	store   *artifacts.Store
	verbose bool

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// Option configures a Runner.
type Option func(*Runner)

// WithVerbose enables per-model progress detail.
func WithVerbose(verbose bool) Option {
	return func(r *Runner) {
		r.verbose = verbose
	}
}

// WithStore overrides the artifact store, mainly for tests.
func WithStore(store *artifacts.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// NewRunner builds a runner for a validated spec.
func NewRunner(spec *config.RunSpec, client oracle.Client, opts ...Option) *Runner {
	r := &Runner{
		spec:   spec,
		client: client,
		store:  artifacts.NewStore(spec.OutputDir),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every .txt file in the input directory. Per-file problems
// are recorded in their outcome bucket, never propagated; only setup
// errors and context cancellation abort the batch.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	files, err := r.discover()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .txt files found in %s", r.spec.InputDir)
	}

	start := time.Now()
	r.notifyProgress(ProgressEvent{EventType: EventBatchStart, TotalFiles: len(files)})

	summary := &Summary{TotalFiles: len(files)}
	var summaryMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.spec.Limits.MaxConcurrent)

	for i, path := range files {
		fileNum := i + 1
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := r.processFile(gctx, path, fileNum, len(files))

			summaryMu.Lock()
			summary.record(outcome)
			summaryMu.Unlock()

			r.notifyProgress(ProgressEvent{
				EventType:  EventFileComplete,
				FileID:     outcome.FileID,
				Bucket:     outcome.Bucket,
				FileNum:    fileNum,
				TotalFiles: len(files),
				Detail:     outcome.Detail,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	r.notifyProgress(ProgressEvent{EventType: EventBatchComplete, TotalFiles: len(files)})
	return summary, nil
}

// discover lists the input files, sorted and deduplicated.
func (r *Runner) discover() ([]string, error) {
	pattern := filepath.Join(r.spec.InputDir, "*.txt")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pattern, err)
	}
	sort.Strings(matches)

	var files []string
	for i, m := range matches {
		if i > 0 && m == matches[i-1] {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

// FileOutcome is the final disposition of one input file.
type FileOutcome struct {
	FileID string
	Bucket Bucket
	Detail string
}

func (r *Runner) processFile(ctx context.Context, path string, fileNum, total int) FileOutcome {
	tx, err := transcript.Load(path)
	if err != nil {
		fileID := filepath.Base(path)
		r.writeFailure(models.FailureRecord{
			FileID:     fileID,
			InputFile:  path,
			Error:      err.Error(),
			RecordedAt: time.Now().UTC(),
		})
		return FileOutcome{FileID: fileID, Bucket: BucketFailed, Detail: err.Error()}
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventFileStart,
		FileID:     tx.FileID(),
		FileNum:    fileNum,
		TotalFiles: total,
	})

	// Token budget gate, before any oracle traffic.
	count := tokens.Estimate(tx.Text())
	if tokens.OverBudget(tx.Text(), r.spec.Limits.MaxInputTokens) {
		rec := models.FailureRecord{
			FileID:         tx.FileID(),
			InputFile:      path,
			TokenCount:     count,
			MaxInputTokens: r.spec.Limits.MaxInputTokens,
			RecordedAt:     time.Now().UTC(),
		}
		if _, err := r.store.WriteTooLarge(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write too-large record for %s: %v\n", tx.FileID(), err)
		}
		return FileOutcome{
			FileID: tx.FileID(),
			Bucket: BucketTooLarge,
			Detail: fmt.Sprintf("%d tokens (limit %d)", count, r.spec.Limits.MaxInputTokens),
		}
	}

	var recorder *oracle.Recorder
	if r.spec.Oracle.ArchiveResponses {
		recorder = oracle.NewRecorder()
	}
	defer func() {
		if recorder == nil {
			return
		}
		if _, err := r.store.WriteRawExchanges(tx.FileID(), recorder.Exchanges()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to archive oracle exchanges for %s: %v\n", tx.FileID(), err)
		}
	}()

	results, failed := r.parseAllModels(ctx, tx, recorder)

	if len(results) < 2 {
		detail := judge.ErrInsufficientModels.Error()
		r.writeFailure(models.FailureRecord{
			FileID:       tx.FileID(),
			InputFile:    path,
			Error:        detail,
			FailedModels: failed,
			RecordedAt:   time.Now().UTC(),
		})
		return FileOutcome{FileID: tx.FileID(), Bucket: BucketFailed, Detail: detail}
	}

	judgeSession := &oracle.Session{
		Client:      r.client,
		Model:       r.spec.JudgeModel,
		Policy:      r.spec.BackoffPolicy(),
		Recorder:    recorder,
		Temperature: r.spec.Oracle.Temperature,
	}
	judgment, err := judge.Judge{}.Decide(ctx, judgeSession, tx.Text(), results)
	if err != nil {
		r.writeFailure(models.FailureRecord{
			FileID:       tx.FileID(),
			InputFile:    path,
			Error:        err.Error(),
			FailedModels: failed,
			RecordedAt:   time.Now().UTC(),
		})
		return FileOutcome{FileID: tx.FileID(), Bucket: BucketFailed, Detail: err.Error()}
	}

	evaluator := rules.NewEvaluator(r.spec.RuleThresholds())
	verdict := evaluator.Evaluate(tx.Text(), judgment, results)

	full := &models.FullRecord{
		FileID:      tx.FileID(),
		InputFile:   path,
		JudgeModel:  r.spec.JudgeModel,
		Judgment:    judgment,
		Verdict:     verdict,
		Results:     results,
		CompletedAt: time.Now().UTC(),
	}
	if judgment.WinnerIsModel() {
		full.WinnerModel = judgment.Winner
	}

	outcome := FileOutcome{FileID: tx.FileID(), Bucket: BucketRejected, Detail: verdict.Reason}
	if verdict.Accepted {
		simplified := results[judgment.Winner].Simplify()
		full.Accepted = &simplified
		if _, err := r.store.WriteAccepted(tx.FileID(), simplified); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write accepted record for %s: %v\n", tx.FileID(), err)
		}
		outcome = FileOutcome{FileID: tx.FileID(), Bucket: BucketAccepted, Detail: judgment.Winner}
	} else {
		// Unsuitable content is subdivided by the judge's rejection type,
		// everything else by the evaluator's reason.
		reason := verdict.Reason
		if reason == rules.ReasonUnsuitable && judgment.RejectionType != "" {
			reason = judgment.RejectionType
		}
		if _, err := r.store.WriteRejected(reason, full); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write rejected record for %s: %v\n", tx.FileID(), err)
		}
	}

	if _, err := r.store.WriteJudgeRecord(full); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write judge record for %s: %v\n", tx.FileID(), err)
	}
	return outcome
}

// parseAllModels runs the extraction once per configured model,
// concurrently. A failing model never takes its siblings down.
func (r *Runner) parseAllModels(ctx context.Context, tx *transcript.Transcript, recorder *oracle.Recorder) (map[string]*models.ParseResult, []string) {
	results := make(map[string]*models.ParseResult, len(r.spec.Models))
	var failed []string
	var mu sync.Mutex

	var wg sync.WaitGroup
	for _, model := range r.spec.Models {
		model := model
		wg.Add(1)
		go func() {
			defer wg.Done()

			if r.verbose {
				r.notifyProgress(ProgressEvent{EventType: EventModelStart, FileID: tx.FileID(), Model: model})
			}
			result, err := r.parseModel(ctx, model, tx, recorder)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("model pipeline failed", "file", tx.FileID(), "model", model, "error", err)
				failed = append(failed, model)
			} else {
				results[model] = result
			}
			if r.verbose {
				detail := "ok"
				if err != nil {
					detail = err.Error()
				}
				r.notifyProgress(ProgressEvent{EventType: EventModelComplete, FileID: tx.FileID(), Model: model, Detail: detail})
			}
		}()
	}
	wg.Wait()

	sort.Strings(failed)
	return results, failed
}

// parseModel runs the four extraction stages for one model in strict
// order: learn, confirm, segment, verify.
func (r *Runner) parseModel(ctx context.Context, model string, tx *transcript.Transcript, recorder *oracle.Recorder) (*models.ParseResult, error) {
	session := &oracle.Session{
		Client:      r.client,
		Model:       model,
		Policy:      r.spec.BackoffPolicy(),
		Recorder:    recorder,
		Temperature: r.spec.Oracle.Temperature,
	}

	learner := boundary.Learner{}
	patterns, err := learner.Learn(ctx, session, tx)
	if err != nil {
		if !errors.Is(err, boundary.ErrPatternLearning) {
			return nil, fmt.Errorf("learning patterns: %w", err)
		}
		// Degraded but workable: builtins were returned.
		slog.Warn("using builtin prompt patterns", "file", tx.FileID(), "model", model, "error", err)
	}

	cands := boundary.Apply(patterns, tx)
	bounds, err := boundary.Validator{}.Confirm(ctx, session, tx, cands)
	if err != nil {
		return nil, fmt.Errorf("confirming boundaries: %w", err)
	}

	initial, turns, err := segment.Segmenter{}.Segment(ctx, session, tx, bounds)
	if err != nil {
		return nil, fmt.Errorf("segmenting: %w", err)
	}

	result := &models.ParseResult{
		ModelID:       model,
		FileID:        tx.FileID(),
		InitialOutput: initial,
		Turns:         turns,
	}
	for _, p := range patterns {
		result.LearnedPatterns = append(result.LearnedPatterns, p.Source)
	}
	for _, b := range bounds {
		result.Boundaries = append(result.Boundaries, b.Line)
	}

	verifier := segment.Verifier{MaxPasses: r.spec.Verify.MaxPasses, Learner: learner}
	report, err := verifier.Verify(ctx, session, result)
	if err != nil {
		return nil, fmt.Errorf("verifying turns: %w", err)
	}
	if len(report.Unresolved) > 0 {
		slog.Debug("verification left issues open",
			"file", tx.FileID(), "model", model, "unresolved", report.Unresolved)
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parse result: %w", err)
	}
	return result, nil
}

func (r *Runner) writeFailure(rec models.FailureRecord) {
	if _, err := r.store.WriteFailure(rec); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write failure record for %s: %v\n", rec.FileID, err)
	}
}
