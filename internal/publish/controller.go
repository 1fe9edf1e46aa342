// Package publish orchestrates the note-to-post pipeline: read, style,
// generate, render, index, and the commit/deploy side effects. It is the
// only package allowed to perform those side effects; every earlier stage is
// pure or read-only.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tiny-agent/internal/artifact"
	"tiny-agent/internal/config"
	"tiny-agent/internal/contextutil"
	"tiny-agent/internal/draft"
	"tiny-agent/internal/history"
	"tiny-agent/internal/note"
	"tiny-agent/internal/site"
	"tiny-agent/internal/style"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collaborators.go -package=mocks tiny-agent/internal/publish Generator,Committer,Deployer,Ledger

// Generator produces a draft from a note and its style exemplars.
type Generator interface {
	Generate(ctx context.Context, n *note.Note, exemplars []style.Exemplar) (*draft.Draft, error)
}

// Committer stages, commits, and pushes published files.
type Committer interface {
	CommitAndPush(ctx context.Context, paths []string, message string) error
}

// Deployer triggers the hosting provider's build hook.
type Deployer interface {
	Fire(ctx context.Context) error
}

// Ledger records publish runs. It is best-effort: failures are logged, never
// propagated.
type Ledger interface {
	BeginRun(ctx context.Context, dryRun bool) (string, error)
	AddRecord(ctx context.Context, rec history.Record) error
}

// Options selects the side-effect mode for a run.
type Options struct {
	DryRun bool
	Deploy bool
}

// Controller runs the pipeline. The index is loaded once per run and
// threaded through explicitly; there is no ambient shared index state.
type Controller struct {
	cfg       *config.Config
	generator Generator
	committer Committer
	deployer  Deployer
	ledger    Ledger
}

// NewController creates a controller. deployer and ledger may be nil.
func NewController(cfg *config.Config, gen Generator, committer Committer, deployer Deployer, ledger Ledger) *Controller {
	return &Controller{
		cfg:       cfg,
		generator: gen,
		committer: committer,
		deployer:  deployer,
		ledger:    ledger,
	}
}

// ProcessNote runs the pipeline for a single note. The returned error is
// run-fatal (index corruption); per-note failures land in the Result.
func (c *Controller) ProcessNote(ctx context.Context, notePath string, opts Options) (Result, error) {
	results, err := c.run(ctx, []string{notePath}, opts)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// ProcessBatch runs the pipeline for every note file in dir, in sorted
// filename order. Notes are processed independently: one note's failure
// never aborts the batch. The returned error is run-fatal only.
func (c *Controller) ProcessBatch(ctx context.Context, dir string, opts Options) ([]Result, error) {
	notePaths, err := discoverNotes(dir)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, notePaths, opts)
}

// run processes the given notes against a single index load.
func (c *Controller) run(ctx context.Context, notePaths []string, opts Options) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	idx, err := site.Load(c.cfg.IndexPath())
	if err != nil {
		// Index corruption is load-bearing shared state: abort the run
		// rather than guess.
		return nil, err
	}
	if opts.DryRun {
		// All inserts go to a disposable copy that is never persisted.
		idx = idx.Clone()
	}

	runID := c.beginRun(ctx, opts.DryRun)

	results := make([]Result, 0, len(notePaths))
	for _, notePath := range notePaths {
		// Interruption is honored at note boundaries only; the atomic
		// persist keeps a cancelled in-flight note from half-updating disk.
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		res := c.processOne(ctx, idx, notePath, opts)
		results = append(results, res)
		c.record(ctx, runID, res)

		switch res.Status {
		case StatusSuccess:
			logger.InfoContext(ctx, "note published", "note", notePath, "slug", res.Slug, "dry_run", opts.DryRun)
		case StatusSkipped:
			logger.InfoContext(ctx, "note already published, skipping", "note", notePath, "slug", res.Slug)
		case StatusFailed:
			logger.ErrorContext(ctx, "note failed", "note", notePath, "error", res.Err)
		}
	}

	return results, nil
}

// processOne runs one note through every stage. It mutates idx on success.
func (c *Controller) processOne(ctx context.Context, idx *site.Index, notePath string, opts Options) Result {
	logger := contextutil.LoggerFromContext(ctx)
	res := Result{NotePath: notePath, Status: StatusFailed}

	n, err := note.Read(notePath)
	if err != nil {
		res.Err = err
		return res
	}

	exemplars, err := style.Load(c.cfg.WritingsPath(), c.cfg.StyleSampleSize)
	if err != nil {
		res.Err = fmt.Errorf("load style exemplars: %w", err)
		return res
	}

	d, err := c.generator.Generate(ctx, n, exemplars)
	if err != nil {
		res.Err = err
		return res
	}
	res.Title = d.Title

	date := n.DetectedDate.Format("2006-01-02")

	// Re-processing an unchanged note must not create a second entry. An
	// index entry with the same title and date is the same post; a mere
	// slug collision from a different post gets a suffix instead.
	if slug, ok := findRepublication(idx, d.Title, date); ok {
		res.Status = StatusSkipped
		res.Slug = slug
		return res
	}

	a, err := artifact.Render(d, n.DetectedDate, c.cfg.WritingsDir, idx.Slugs())
	if err != nil {
		res.Err = fmt.Errorf("render artifact: %w", err)
		return res
	}
	res.Slug = a.Slug

	err = idx.Insert(site.Entry{Slug: a.Slug, Title: a.Title, Date: date})
	if errors.Is(err, site.ErrDuplicateSlug) {
		res.Status = StatusSkipped
		return res
	}
	if err != nil {
		res.Err = fmt.Errorf("insert index entry: %w", err)
		return res
	}

	if opts.DryRun {
		res.Status = StatusSuccess
		return res
	}

	absArtifact := filepath.Join(c.cfg.WebsitePath, a.FilePath)
	if err := site.WriteFile(absArtifact, a.Content); err != nil {
		res.Err = fmt.Errorf("write artifact: %w", err)
		return res
	}
	if err := idx.Persist(c.cfg.IndexPath()); err != nil {
		res.Err = fmt.Errorf("persist index: %w", err)
		return res
	}

	message := fmt.Sprintf("Add new blog post: %s (%s)", a.Title, a.Slug)
	stage := []string{a.FilePath, c.cfg.IndexFile}
	if err := c.committer.CommitAndPush(ctx, stage, message); err != nil {
		// The artifact and index are already durable; report the commit
		// failure without unwinding them.
		res.Err = fmt.Errorf("commit: %w", err)
		return res
	}

	if opts.Deploy && c.deployer != nil {
		if err := c.deployer.Fire(ctx); err != nil {
			// Fire-and-forget: observed, logged, never rolled back.
			logger.WarnContext(ctx, "deploy trigger failed", "note", notePath, "error", err)
		}
	}

	res.Status = StatusSuccess
	return res
}

// findRepublication reports whether the index already carries this exact
// post (same title, same date) and returns its slug.
func findRepublication(idx *site.Index, title, date string) (string, bool) {
	for _, e := range idx.Entries() {
		if e.Title == title && e.Date == date {
			return e.Slug, true
		}
	}
	return "", false
}

// discoverNotes lists supported note files in dir, sorted by name for a
// deterministic processing order.
func discoverNotes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read notes dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".txt", ".notes":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// beginRun opens a ledger run, tolerating ledger failure.
func (c *Controller) beginRun(ctx context.Context, dryRun bool) string {
	if c.ledger == nil {
		return ""
	}
	runID, err := c.ledger.BeginRun(ctx, dryRun)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "history ledger unavailable", "error", err)
		return ""
	}
	return runID
}

// record appends a note outcome to the ledger, tolerating failure.
func (c *Controller) record(ctx context.Context, runID string, res Result) {
	if c.ledger == nil || runID == "" {
		return
	}
	rec := history.Record{
		RunID:    runID,
		NotePath: res.NotePath,
		Status:   string(res.Status),
		Slug:     res.Slug,
	}
	if res.Err != nil {
		rec.Detail = res.Err.Error()
	}
	if err := c.ledger.AddRecord(ctx, rec); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record result", "error", err)
	}
}
