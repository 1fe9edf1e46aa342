package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"tiny-agent/internal/config"
	"tiny-agent/internal/contextutil"
	"tiny-agent/internal/deploy"
	"tiny-agent/internal/draft"
	"tiny-agent/internal/gitops"
	"tiny-agent/internal/history"
	"tiny-agent/internal/llm"
	"tiny-agent/internal/publish"
)

var CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging"`

	Process struct {
		Note   string `arg:"" help:"Path to the note file to publish"`
		DryRun bool   `help:"Generate and report without writing, committing, or deploying"`
		Deploy bool   `help:"Trigger the deploy hook after a successful push"`
	} `cmd:"" help:"Convert a single note into a published blog post"`

	Batch struct {
		Dir    string `arg:"" help:"Directory of note files to publish"`
		DryRun bool   `help:"Generate and report without writing, committing, or deploying"`
		Deploy bool   `help:"Trigger the deploy hook after a successful push"`
	} `cmd:"" help:"Convert every note in a directory, in filename order"`

	History struct {
		Limit int `default:"10" help:"Number of recent runs to show"`
	} `cmd:"" help:"Show recent publish runs from the ledger"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := cfg.LogLevel
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = context.WithValue(ctx, contextutil.LoggerKey(), logger)

	switch kctx.Command() {
	case "process <note>":
		runPipeline(ctx, cfg, func(c *publish.Controller, opts publish.Options) ([]publish.Result, error) {
			res, err := c.ProcessNote(ctx, CLI.Process.Note, opts)
			if err != nil {
				return nil, err
			}
			return []publish.Result{res}, nil
		}, publish.Options{DryRun: CLI.Process.DryRun, Deploy: CLI.Process.Deploy})
	case "batch <dir>":
		runPipeline(ctx, cfg, func(c *publish.Controller, opts publish.Options) ([]publish.Result, error) {
			return c.ProcessBatch(ctx, CLI.Batch.Dir, opts)
		}, publish.Options{DryRun: CLI.Batch.DryRun, Deploy: CLI.Batch.Deploy})
	case "history":
		if err := runHistory(ctx, cfg, CLI.History.Limit); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	}
}

// runPipeline wires the collaborators, executes the run, prints a per-note
// summary, and exits non-zero if any note failed.
func runPipeline(ctx context.Context, cfg *config.Config, run func(*publish.Controller, publish.Options) ([]publish.Result, error), opts publish.Options) {
	backend, err := llm.New(cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	if err != nil {
		log.Fatalf("Failed to create model backend: %v", err)
	}

	generator := draft.NewGenerator(backend, draft.Options{
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		Paragraphs:  cfg.DraftParagraphs,
	})

	committer := gitops.NewClient(cfg.WebsitePath, cfg.GitRemote, cfg.GitBranch)

	var deployer publish.Deployer
	if cfg.DeployHookURL != "" {
		deployer = deploy.NewTrigger(cfg.DeployHookURL)
	} else if opts.Deploy {
		slog.Warn("Deploy requested but DEPLOY_HOOK_URL is not set, skipping deploy")
	}

	var ledger publish.Ledger
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		// The ledger is an observability aid, not a pipeline dependency.
		slog.Warn("History ledger unavailable", "path", cfg.HistoryDBPath, "error", err)
	} else {
		ledger = store
		defer func() {
			_ = store.Close()
		}()
	}

	controller := publish.NewController(cfg, generator, committer, deployer, ledger)

	results, err := run(controller, opts)
	if err != nil {
		slog.Error("Run aborted", "error", err)
		os.Exit(1)
	}

	for _, res := range results {
		switch res.Status {
		case publish.StatusSuccess:
			fmt.Printf("published  %s -> %s (%s)\n", res.NotePath, res.Slug, res.Title)
		case publish.StatusSkipped:
			fmt.Printf("skipped    %s (already published as %s)\n", res.NotePath, res.Slug)
		case publish.StatusFailed:
			fmt.Printf("failed     %s: %v\n", res.NotePath, res.Err)
		}
	}

	if publish.Failed(results) {
		os.Exit(1)
	}
}

func runHistory(ctx context.Context, cfg *config.Config, limit int) error {
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, r := range runs {
		mode := ""
		if r.DryRun {
			mode = " (dry-run)"
		}
		fmt.Printf("%s  %s%s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, mode)
		for _, rec := range r.Records {
			fmt.Printf("  %-8s %s", rec.Status, rec.NotePath)
			if rec.Slug != "" {
				fmt.Printf(" -> %s", rec.Slug)
			}
			if rec.Detail != "" {
				fmt.Printf(" (%s)", rec.Detail)
			}
			fmt.Println()
		}
	}
	return nil
}
