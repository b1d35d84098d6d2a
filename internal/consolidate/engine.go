package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"conflate/internal/audit"
	"conflate/internal/config"
	"conflate/internal/entity"
	"conflate/internal/logging"
	"conflate/internal/match"
	"conflate/internal/merge"
	"conflate/internal/redirect"
)

// Options controls a single consolidation run.
type Options struct {
	// DryRun plans and reports without touching the database.
	DryRun bool
	// EntityType restricts the run to one entity type; empty means all.
	EntityType entity.Type
	// AuditPath overrides the generated audit file location.
	AuditPath string
}

// Summary is the outcome of one consolidation run.
type Summary struct {
	RunID             string
	DryRun            bool
	Scanned           int
	Candidates        int
	DroppedRedirected int
	DroppedCircular   int
	Merged            int
	Failed            int
	MentionsMoved     int64
	BackupFile        string
	AuditFile         string
	Duration          time.Duration
}

// Plan is the read-only view of what a run would do: the generated candidates
// in execution order plus the redirect resolution applied to them.
type Plan struct {
	Scanned    int
	Candidates []*match.Candidate
	Resolution redirect.Resolution
}

// Engine orchestrates one consolidation run end to end: candidate generation,
// redirect resolution, per-candidate merge transactions, and audit output.
// Only one engine may run against a database at a time; a lock file next to
// the database enforces that across processes.
type Engine struct {
	cfg    *config.Config
	store  *entity.Store
	logger *slog.Logger
}

// New builds an engine for the given open store.
func New(cfg *config.Config, store *entity.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{cfg: cfg, store: store, logger: logger}
}

// Plan generates and resolves candidates without writing anything. The
// returned candidates are the accepted, redirect-rewritten merges in the
// order Run would apply them.
func (e *Engine) Plan(ctx context.Context, entityType entity.Type) (*Plan, error) {
	entities, err := e.store.ByType(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	generator := match.NewGenerator(match.Options{
		FuzzyWindow: e.cfg.Matching.FuzzyWindow,
		StopWords:   e.cfg.Matching.StopWords,
		Aliases:     e.cfg.Aliases,
	})
	candidates := generator.Generate(entities)
	match.SortByConfidence(candidates)

	resolution := redirect.NewResolver(e.logger).Resolve(candidates)
	return &Plan{
		Scanned:    len(entities),
		Candidates: candidates,
		Resolution: resolution,
	}, nil
}

// Run executes a full consolidation pass. Each accepted candidate merges in
// its own transaction; a failed merge is logged and counted but does not stop
// the run. Dry runs produce the same summary numbers with zero writes.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With(logging.String("run_id", runID))

	if err := e.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(e.store.Path() + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another consolidation run holds %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	summary := &Summary{RunID: runID, DryRun: opts.DryRun}

	if e.cfg.Backup.Enabled && !opts.DryRun {
		dest := filepath.Join(e.cfg.Backup.Dir, entity.BackupFileName(e.store.Path(), started))
		if err := e.store.Backup(ctx, dest); err != nil {
			return nil, fmt.Errorf("pre-run backup: %w", err)
		}
		summary.BackupFile = dest
		logger.Info("database backed up", logging.String("path", dest))
	}

	plan, err := e.Plan(ctx, opts.EntityType)
	if err != nil {
		return nil, err
	}
	summary.Scanned = plan.Scanned
	summary.Candidates = len(plan.Candidates)
	summary.DroppedRedirected = plan.Resolution.DroppedRedirected
	summary.DroppedCircular = plan.Resolution.DroppedCircular

	logger.Info("candidates resolved",
		logging.Args(
			logging.Int("scanned", plan.Scanned),
			logging.Int("candidates", len(plan.Candidates)),
			logging.Int("accepted", len(plan.Resolution.Accepted)),
			logging.Int("dropped_redirected", plan.Resolution.DroppedRedirected),
			logging.Int("dropped_circular", plan.Resolution.DroppedCircular),
		)...)

	if opts.DryRun {
		for _, candidate := range plan.Resolution.Accepted {
			logger.Info("would merge",
				logging.Args(
					logging.Int64("source_id", candidate.SourceID),
					logging.String("source_name", candidate.SourceName),
					logging.Int64("target_id", candidate.TargetID),
					logging.String("target_name", candidate.TargetName),
					logging.Float64("confidence", candidate.Confidence),
					logging.String("method", candidate.Method.String()),
				)...)
			summary.MentionsMoved += candidate.SourceMentions
		}
		summary.Merged = len(plan.Resolution.Accepted)
		summary.Duration = time.Since(started)
		return summary, nil
	}

	auditLog := audit.NewLog(runID)
	executor := merge.NewExecutor(e.store, auditLog, logger)
	for _, candidate := range plan.Resolution.Accepted {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := executor.Execute(ctx, candidate); err != nil {
			summary.Failed++
			logger.Error("merge failed",
				logging.Args(
					logging.Int64("source_id", candidate.SourceID),
					logging.Int64("target_id", candidate.TargetID),
					logging.String("kind", merge.Kind(err).String()),
					logging.Error(err),
				)...)
			continue
		}
		summary.Merged++
	}
	for _, entry := range auditLog.Entries() {
		summary.MentionsMoved += entry.MentionsTransferred
	}

	if auditLog.Len() > 0 || summary.Failed > 0 {
		path := opts.AuditPath
		if path == "" {
			name := fmt.Sprintf("merge-audit-%s-%s.json", started.UTC().Format("20060102T150405Z"), runID)
			path = filepath.Join(e.cfg.Paths.AuditDir, name)
		}
		if err := auditLog.WriteFile(path); err != nil {
			return summary, fmt.Errorf("write audit file: %w", err)
		}
		summary.AuditFile = path
	}

	summary.Duration = time.Since(started)
	logger.Info("consolidation finished",
		logging.Args(
			logging.Int("merged", summary.Merged),
			logging.Int("failed", summary.Failed),
			logging.Int64("mentions_moved", summary.MentionsMoved),
			logging.String("duration", summary.Duration.Round(time.Millisecond).String()),
		)...)
	return summary, nil
}
