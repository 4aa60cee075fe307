package archlint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jward/archlint/internal/cache"
	"github.com/jward/archlint/internal/config"
	"github.com/jward/archlint/internal/depgraph"
	"github.com/jward/archlint/internal/rules"
	"github.com/jward/archlint/internal/scriptrule"
	"github.com/jward/archlint/internal/source"
	"github.com/jward/archlint/internal/visitor"
)

// Engine orchestrates a validation run: file discovery, parallel parsing,
// cached file-rule execution, and whole-repo graph rules.
type Engine struct {
	root     string
	cfg      *config.Config
	logger   *slog.Logger
	registry *rules.Registry
	cache    *cache.Cache
	builder  *source.Builder
	workers  int

	cachePath    string
	cachePathSet bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWorkers bounds parsing and validation concurrency. Values below one
// fall back to the CPU count; one makes the run serial.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithCachePath overrides the configured cache location. The empty string
// disables persistence; results are still cached in memory for the run.
func WithCachePath(path string) Option {
	return func(e *Engine) {
		e.cachePath = path
		e.cachePathSet = true
	}
}

// WithRegistry replaces the built-in rule registry, for embedding the
// engine with a custom rule set.
func WithRegistry(r *rules.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// New creates an Engine rooted at the repository directory. The cache is
// opened (or recovered) here; script rules configured under the custom
// rules directory are loaded and registered.
func New(root string, opts ...Option) (*Engine, error) {
	e := &Engine{
		root:    root,
		cfg:     config.Default(),
		logger:  slog.Default(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}

	if e.registry == nil {
		e.registry = rules.NewRegistry(e.cfg.RuleConfig())
		if dir := e.cfg.CustomRulesDir; dir != "" {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			scripted, err := scriptrule.LoadDir(dir, e.cfg.CustomRuleSeverities, e.logger)
			if err != nil {
				return nil, fmt.Errorf("load custom rules: %w", err)
			}
			extra := make([]rules.FileRule, len(scripted))
			for i, r := range scripted {
				extra[i] = r
			}
			e.registry = e.registry.WithFileRules(extra...)
		}
	}

	cachePath := e.cfg.CachePath
	if e.cachePathSet {
		cachePath = e.cachePath
	}
	if cachePath != "" && !filepath.IsAbs(cachePath) {
		cachePath = filepath.Join(root, cachePath)
	}
	e.cache = cache.Open(cachePath, e.logger)
	e.builder = source.NewBuilder(e.cfg.Layout())
	return e, nil
}

// Close flushes and releases the cache.
func (e *Engine) Close() error {
	return e.cache.Close()
}

// Rules returns every registered rule descriptor, built-in and scripted.
func (e *Engine) Rules() []Descriptor {
	return e.registry.All()
}

// RunOptions control a single validation run.
type RunOptions struct {
	// MinSeverity overrides the configured enforcement threshold when
	// non-empty ("info", "warning", "error", "critical").
	MinSeverity string

	// ChangedFiles restricts file-rule execution to the listed repo-relative
	// paths. The dependency graph still covers the whole repository.
	// Mutually exclusive with Scope.
	ChangedFiles []string

	// Scope restricts file-rule execution to files under a directory.
	Scope string

	// FailFast stops scheduling new files after the first critical
	// violation. Results gathered so far are still reported and the cache
	// is still flushed.
	FailFast bool
}

// Run validates the repository and returns the report. Violations are
// sorted by severity (descending), rule ID, file, and line, so identical
// input yields an identical report apart from the run ID and timings.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	start := time.Now()

	if len(opts.ChangedFiles) > 0 && opts.Scope != "" {
		return nil, &config.Error{Field: "run options", Reason: "changed files and scope are mutually exclusive"}
	}
	threshold := e.cfg.Severity()
	if opts.MinSeverity != "" {
		sev, err := rules.ParseSeverity(opts.MinSeverity)
		if err != nil {
			return nil, &config.Error{Field: "min_severity", Reason: err.Error()}
		}
		threshold = sev
	}

	all, err := discover(e.root, e.cfg.Exclude)
	if err != nil {
		return nil, err
	}
	targets := restrict(all, opts.ChangedFiles, opts.Scope)
	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	// Every file is parsed, even outside the target set: the dependency
	// graph and the class hierarchy need the whole repository.
	contexts := make([]*source.Context, len(all))
	pg, pctx := errgroup.WithContext(ctx)
	pg.SetLimit(e.workers)
	for i, rel := range all {
		i, rel := i, rel
		pg.Go(func() error {
			content, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("read %s: %w", rel, err)
			}
			contexts[i] = e.builder.Build(pctx, rel, content)
			return nil
		})
	}
	if err := pg.Wait(); err != nil {
		return nil, err
	}
	defer func() {
		for _, sc := range contexts {
			sc.Close()
		}
	}()

	hierarchy := rules.BuildHierarchy(contexts)
	vis := visitor.New(e.root, hierarchy, e.cache, e.logger)
	fileRules := e.registry.FileRules(threshold)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		perFile    = make([][]rules.Violation, len(all))
		parseSlots = make([]*ParseError, len(all))
		cacheHits  atomic.Int64
		validated  atomic.Int64
		critical   atomic.Bool
	)
	var vg errgroup.Group
	vg.SetLimit(e.workers)
	for i, sc := range contexts {
		if !targetSet[sc.Path] {
			continue
		}
		i, sc := i, sc
		vg.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			if sc.ParseFailed {
				parseSlots[i] = &ParseError{File: sc.Path, Line: sc.ParseErrLine, Message: sc.ParseErr}
				return nil
			}
			results, hits := vis.ValidateFile(sc, fileRules)
			cacheHits.Add(int64(hits))
			validated.Add(1)
			var vs []rules.Violation
			for _, res := range results {
				vs = append(vs, res.Violations...)
			}
			perFile[i] = vs
			if opts.FailFast && hasCritical(vs) {
				critical.Store(true)
				cancel()
			}
			return nil
		})
	}
	// Barrier: graph rules only run once every scheduled file finished.
	_ = vg.Wait()

	if err := ctx.Err(); err != nil {
		e.flush()
		return nil, err
	}

	var violations []rules.Violation
	for _, vs := range perFile {
		violations = append(violations, vs...)
	}
	var parseErrs []ParseError
	for _, pe := range parseSlots {
		if pe != nil {
			parseErrs = append(parseErrs, *pe)
		}
	}

	if !critical.Load() {
		graph := depgraph.Build(contexts, e.logger)
		violations = append(violations, depgraph.Validate(ctx, graph, e.registry.GraphRules(threshold), e.logger)...)
	} else {
		e.logger.Warn("critical violation found, skipping graph rules")
	}

	rules.SortViolations(violations)
	e.flush()

	return &Report{
		RunID:            uuid.NewString(),
		Passed:           len(violations) == 0 && len(parseErrs) == 0,
		Threshold:        threshold,
		Violations:       violations,
		ParseErrors:      parseErrs,
		CountsBySeverity: countBySeverity(violations),
		Warnings:         e.cache.Warnings(),
		Stats: Stats{
			FilesTotal:     len(all),
			FilesValidated: int(validated.Load()),
			CacheHits:      int(cacheHits.Load()),
			Duration:       time.Since(start),
		},
	}, nil
}

// flush persists pending cache entries. A flush failure degrades to a log
// line; validation results are already in hand.
func (e *Engine) flush() {
	if err := e.cache.Flush(); err != nil {
		e.logger.Warn("cache flush failed", "err", err)
	}
}

func hasCritical(vs []rules.Violation) bool {
	for _, v := range vs {
		if v.Severity == rules.SeverityCritical {
			return true
		}
	}
	return false
}
