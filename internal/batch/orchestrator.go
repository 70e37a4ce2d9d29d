// Package batch scores many input files in parallel and wires the results
// into the store and the drift baseline.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dotcommander/viralscore/internal/baseline"
	"github.com/dotcommander/viralscore/internal/discovery"
	"github.com/dotcommander/viralscore/internal/logging"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 4 << 20

// Options holds configuration for a batch run.
type Options struct {
	Root           string
	Patterns       []string
	Concurrency    int
	Parallel       bool
	FollowSymlinks bool
	StorePath      string
	BaselinePath   string
	CreateBaseline bool
}

// Item is the outcome for one document. Line is 0 for single-document files.
type Item struct {
	Path   string
	Line   int
	Output *scoring.Output
	Err    error
}

// Failed reports whether the document could not be scored.
func (it Item) Failed() bool {
	return it.Err != nil
}

// ValidationError returns the structural error for the item, if any.
func (it Item) ValidationError() (*schema.ValidationError, bool) {
	var ve *schema.ValidationError
	ok := errors.As(it.Err, &ve)
	return ve, ok
}

// Result holds the outcome of a batch run.
type Result struct {
	RunID           string
	Version         string
	StartedAt       time.Time
	Duration        time.Duration
	Files           int
	Items           []Item
	Scored          int
	Failed          int
	Stored          int
	Drift           *baseline.Drift
	BaselineCreated string
}

// Outputs returns the successful outputs in item order.
func (r *Result) Outputs() []*scoring.Output {
	outs := make([]*scoring.Output, 0, r.Scored)
	for _, it := range r.Items {
		if it.Output != nil {
			outs = append(outs, it.Output)
		}
	}
	return outs
}

// Orchestrator coordinates discovery, scoring, persistence and drift checks.
type Orchestrator struct {
	scorer *Scorer
	opts   Options
	now    func() time.Time
	newID  func() string
}

// NewOrchestrator creates a new batch orchestrator.
func NewOrchestrator(scorer *Scorer, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{
		scorer: scorer,
		opts:   opts,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithClock overrides the clock and run id source.
func (o *Orchestrator) WithClock(now func() time.Time, newID func() string) *Orchestrator {
	o.now = now
	o.newID = newID
	return o
}

// Run executes the full batch workflow. Per-document failures are recorded
// on their items; only discovery, store and baseline failures abort the run.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     o.newID(),
		Version:   o.scorer.Engine().Version(),
		StartedAt: o.now(),
	}
	log := logging.WithPrefix("batch")

	files, err := discovery.NewFileDiscovery(o.opts.Root, o.opts.FollowSymlinks).Discover(o.opts.Patterns)
	if err != nil {
		return nil, fmt.Errorf("error discovering inputs: %w", err)
	}
	result.Files = len(files)
	if log != nil {
		log.Info("discovered inputs", "run_id", result.RunID, "files", len(files), "root", o.opts.Root)
	}

	perFile, err := o.scoreFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	for _, items := range perFile {
		for _, it := range items {
			if it.Failed() {
				result.Failed++
				if log != nil {
					log.Warn("document failed", "path", it.Path, "line", it.Line, "err", it.Err)
				}
			} else {
				result.Scored++
			}
			result.Items = append(result.Items, it)
		}
	}

	outputs := result.Outputs()

	if o.opts.StorePath != "" {
		n, err := o.persist(ctx, result.RunID, result.StartedAt, outputs)
		if err != nil {
			return nil, err
		}
		result.Stored = n
		if log != nil {
			log.Info("stored scores", "rows", n, "store", o.opts.StorePath)
		}
	}

	if o.opts.BaselinePath != "" {
		if err := o.applyBaseline(result, outputs); err != nil {
			return nil, err
		}
	}

	result.Duration = o.now().Sub(result.StartedAt)
	return result, nil
}

// scoreFiles scores every file with a bounded worker group. Results are
// indexed by file so output order follows the sorted discovery order.
func (o *Orchestrator) scoreFiles(ctx context.Context, files []discovery.File) ([][]Item, error) {
	perFile := make([][]Item, len(files))

	g, gctx := errgroup.WithContext(ctx)
	limit := o.opts.Concurrency
	if !o.opts.Parallel {
		limit = 1
	}
	g.SetLimit(limit)

	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[i] = o.scoreFile(f)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch interrupted: %w", err)
	}
	return perFile, nil
}

func (o *Orchestrator) scoreFile(f discovery.File) []Item {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return []Item{{Path: f.RelPath, Err: fmt.Errorf("read %s: %w", f.RelPath, err)}}
	}

	if f.Kind != discovery.KindStream {
		out, err := o.scorer.Score(data)
		return []Item{{Path: f.RelPath, Output: out, Err: err}}
	}

	var items []Item
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		doc := bytes.TrimSpace(sc.Bytes())
		if len(doc) == 0 {
			continue
		}
		out, err := o.scorer.Score(doc)
		items = append(items, Item{Path: f.RelPath, Line: line, Output: out, Err: err})
	}
	if err := sc.Err(); err != nil {
		items = append(items, Item{Path: f.RelPath, Line: line + 1, Err: fmt.Errorf("read %s: %w", f.RelPath, err)})
	}
	return items
}

func (o *Orchestrator) persist(ctx context.Context, runID string, at time.Time, outputs []*scoring.Output) (int, error) {
	s, err := store.Open(o.opts.StorePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	n, err := s.Save(ctx, runID, at, outputs...)
	if err != nil {
		return 0, fmt.Errorf("failed to store scores: %w", err)
	}
	return n, nil
}

// resolveBaselinePath returns the absolute path to the baseline file.
func (o *Orchestrator) resolveBaselinePath() string {
	path := o.opts.BaselinePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.opts.Root, path)
	}
	return path
}

func (o *Orchestrator) applyBaseline(result *Result, outputs []*scoring.Output) error {
	path := o.resolveBaselinePath()

	if o.opts.CreateBaseline {
		b, err := baseline.CreateBaseline(outputs, result.StartedAt)
		if err != nil {
			return fmt.Errorf("failed to create baseline: %w", err)
		}
		if err := b.SaveBaseline(path); err != nil {
			return fmt.Errorf("failed to save baseline: %w", err)
		}
		result.BaselineCreated = path
		return nil
	}

	b, err := baseline.LoadBaseline(path)
	if err != nil {
		return err
	}
	drift, err := b.Compare(outputs)
	if err != nil {
		return fmt.Errorf("failed to compare baseline: %w", err)
	}
	result.Drift = &drift
	return nil
}
