// Package extract orchestrates the pipeline: cached parse, dependency
// closure, sub-deck write. It is the surface the CLI and batch runner call.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvp-joe/submodel/internal/cache"
	"github.com/mvp-joe/submodel/internal/deck"
	"github.com/mvp-joe/submodel/internal/resolver"
	"github.com/mvp-joe/submodel/internal/writer"
)

// ErrNoTargets mirrors the resolver's all-names-missing failure for callers
// that only import this package.
var ErrNoTargets = resolver.ErrNoTargets

// Request describes one extraction.
type Request struct {
	Source  string   // deck to extract from
	Targets []string // set names or glob patterns, non-empty
	Output  string   // destination deck path
}

// Result summarizes one completed extraction.
type Result struct {
	System      string // batch system name, empty for single runs
	Output      string
	Elements    int
	Nodes       int
	Constraints int
	Sections    int
	Missing     []string // requested names not found (extraction still ran)
	Warnings    []string // recoverable conditions, in source order
	BuiltFresh  bool     // false when the index came from cache
	Duration    time.Duration
}

// Run performs a single extraction. Recoverable conditions (missing names,
// scan and index warnings, dangling references) land in the Result; only
// I/O failures and an entirely unmatched target list return an error.
func Run(ctx context.Context, mgr *cache.Manager, req Request, progress deck.ScanProgress, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(req.Targets) == 0 {
		return nil, errors.New("no target sets requested")
	}
	start := time.Now()

	ix, fresh, err := mgr.LoadOrBuild(ctx, req.Source, progress)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", req.Source, err)
	}
	nodes, elements, elsets, constraints := ix.Counts()
	logger.Debug("index ready",
		"source", req.Source, "fresh", fresh,
		"nodes", nodes, "elements", elements, "elsets", elsets, "constraints", constraints)

	closure, err := resolver.Resolve(ix, req.Targets)
	if err != nil {
		return nil, err
	}

	if err := writer.Write(ix, closure, req.Output, writer.WithHeading(req.Source, req.Targets)); err != nil {
		return nil, err
	}

	res := &Result{
		Output:      req.Output,
		Elements:    len(closure.Elements),
		Nodes:       len(closure.Nodes),
		Constraints: len(closure.Constraints),
		Sections:    len(closure.Sections),
		Missing:     closure.Missing,
		BuiltFresh:  fresh,
		Duration:    time.Since(start),
	}
	for _, w := range ix.ScanWarnings {
		res.Warnings = append(res.Warnings, w.String())
	}
	for _, w := range ix.Warnings {
		res.Warnings = append(res.Warnings, w.String())
	}
	for _, w := range closure.Warnings {
		res.Warnings = append(res.Warnings, w.String())
	}
	for _, name := range closure.Missing {
		res.Warnings = append(res.Warnings, fmt.Sprintf("requested set %q not found", name))
	}
	return res, nil
}
