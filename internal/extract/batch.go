package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/mvp-joe/submodel/internal/cache"
	"github.com/mvp-joe/submodel/internal/deck"
	"golang.org/x/sync/errgroup"
)

// BatchResult collects per-system outcomes. One system's failure never
// blocks its siblings; Failed is non-nil per failed system.
type BatchResult struct {
	Results map[string]*Result
	Failed  map[string]error
}

// OK reports whether at least one system extracted successfully.
func (b *BatchResult) OK() bool { return len(b.Results) > 0 }

// RunBatch extracts every named system from one source deck. The deck is
// parsed (or restored from cache) once; resolves then run in parallel worker
// goroutines against the shared read-only index, each writing an independent
// output file `<source-stem>_<system>.inp` under outDir (source directory
// when empty).
func RunBatch(ctx context.Context, mgr *cache.Manager, source string, systems map[string][]string, outDir string, workers int, progress deck.ScanProgress, logger *slog.Logger) (*BatchResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if outDir == "" {
		outDir = filepath.Dir(source)
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	// Warm the cache once up front so workers share a single index and the
	// progress bar renders a single parse, not one per system.
	if _, _, err := mgr.LoadOrBuild(ctx, source, progress); err != nil {
		return nil, fmt.Errorf("index %s: %w", source, err)
	}

	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &BatchResult{
		Results: make(map[string]*Result),
		Failed:  make(map[string]error),
	}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(workers)
	for _, name := range names {
		name := name
		targets := systems[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				res.Failed[name] = err
				mu.Unlock()
				return nil
			}
			out := filepath.Join(outDir, fmt.Sprintf("%s_%s.inp", stem, name))
			r, err := Run(ctx, mgr, Request{Source: source, Targets: targets, Output: out}, nil, logger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("system extraction failed", "system", name, "err", err)
				res.Failed[name] = err
				return nil
			}
			r.System = name
			res.Results[name] = r
			return nil
		})
	}
	// Workers report per-system failures through res.Failed, never an error.
	_ = g.Wait()

	return res, nil
}
