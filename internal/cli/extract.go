package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/submodel/internal/extract"
)

var (
	extractSets    []string
	extractOutput  string
	extractNoCache bool
	extractWatch   bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <source.inp>",
	Short: "Extract a self-contained sub-model for the given element sets",
	Long: `Extract reads a deck, computes the full dependency closure of the
requested element sets, and writes a sub-deck that loads on its own:
elements, their nodes, governing sections and materials, and every
constraint coupling the selection to the rest of the model.

Set names are case-sensitive as written in the deck and may be glob
patterns (e.g. 'wheel-*').

Examples:
  # Extract two sets into wheels.inp
  submodel extract model.inp --sets wheel-hub,wheel-tyre -o wheels.inp

  # Force a reparse, ignoring the cache
  submodel extract model.inp --sets PART1 -o out.inp --no-cache

  # Re-extract whenever the source deck changes
  submodel extract model.inp --sets PART1 -o out.inp --watch
`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringSliceVar(&extractSets, "sets", nil, "target element set names or patterns (comma separated)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output deck path")
	extractCmd.Flags().BoolVar(&extractNoCache, "no-cache", false, "force reparse, ignoring any cached index")
	extractCmd.Flags().BoolVarP(&extractWatch, "watch", "w", false, "watch the source deck and re-extract on change")
	extractCmd.MarkFlagRequired("sets")
	extractCmd.MarkFlagRequired("output")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	source := args[0]
	if extractNoCache {
		if err := mgr.Invalidate(source); err != nil {
			return fmt.Errorf("invalidate cache: %w", err)
		}
	}

	req := extract.Request{
		Source:  source,
		Targets: extractSets,
		Output:  extractOutput,
	}

	if extractWatch {
		w, err := extract.NewWatcher(mgr, req, nil)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		w.OnResult = func(res *extract.Result) {
			printResult(res)
		}
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("watch mode failed: %w", err)
		}
		return nil
	}

	res, err := extract.Run(ctx, mgr, req, scanProgress(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return err
	}
	printResult(res)
	return nil
}

// printResult reports one extraction summary on stdout.
func printResult(res *extract.Result) {
	if quiet {
		return
	}
	fmt.Printf("✓ %s: %d elements, %d nodes, %d constraints, %d sections (%.2fs)\n",
		res.Output, res.Elements, res.Nodes, res.Constraints, res.Sections,
		res.Duration.Seconds())
	if len(res.Missing) > 0 {
		fmt.Printf("  missing sets: %s\n", strings.Join(res.Missing, ", "))
	}
	if verbose {
		for _, w := range res.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	} else if n := len(res.Warnings); n > 0 {
		fmt.Printf("  %d warnings (run with --verbose to list)\n", n)
	}
}
