package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/submodel/internal/config"
	"github.com/mvp-joe/submodel/internal/extract"
)

var (
	batchSystemsFile string
	batchOutputDir   string
	batchWorkers     int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <source.inp>",
	Short: "Extract every system defined in a systems file",
	Long: `Batch parses the source deck once and extracts each system defined in
the systems file against the shared index, in parallel. Each system writes
<source-stem>_<system>.inp; one system's failure does not block the others.

The systems file maps system names to element set lists:

  systems:
    chassis: [frame-rails, crossmembers]
    wheels:  ["wheel-*", hub-front, hub-rear]

By default the file is systems.yml next to the source deck.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchSystemsFile, "systems", "", "systems file (default is systems.yml next to the source)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "output directory (default is the source directory)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "parallel extractions (default is GOMAXPROCS)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	systemsFile := batchSystemsFile
	if systemsFile == "" {
		systemsFile = filepath.Join(filepath.Dir(source), "systems.yml")
	}
	systems, err := config.LoadSystems(systemsFile)
	if err != nil {
		return err
	}

	outDir := batchOutputDir
	if outDir == "" {
		outDir = cfg.Extract.OutputDir
	}
	workers := batchWorkers
	if workers == 0 {
		workers = cfg.Extract.Workers
	}

	if !quiet {
		fmt.Printf("Batch extraction: %s (%d systems)\n", source, len(systems))
	}

	res, err := extract.RunBatch(ctx, mgr, source, systems, outDir, workers, scanProgress(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("batch cancelled")
		}
		return err
	}

	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if r, ok := res.Results[name]; ok {
			if !quiet {
				fmt.Printf("[%s] ", name)
				printResult(r)
			}
			continue
		}
		fmt.Fprintf(os.Stderr, "[%s] failed: %v\n", name, res.Failed[name])
	}

	if !res.OK() {
		return fmt.Errorf("all %d systems failed", len(systems))
	}
	return nil
}
