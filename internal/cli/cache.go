package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command group
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached deck indexes",
	Long: `Manage the serialized index cache.

Parsed decks are cached by (path, size, modification time); a changed deck
reparses automatically, so cleaning is only needed to reclaim disk space.

Available commands:
  info   - Show cache location and cached sources
  clean  - Remove every cached index`,
}

// cacheInfoCmd shows cache location and cached entries
var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and cached sources",
	RunE:  runCacheInfo,
}

// cacheCleanCmd removes all cache entries
var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached index",
	RunE:  runCacheClean,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	entries, err := mgr.Entries()
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}

	fmt.Printf("Cache directory: %s\n", mgr.Dir())
	if len(entries) == 0 {
		fmt.Println("No cached indexes.")
		return nil
	}
	var total int64
	for _, e := range entries {
		fmt.Printf("  %s (%.1f MB, schema %d)\n", e.Source, float64(e.Size)/(1024*1024), e.Schema)
		total += e.Size
	}
	fmt.Printf("%d cached indexes, %.1f MB total\n", len(entries), float64(total)/(1024*1024))
	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}
	if err := mgr.Clean(); err != nil {
		return fmt.Errorf("clean cache: %w", err)
	}
	fmt.Println("Cache cleaned.")
	return nil
}
