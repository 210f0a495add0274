package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "submodel",
	Short: "Extract self-contained sub-models from large FE input decks",
	Long: `submodel extracts a self-contained, independently loadable sub-model
from a large finite-element input deck, given a set of named element sets.

The extracted deck carries the full dependency closure of the requested
sets: elements, their nodes, governing sections and materials, and every
constraint that couples the selection to the rest of the model. Parsed
decks are cached by file identity so repeated extractions skip the parse.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.submodel.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "disable progress bars and non-error output")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default is ~/.submodel/cache)")

	// Bind flags to viper
	viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
}

// initLogging installs the process logger. Verbose enables debug records;
// quiet raises the bar to errors only.
func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
