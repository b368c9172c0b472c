package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/style-engine/pkg/config"
	"github.com/style-engine/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "style-engine",
	Short: "A parallel style traversal engine",
	Long: `style-engine computes a style for every node of a DOM-like tree with a
parallel, breadth-first, top-down traversal over a work-stealing pool.

The bench command runs the traversal over synthetic trees of various
shapes, reports traversal statistics, and can record runs to a database
for comparison across engine configurations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger based on verbose flag
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout).Named(cmd.Name())

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")

	// Set dynamic example using actual binary name
	binName := BinName()
	rootCmd.Example = `  # Style a balanced tree (branch 4, depth 6) once and print statistics
  ` + binName + ` bench --shape balanced --branch 4 --depth 6

  # Stress the chunk splitter with a very wide tree on 8 workers
  ` + binName + ` bench --shape wide --nodes 10000 --workers 8

  # Run 5 iterations and record them to the configured database
  ` + binName + ` bench --shape random --nodes 50000 --iterations 5 --save`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
