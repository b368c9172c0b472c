package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/style-engine/internal/repository"
	"github.com/style-engine/internal/styler"
	"github.com/style-engine/internal/treegen"
	"github.com/style-engine/pkg/dom"
	apperrors "github.com/style-engine/pkg/errors"
	"github.com/style-engine/pkg/parallel"
	"github.com/style-engine/pkg/telemetry"
	"github.com/style-engine/pkg/traversal"
	"github.com/style-engine/pkg/utils"
)

var (
	// Bench command flags
	benchShape      string
	benchBranch     int
	benchDepth      int
	benchNodes      int
	benchSeed       int64
	benchIterations int
	benchWorkers    int
	benchUnitMax    int
	benchSave       bool
	benchStats      bool
)

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the parallel style traversal over a synthetic tree",
	Long: `Run the parallel style traversal over a synthetic tree and report
per-run statistics and scheduler counters.

Supported tree shapes:
  - balanced : every node has the same number of children down to a fixed depth
  - wide     : one root with all remaining nodes as direct children
  - chain    : a single path of nodes, each with exactly one child
  - random   : nodes attached to uniformly chosen existing parents

The balanced shape takes --branch and --depth; the other shapes take
--nodes. Runs can be recorded with --save for comparison across engine
configurations.`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVarP(&benchShape, "shape", "s", "balanced", "Tree shape: balanced, wide, chain, random")
	benchCmd.Flags().IntVar(&benchBranch, "branch", 4, "Children per node (balanced shape)")
	benchCmd.Flags().IntVar(&benchDepth, "depth", 6, "Tree depth (balanced shape)")
	benchCmd.Flags().IntVarP(&benchNodes, "nodes", "n", 10000, "Node count (wide, chain and random shapes)")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "Seed for the random shape")
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 1, "Number of traversal runs over the same tree")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", 0, "Worker count (0 = config, then pool default)")
	benchCmd.Flags().IntVar(&benchUnitMax, "unit", 0, "Work unit size override (0 = config default)")
	benchCmd.Flags().BoolVar(&benchSave, "save", false, "Record the run to the configured database")
	benchCmd.Flags().BoolVar(&benchStats, "stats", false, "Dump traversal statistics for large runs")
}

func runBench(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := context.Background()

	opts := traversal.Options{
		WorkUnitMax:         cfg.Traversal.WorkUnitMax,
		RecursionDepthLimit: cfg.Traversal.RecursionDepthLimit,
	}
	if benchUnitMax > 0 {
		opts.WorkUnitMax = benchUnitMax
	}

	workers := benchWorkers
	if workers <= 0 {
		workers = cfg.Traversal.Workers
	}
	if workers <= 0 {
		workers = parallel.DefaultWorkers()
	}

	// Telemetry is disabled unless configured via environment; Init is a
	// no-op in that case. The pool size is stamped onto the trace resource
	// so runs with different worker counts can be told apart.
	shutdown, err := telemetry.Init(ctx, telemetry.WithPoolWorkers(workers))
	if err != nil {
		log.Warn("Telemetry init failed, continuing without tracing: %v", err)
	} else {
		defer shutdown(ctx)
	}

	timer := utils.NewTimer("bench", utils.WithLogger(log))

	var root *dom.Element
	timer.TimeFunc("build-tree", func() {
		root, err = buildTree(benchShape)
	})
	if err != nil {
		return err
	}
	nodeCount := treegen.Count(root)

	log.Info("=== Style Traversal Bench ===")
	log.Info("Shape:      %s", benchShape)
	log.Info("Nodes:      %d", nodeCount)
	log.Info("Workers:    %d", workers)
	log.Info("Work unit:  %d", opts.WorkUnitMax)
	log.Info("Iterations: %d", benchIterations)
	log.Info("")

	sharedOpts := []traversal.SharedOption{traversal.WithOptions(opts)}
	if benchStats || cfg.Traversal.DumpStatistics {
		sharedOpts = append(sharedOpts, traversal.WithDumpStatistics())
	}

	pool := parallel.NewPool(workers)
	defer pool.Close()

	ctx, span := otel.Tracer("style-engine/bench").Start(ctx, "bench.traverse")
	span.SetAttributes(
		attribute.String("tree.shape", benchShape),
		attribute.Int("tree.nodes", nodeCount),
		attribute.Int("pool.workers", workers),
		attribute.Int("traversal.work_unit_max", opts.WorkUnitMax),
	)
	defer span.End()

	var total traversal.Statistics
	var elapsed time.Duration
	for i := 0; i < benchIterations; i++ {
		shared := traversal.NewSharedContext(sharedOpts...)
		strategy := styler.New(shared)
		token := strategy.PreTraverse(root)
		if !token.ShouldTraverse() {
			return apperrors.New(apperrors.CodeTraversalError,
				fmt.Sprintf("traversal rejected for shape %s", benchShape))
		}

		var stats *traversal.Statistics
		timer.TimeFunc(fmt.Sprintf("traverse-%d", i+1), func() {
			stats = traversal.Traverse(strategy, root, token, pool)
		})
		elapsed += stats.TraversalTime
		total.ElementsTraversed += stats.ElementsTraversed
		total.ElementsStyled += stats.ElementsStyled
		total.StylesShared += stats.StylesShared
		total.ChildrenDiscovered += stats.ChildrenDiscovered

		log.Debug("Iteration %d: %d elements in %v", i+1, stats.ElementsTraversed, stats.TraversalTime)
	}

	metrics := pool.Metrics()
	log.Info("Elements traversed:  %d", total.ElementsTraversed)
	log.Info("Elements styled:     %d", total.ElementsStyled)
	log.Info("Styles shared:       %d", total.StylesShared)
	log.Info("Children discovered: %d", total.ChildrenDiscovered)
	log.Info("Tasks spawned:       %d (stolen: %d)", metrics.TasksSpawned, metrics.TasksStolen)
	log.Info("Total time:          %v", elapsed)

	if benchSave {
		timer.TimeFunc("persist", func() {
			err = saveRun(ctx, nodeCount, workers, opts.WorkUnitMax, elapsed, &total)
		})
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		log.Info("Run recorded to %s database", cfg.Database.Type)
	}

	if verbose {
		timer.PrintSummary()
	}
	return nil
}

// buildTree constructs the synthetic tree for the selected shape.
func buildTree(shape string) (*dom.Element, error) {
	switch strings.ToLower(shape) {
	case "balanced":
		return treegen.Balanced(benchBranch, benchDepth), nil
	case "wide":
		return treegen.Wide(benchNodes), nil
	case "chain":
		return treegen.Chain(benchNodes), nil
	case "random":
		return treegen.Random(benchNodes, benchSeed), nil
	default:
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("unknown shape: %s (valid: balanced, wide, chain, random)", shape))
	}
}

func saveRun(ctx context.Context, nodeCount, workers, unitMax int, elapsed time.Duration, stats *traversal.Statistics) error {
	db, err := repository.NewGormDB(&cfg.Database)
	if err != nil {
		return err
	}

	repo := repository.NewGormRunRepository(db)
	return repo.Save(ctx, &repository.BenchmarkRun{
		Shape:             strings.ToLower(benchShape),
		NodeCount:         nodeCount,
		Workers:           workers,
		WorkUnitMax:       unitMax,
		Iterations:        benchIterations,
		Elapsed:           elapsed,
		ElementsTraversed: int64(stats.ElementsTraversed),
		ElementsStyled:    int64(stats.ElementsStyled),
		StylesShared:      int64(stats.StylesShared),
	})
}
