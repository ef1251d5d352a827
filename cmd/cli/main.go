package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocohort/adapters/excel"
	"gocohort/app"
	"gocohort/domain/actor"
	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"
	"gocohort/internal/algorithms"
	"gocohort/internal/config"
	"gocohort/internal/container"
	"gocohort/internal/errors"
	"gocohort/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gocohort",
		Short: "Cluster scored actors into named cohorts and assign new actors to them",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newAssignCmd(),
		newOptimalKCmd(),
		newReportCmd(),
		newImportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadContainer wires the application from configuration. Commands that read
// stored runs require a database; the rest run without persistence when
// DATABASE_URL is unset.
func loadContainer(ctx context.Context, needDB bool) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(cfg.LogLevel))

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if needDB || cfg.Database.Enabled() {
		if err := c.Init(ctx, false); err != nil {
			return nil, err
		}
		return c, nil
	}
	c.InitWithoutStore()
	return c, nil
}

func newRunCmd() *cobra.Command {
	var (
		input      string
		algorithm  string
		k          int
		minSignals int
		persist    bool
		outliers   bool
		stability  int
		testFrac   float64
		reportPath string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Cluster actors, characterize cohorts and assign the population",
		Long: `Run the full segmentation pipeline.

Actors are read from --input (.xlsx, .csv or .json) or, when omitted, from the
actor_profiles table. --algorithm all compares k-means over CLUSTER_K_RANGE,
DBSCAN, hierarchical and GMM and keeps the best-scoring labeling.

Example: gocohort run --input actors.xlsx --algorithm kmeans --k 5 --report run.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, false)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			opts := c.RunOptions()
			if cmd.Flags().Changed("algorithm") {
				opts.Algorithm = algorithm
				if alg, err := clustering.ParseAlgorithm(algorithm); err == nil {
					opts.Params = c.Config.Clustering.Params(alg)
				}
			}
			if k > 0 {
				opts.Params.K = k
				opts.RunAll.K = k
			}
			opts.Persist = persist && c.DB != nil
			opts.RemoveOutliers = outliers
			if cmd.Flags().Changed("stability") {
				opts.StabilityIterations = stability
			}
			if cmd.Flags().Changed("test-fraction") {
				opts.TestFraction = testFrac
			}

			source, err := c.ActorSource(input)
			if err != nil {
				return err
			}
			outcome, err := c.Segmentation.RunFromSource(ctx, source, minSignals, opts)
			if err != nil && outcome == nil {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}

			if reportPath != "" {
				if err := writeReport(reportPath, outcome); err != nil {
					return err
				}
			}
			if jsonOut {
				return printJSON(outcome)
			}
			printOutcome(outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Actor file (.xlsx, .csv, .json)")
	cmd.Flags().StringVar(&algorithm, "algorithm", config.AlgorithmAll, "all|kmeans|dbscan|hierarchical|gmm")
	cmd.Flags().IntVar(&k, "k", 0, "Number of clusters (overrides CLUSTER_K)")
	cmd.Flags().IntVar(&minSignals, "min-signals", 0, "Skip actors with fewer signals")
	cmd.Flags().BoolVar(&persist, "persist", true, "Store the run when a database is configured")
	cmd.Flags().BoolVar(&outliers, "remove-outliers", false, "Drop z-score outliers before clustering")
	cmd.Flags().IntVar(&stability, "stability", 0, "Reseeded stability iterations (0 skips)")
	cmd.Flags().Float64Var(&testFrac, "test-fraction", 0, "Held-out fraction for the generalization check (0 skips)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a report (.md, .html or .xlsx)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full outcome as JSON")
	return cmd
}

func newAssignCmd() *cobra.Command {
	var (
		runID string
		input string
	)

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign new actors to the cohorts of a stored run",
		Long: `Project actors onto the feature scale of a stored run and place each one
in its nearest cohort.

Example: gocohort assign --run 0190... --input new_actors.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, true)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			actors, err := excel.NewFileSource(input).ListActors(ctx, 0)
			if err != nil {
				return err
			}
			service := c.Segmentation
			if runID == "" {
				r, _, err := service.RunDetails(ctx, "")
				if err != nil {
					return err
				}
				runID = string(r.ID)
			}

			outcome, err := service.AssignNew(ctx, core.RunID(runID), actors)
			if err != nil && outcome == nil {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			for _, a := range outcome.Assignments {
				if a.Error != "" {
					fmt.Printf("%-24s  error: %s\n", a.ActorID, a.Error)
					continue
				}
				fmt.Printf("%-24s  %-36s  confidence %.3f\n", a.ActorID, a.CohortName, a.Confidence)
			}
			fmt.Println()
			fmt.Print(report.AssignmentMarkdown(outcome.Quality))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (defaults to the latest run)")
	cmd.Flags().StringVar(&input, "input", "", "Actor file (.xlsx, .csv, .json)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newOptimalKCmd() *cobra.Command {
	var (
		input      string
		method     string
		maxK       int
		minSignals int
	)

	cmd := &cobra.Command{
		Use:   "optimal-k",
		Short: "Search for the best k-means cluster count",
		Long: `Run k-means for k = 2..max-k and pick k by the elbow, silhouette or gap method.

Example: gocohort optimal-k --input actors.xlsx --method elbow --max-k 15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, false)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			source, err := c.ActorSource(input)
			if err != nil {
				return err
			}
			actors, err := source.ListActors(ctx, minSignals)
			if err != nil {
				return err
			}

			opts := c.RunOptions()
			sel, err := c.Segmentation.OptimalK(actors, opts.Features, algorithms.KRange(maxK),
				quality.KSelectionMethod(method), opts.RunAll.KMeans)
			if err != nil {
				return err
			}

			fmt.Printf("%-4s %14s %12s\n", "k", "inertia", "silhouette")
			for _, c := range sel.Candidates {
				marker := ""
				if c.K == sel.OptimalK {
					marker = "  <-"
				}
				fmt.Printf("%-4d %14.4f %12.4f%s\n", c.K, c.Inertia, c.Silhouette, marker)
			}
			fmt.Printf("\noptimal k (%s): %d\n", sel.Method, sel.OptimalK)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Actor file (.xlsx, .csv, .json)")
	cmd.Flags().StringVar(&method, "method", string(quality.MethodElbow), "elbow|silhouette|gap")
	cmd.Flags().IntVar(&maxK, "max-k", 15, "Largest k to try")
	cmd.Flags().IntVar(&minSignals, "min-signals", 0, "Skip actors with fewer signals")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		runID    string
		xlsxPath string
		htmlPath string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print or export the report of a stored run",
		Long: `Render a stored run as markdown, or export it as an HTML page or an xlsx
workbook with Run, Cohorts and Assignments sheets.

Example: gocohort report --run 0190... --xlsx cohorts.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, true)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			service := c.Segmentation
			r, cohorts, err := service.RunDetails(ctx, core.RunID(runID))
			if err != nil {
				return err
			}
			assignments, q, err := service.RunAssignments(ctx, r.ID)
			if err != nil {
				return err
			}

			md := report.RunMarkdown(*r, cohorts, q)
			if xlsxPath != "" {
				if err := excel.SaveWorkbook(xlsxPath, *r, cohorts, assignments); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s\n", xlsxPath)
			}
			if htmlPath != "" {
				if err := os.WriteFile(htmlPath, report.HTML("Segmentation run "+string(r.ID), md), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s\n", htmlPath)
			}
			if xlsxPath == "" && htmlPath == "" {
				fmt.Print(md)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (defaults to the latest run)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Export an xlsx workbook to this path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Export an HTML report to this path")
	return cmd
}

func newImportCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load actor records from a file into the actor_profiles table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, true)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			actors, err := excel.NewFileSource(input).ListActors(ctx, 0)
			if err != nil {
				return err
			}
			if err := validateActors(actors); err != nil {
				return err
			}
			if err := c.ActorRepo.SaveActors(ctx, actors); err != nil {
				return err
			}
			fmt.Printf("imported %d actors from %s\n", len(actors), filepath.Base(input))
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Actor file (.xlsx, .csv, .json)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func validateActors(actors []actor.Record) error {
	var bad []string
	for _, a := range actors {
		if err := a.DriverDistribution.Validate(); err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", a.ActorID, err))
		}
	}
	if len(bad) > 0 {
		return errors.ValidationError(fmt.Sprintf("%d actors have invalid driver distributions:\n  %s",
			len(bad), strings.Join(bad, "\n  ")))
	}
	return nil
}

func writeReport(path string, outcome *app.RunOutcome) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return excel.SaveWorkbook(path, outcome.Run, outcome.Cohorts, outcome.Assignments)
	case ".html", ".htm":
		md := runReport(outcome)
		return os.WriteFile(path, report.HTML("Segmentation run "+string(outcome.Run.ID), md), 0o644)
	default:
		return os.WriteFile(path, []byte(runReport(outcome)), 0o644)
	}
}

func runReport(outcome *app.RunOutcome) string {
	var b strings.Builder
	b.WriteString(report.RunMarkdown(outcome.Run, outcome.Cohorts, &outcome.AssignmentQuality))
	b.WriteString("\n")
	b.WriteString(report.ValidationMarkdown(outcome.Comparison))
	return b.String()
}

func printOutcome(outcome *app.RunOutcome) {
	r := outcome.Run
	fmt.Printf("run %s: %s, %d actors, %d cohorts\n", r.ID, r.Algorithm, r.NActors, r.NClusters)
	fmt.Printf("silhouette %.3f (%s)\n", r.Silhouette, r.Quality)
	for _, f := range outcome.Failures {
		fmt.Printf("  %s failed: %s\n", f.Algorithm, f.Error)
	}
	fmt.Println()
	for _, c := range outcome.Cohorts {
		fmt.Printf("  %-40s %5d  %5.1f%%  %s\n", c.Name, c.Size, c.Percentage, c.Messaging.Tone)
	}
	q := outcome.AssignmentQuality
	fmt.Printf("\nassignment quality %.2f (%s), mean confidence %.3f\n", q.Score, q.Label, q.AverageConfidence)
	if outcome.Stability != nil {
		fmt.Printf("stability %.3f ± %.3f over %d iterations\n",
			outcome.Stability.Mean, outcome.Stability.Std, outcome.Stability.Iterations)
	}
	if outcome.Generalization != nil {
		g := outcome.Generalization
		fmt.Printf("generalization: train %.3f, test %.3f, consistency %.3f\n",
			g.TrainSilhouette, g.TestSilhouette, g.Consistency)
	}
	if outcome.Persisted {
		fmt.Println("stored")
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
