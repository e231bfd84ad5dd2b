package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joshharrison/hlsched/internal/input"
	"github.com/joshharrison/hlsched/internal/pipeline"
	"github.com/joshharrison/hlsched/internal/reporter"
	"github.com/joshharrison/hlsched/internal/server"
	"github.com/joshharrison/hlsched/internal/state"
	"github.com/joshharrison/hlsched/internal/ui"
)

var (
	flagGraph       string
	flagGraphFormat string
	flagTiming      string
	flagConstraints string
	flagLibrary     string
	flagJSON        bool
	flagLogLevel    string
	flagLogFormat   string
	flagTrace       bool
	flagMaxCycles   int
)

// app carries the logger and tracer built from the global flags.
type app struct {
	logger   *zap.Logger
	tracer   trace.TracerProvider
	shutdown func(context.Context) error
}

func (a *app) close() {
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "hlsched: flush traces: %v\n", err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)
	err := rootCmd.Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hlsched",
		Short: "Resource-constrained list scheduling for data-flow graphs",
		Long: `hlsched reads a data-flow graph of operations together with per-operator
cycle counts and functional unit limits, computes ASAP/ALAP bounds and slack,
and list-schedules every operation onto the available units.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flagLogLevel, flagLogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger
			if flagTrace {
				tp, shutdown, err := newTracerProvider(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				a.tracer, a.shutdown = tp, shutdown
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagGraph, "graph", "", "Data-flow graph file")
	rootCmd.PersistentFlags().StringVar(&flagGraphFormat, "graph-format", "", "Graph format (text, json); default by file extension")
	rootCmd.PersistentFlags().StringVar(&flagTiming, "timing", "", "Operator timing table (OPERATOR cycles)")
	rootCmd.PersistentFlags().StringVar(&flagConstraints, "constraints", "", "Functional unit table (OPERATOR units)")
	rootCmd.PersistentFlags().StringVar(&flagLibrary, "library", "", "HCL operator library")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "Print trace spans to stderr")
	rootCmd.PersistentFlags().IntVar(&flagMaxCycles, "max-cycles", 0, "Scheduling cycle limit (0 = sum of durations + 1)")

	rootCmd.AddCommand(boundCmd(a, "asap", "Compute the earliest start time of every operation", (*reporter.Reporter).WriteASAP))
	rootCmd.AddCommand(boundCmd(a, "alap", "Compute the latest start time of every operation", (*reporter.Reporter).WriteALAP))
	rootCmd.AddCommand(boundCmd(a, "slack", "Compute ALAP minus ASAP for every operation", (*reporter.Reporter).WriteSlack))
	rootCmd.AddCommand(scheduleCmd(a))
	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(checkCmd(a))
	rootCmd.AddCommand(serveCmd(a))

	return rootCmd
}

func (a *app) config(skipSchedule bool) pipeline.Config {
	return pipeline.Config{
		MaxCycles:      flagMaxCycles,
		SkipSchedule:   skipSchedule,
		Logger:         a.logger,
		TracerProvider: a.tracer,
	}
}

func loadProblem() (*input.Problem, error) {
	p, err := input.Load(input.Sources{
		Graph:       flagGraph,
		GraphFormat: flagGraphFormat,
		Timing:      flagTiming,
		Constraints: flagConstraints,
		Library:     flagLibrary,
	})
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	return p, nil
}

// runPipeline is shared logic for every command that needs a result.
func (a *app) runPipeline(ctx context.Context, skipSchedule bool) (*pipeline.Result, error) {
	p, err := loadProblem()
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, p, a.config(skipSchedule))
}

func boundCmd(a *app, use, short string, write func(*reporter.Reporter, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.runPipeline(cmd.Context(), true)
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), boundsJSON(use, res))
			}
			return write(reporter.New(res), cmd.OutOrStdout())
		},
	}
}

// boundsJSON maps node ids to the value named by kind.
func boundsJSON(kind string, res *pipeline.Result) map[string]any {
	values := make(map[string]int, len(res.Nodes))
	for _, n := range res.Nodes {
		v := n.Slack
		switch kind {
		case "asap":
			v = n.ASAP
		case "alap":
			v = n.ALAP
		}
		values[fmt.Sprintf("%d", n.ID)] = v
	}
	out := map[string]any{kind: values}
	switch kind {
	case "asap":
		out["finish"] = res.Analysis.ASAPFinish
	case "alap":
		out["finish"] = res.Analysis.ALAPFinish
	}
	return out
}

func scheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "List-schedule every operation under the unit constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.runPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), res.Schedule)
			}
			return reporter.New(res).WriteSchedule(cmd.OutOrStdout())
		},
	}
}

func reportCmd(a *app) *cobra.Command {
	var flagOutDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run every pass and print a summary or write all outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.runPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			rpt := reporter.New(res)

			if flagOutDir != "" {
				written, err := rpt.WriteFiles(flagOutDir)
				if err != nil {
					return err
				}
				if flagJSON {
					return outputJSON(cmd.OutOrStdout(), map[string][]string{"files": written})
				}
				for _, path := range written {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Green("✓"), path)
				}
				return nil
			}

			if flagJSON {
				data, err := rpt.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			ui.PrintLogo(cmd.ErrOrStderr())
			rpt.PrintSummary(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&flagOutDir, "out-dir", "", "Write asap/alap/slack/schedule tables and result.json to this directory")
	return cmd
}

func checkCmd(a *app) *cobra.Command {
	var flagVerbose bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the graph and operator library without scheduling",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProblem()
			if err != nil {
				return err
			}
			g, err := pipeline.Check(cmd.Context(), p, a.config(true))
			if err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), map[string]any{
					"valid":     true,
					"nodes":     g.Len(),
					"operators": g.Operators(),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d nodes, operators: %s\n",
				ui.Green("✓"), g.Len(), strings.Join(g.Operators(), ", "))
			if flagVerbose {
				return reporter.WriteGraph(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "List every node with its children and parents")
	return cmd
}

func serveCmd(a *app) *cobra.Command {
	var (
		flagPort     int
		flagStateDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scheduler over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := state.Open(flagStateDir)
			if err != nil {
				return err
			}
			srv := server.New(a.config(false), store)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s listening on :%d\n", ui.BoldCyan("hlsched"), flagPort)
			return srv.Serve(ctx, fmt.Sprintf(":%d", flagPort))
		},
	}

	cmd.Flags().IntVar(&flagPort, "port", 7171, "Port to listen on")
	cmd.Flags().StringVar(&flagStateDir, "state-dir", "", "Persist runs under this directory (default: memory only)")
	return cmd
}

// --- Output helpers ---

func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
