package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/dbscope/internal/bench"
	"github.com/VatsalSy/dbscope/pkg/data"
)

var benchCmd = &cobra.Command{
	Use:   "bench SQL",
	Short: "Time repeated scalar executions",
	Long: `Run a scalar query repeatedly and report latency.

Each iteration opens the closed connection, runs the query and closes the
connection again, so the figures include connection setup.`,
	Example: `  dbscope bench "SELECT 1" -n 500 --rate 50`,
	Args:    cobra.ExactArgs(1),
	RunE:    logged(runBench),
}

var (
	benchIterations int
	benchRate       float64
)

func init() {
	benchCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 0,
		"Number of executions (default: configured iterations)")
	benchCmd.Flags().Float64Var(&benchRate, "rate", -1,
		"Executions per second, 0 for unlimited (default: configured rate)")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := application.Config()

	opts := bench.Options{
		Iterations: cfg.Bench.Iterations,
		PerSecond:  cfg.Bench.Rate,
	}
	if benchIterations > 0 {
		opts.Iterations = benchIterations
	}
	if benchRate >= 0 {
		opts.PerSecond = benchRate
	}

	command, err := newCommand(args[0])
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(opts.Iterations,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Benchmarking"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
	opts.OnResult = func(error) { _ = bar.Add(1) }

	stats, err := runScalarBench(application.Context(), command, opts)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	renderBench(cmd.OutOrStdout(), stats)
	return nil
}

// runScalarBench times ExecuteScalarAuto on command, so every iteration
// goes through the open and close of the connection.
func runScalarBench(ctx context.Context, command data.Command, opts bench.Options) (bench.Stats, error) {
	return bench.Run(ctx, opts, func(ctx context.Context) error {
		_, err := data.ExecuteScalarAutoContext(ctx, command)
		return err
	})
}

func renderBench(w io.Writer, stats bench.Stats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Executions", stats.Executions},
		{"Failures", stats.Failures},
		{"Elapsed", stats.Elapsed.Round(time.Millisecond)},
		{"Rate", fmt.Sprintf("%.1f/s", stats.AverageRate)},
		{"Mean", stats.Mean},
		{"Min", stats.Min},
		{"p50", stats.P50},
		{"p95", stats.P95},
		{"p99", stats.P99},
		{"Max", stats.Max},
	})
	tw.Render()

	if stats.Failures > 0 {
		fmt.Fprintln(w, color.RedString("%d executions failed", stats.Failures))
	}
}
