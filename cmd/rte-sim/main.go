// Command rte-sim dispatches a dispatchable STNU to completion (spec
// §4.8), reporting the resulting schedule.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/cstnu/pkg/rte"

	"github.com/gitrdm/cstnu/internal/cliutil"
	"github.com/gitrdm/cstnu/internal/graphio"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:     "rte-sim [input-file]",
		Short:   "Dispatch a dispatchable STNU to completion",
		Args:    cobra.ExactArgs(1),
		Version: version,
	}
	flags := cliutil.Bind(root)
	var controllerName, environmentName string
	root.Flags().StringVar(&controllerName, "controller", "LATE", "controller strategy")
	root.Flags().StringVar(&environmentName, "environment", "RANDOM", "environment strategy")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return run(args[0], flags, controllerName, environmentName)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// simResult is rte-sim's output record: spec §6 only specifies the
// status record for propagator decisions, so this extends it with the
// execution trace id and schedule an RTE run actually produces.
type simResult struct {
	TraceID  string         `json:"trace_id"`
	Schedule map[string]int `json:"schedule,omitempty"`
	Timeout  bool           `json:"timeout"`
	Error    string         `json:"error,omitempty"`
}

func run(inputFile string, flags *cliutil.Flags, controllerName, environmentName string) error {
	logger, err := cliutil.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	controller, ok := rte.Lookup(controllerName)
	if !ok {
		return fmt.Errorf("rte-sim: unknown controller strategy %q", controllerName)
	}
	environment, ok := rte.Lookup(environmentName)
	if !ok {
		return fmt.Errorf("rte-sim: unknown environment strategy %q", environmentName)
	}

	in, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("rte-sim: %w", err)
	}
	defer in.Close()

	g, err := graphio.Read(in)
	if err != nil {
		return fmt.Errorf("rte-sim: malformed input: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.Timeout)
	defer cancel()

	traceID := uuid.NewString()
	exec := rte.NewExecutor(g, controller, environment)

	start := time.Now()
	schedule, runErr := exec.Run(ctx)
	elapsed := time.Since(start)

	result := simResult{TraceID: traceID}
	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		result.Timeout = true
	case runErr != nil:
		result.Error = runErr.Error()
	default:
		result.Schedule = schedule
	}

	logger.Info("rte run complete",
		logFields(traceID, controllerName, environmentName, elapsed, result)...,
	)

	out, closeOut, err := cliutil.OpenOutput(flags)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func logFields(traceID, controllerName, environmentName string, elapsed time.Duration, result simResult) []zap.Field {
	fields := []zap.Field{
		zap.String("trace_id", traceID),
		zap.String("controller", controllerName),
		zap.String("environment", environmentName),
		zap.Int64("execution_time_ns", elapsed.Nanoseconds()),
		zap.Bool("timeout", result.Timeout),
	}
	if result.Error != "" {
		fields = append(fields, zap.String("error", result.Error))
	}
	return fields
}
