// Command cstnu-check decides the dynamic controllability of a CSTNU
// (spec §4.6) read from a GraphML-subset input file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/cstnu/pkg/cstnu"

	"github.com/gitrdm/cstnu/internal/cliutil"
	"github.com/gitrdm/cstnu/internal/graphio"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:     "cstnu-check [input-file]",
		Short:   "Decide dynamic controllability of a CSTNU",
		Args:    cobra.ExactArgs(1),
		Version: version,
	}
	flags := cliutil.Bind(root)

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return run(args[0], flags)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputFile string, flags *cliutil.Flags) error {
	logger, err := cliutil.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	in, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("cstnu-check: %w", err)
	}
	defer in.Close()

	g, err := graphio.Read(in)
	if err != nil {
		return fmt.Errorf("cstnu-check: malformed input: %w", err)
	}

	cfg := cstnu.DefaultConfig()
	cfg.OnlyToZ = flags.OnlyToZ
	checker := cstnu.NewChecker(g, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), flags.Timeout)
	defer cancel()

	start := time.Now()
	res, checkErr := checker.Check(ctx)
	elapsed := time.Since(start)

	status := cliutil.Status{ExecutionTimeNs: elapsed.Nanoseconds()}
	switch {
	case errors.Is(checkErr, context.DeadlineExceeded):
		status.Timeout = true
		status.Finished = false
	case checkErr != nil:
		return fmt.Errorf("cstnu-check: %w", checkErr)
	default:
		status.Consistency = res.Consistent
		status.Finished = res.Finished
		status.NegativeLoopNode = res.NegativeLoopAt
	}
	if res != nil {
		status.Cycles = res.Cycles
	}

	logger.Info("cstnu check complete", cliutil.ZapFields(status)...)

	out, closeOut, err := cliutil.OpenOutput(flags)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck

	if flags.Cleaned {
		return graphio.Write(out, g)
	}
	return cliutil.WriteStatus(out, status)
}
