// Package cliutil is the common flag set, status record, and logger
// setup shared by cmd/cstn-check, cmd/cstnu-check, cmd/ostnu-check and
// cmd/rte-sim (spec §6's CLI surface: one positional input file plus
// -o/--output, -t/--timeOut, --onlyToZ, --cleaned, -v/--version shared
// across all four binaries).
//
// Grounded on the example pack's use of spf13/cobra for command-line
// surfaces and go.uber.org/zap for structured status logging (neither
// appears in the teacher, which has no CLI at all beyond cmd/example's
// plain main; both are pulled from aws-karpenter-provider-aws's stack,
// the only pack repo that ships a CLI surface and a logger of its own).
package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Flags is the shared flag set of spec §6's CLI surface.
type Flags struct {
	Output  string
	Timeout time.Duration
	OnlyToZ bool
	Cleaned bool
}

// Bind registers the shared flags on cmd and returns the struct they
// populate once cmd.Execute parses args.
func Bind(cmd *cobra.Command) *Flags {
	f := &Flags{}
	var timeoutSeconds int
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntVarP(&timeoutSeconds, "timeOut", "t", 900, "timeout in seconds")
	cmd.Flags().BoolVar(&f.OnlyToZ, "onlyToZ", false, "propagate only to Z")
	cmd.Flags().BoolVar(&f.Cleaned, "cleaned", false, "emit minimal simplified graph")
	cmd.PreRun = func(*cobra.Command, []string) {
		f.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return f
}

// Status is the spec §6 "Status output" record.
type Status struct {
	Consistency      bool           `json:"consistency"`
	Finished         bool           `json:"finished"`
	Timeout          bool           `json:"timeout"`
	Cycles           int            `json:"cycles"`
	RuleCounters     map[string]int `json:"rule_counters,omitempty"`
	ExecutionTimeNs  int64          `json:"execution_time_ns"`
	NegativeLoopNode string         `json:"negative_loop_node,omitempty"`
}

// ZapFields renders s as structured logging fields for the shared
// logger.
func ZapFields(s Status) []zap.Field {
	fields := []zap.Field{
		zap.Bool("consistency", s.Consistency),
		zap.Bool("finished", s.Finished),
		zap.Bool("timeout", s.Timeout),
		zap.Int("cycles", s.Cycles),
		zap.Int64("execution_time_ns", s.ExecutionTimeNs),
	}
	if s.NegativeLoopNode != "" {
		fields = append(fields, zap.String("negative_loop_node", s.NegativeLoopNode))
	}
	return fields
}

// WriteStatus serializes s as JSON to w. No pack repo reaches for a
// third-party JSON library for its own application-level serialization
// (the json libraries present in aws-karpenter-provider-aws's
// go.mod arrive transitively, pulled in by Kubernetes client machinery,
// never imported directly by application code for this purpose) so
// encoding/json is the justified choice here.
func WriteStatus(w io.Writer, s Status) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// OpenOutput returns a writer for f.Output, or os.Stdout if unset, plus
// a close func the caller should defer.
func OpenOutput(f *Flags) (io.Writer, func() error, error) {
	if f.Output == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(f.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("cliutil: cannot open output file %q: %w", f.Output, err)
	}
	return file, file.Close, nil
}

// NewLogger builds the status logger shared by every propagator binary:
// compact console encoding, whether or not the output is a terminal.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.DisableStacktrace = true
	return cfg.Build()
}
