package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pipesim/perflog"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/thread"
)

// options holds the flags shared by every command.
type options struct {
	configPath string
	pipeline   string
	threading  string
	forwarding bool
	strict     bool
	logDB      string
	verbosity  int

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	o := &options{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "pipesim",
		Short:         "Cycle-accurate scalar and superscalar pipeline simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "Path to simulator configuration JSON file")
	flags.StringVar(&o.pipeline, "pipeline", "", "Pipeline type: scalar or superscalar")
	flags.StringVar(&o.threading, "threading", "", "Multithreading mode: none, imt, bmt or smt")
	flags.BoolVar(&o.forwarding, "forwarding", false, "Enable data forwarding")
	flags.BoolVar(&o.strict, "strict", false, "Reject unknown operations")
	flags.StringVar(&o.logDB, "log-db", ".pipesim/perflog", "Performance log directory (empty for in-memory)")
	flags.CountVarP(&o.verbosity, "verbose", "v", "Verbose output (-v debug, -vv trace)")

	root.AddCommand(
		newRunCmd(o),
		newDemoCmd(o),
		newBenchCmd(o),
		newLogsCmd(o),
		newConfigCmd(o),
		newProfileCmd(o),
	)

	return root
}

// simConfig resolves the configuration file and the flag overrides.
func (o *options) simConfig(cmd *cobra.Command) (*core.Config, error) {
	config := core.DefaultConfig()
	if o.configPath != "" {
		loaded, err := core.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if o.pipeline != "" {
		kind, err := pipeline.ParseKind(o.pipeline)
		if err != nil {
			return nil, &core.ConfigurationError{Field: "pipeline type", Value: o.pipeline, Err: err}
		}
		config.Pipeline = kind
	}
	if o.threading != "" {
		mode, err := thread.ParseMode(o.threading)
		if err != nil {
			return nil, &core.ConfigurationError{Field: "multithreading mode", Value: o.threading, Err: err}
		}
		config.Threading = mode
	}
	if cmd.Flags().Changed("forwarding") {
		config.Forwarding = o.forwarding
	}
	if cmd.Flags().Changed("strict") {
		config.StrictOps = o.strict
	}

	return config, config.Validate()
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case o.verbosity >= 2:
		level = core.LevelTrace
	case o.verbosity == 1:
		level = slog.LevelDebug
	}
	return core.NewTextLogger(o.errOut, level)
}

func (o *options) openLog() (*perflog.Store, error) {
	store, err := perflog.Open(o.logDB)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (o *options) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}
