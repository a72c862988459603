package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/sparcsim/control"
	"github.com/sarchlab/sparcsim/display"
	"github.com/sarchlab/sparcsim/emu"
	"github.com/sarchlab/sparcsim/loader"
	"github.com/sarchlab/sparcsim/timing/config"
	"github.com/sarchlab/sparcsim/timing/core"
	"github.com/sarchlab/sparcsim/trace"
)

type options struct {
	configPath string
	periodMS   int64
	cycles     uint64
	tracePath  string
	plain      bool
	verbose    bool
}

// newRootCmd builds the sparcsim command. Keystrokes are read from keys
// when it is non-nil.
func newRootCmd(keys io.Reader) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sparcsim [options] <source.s>",
		Short: "Clock-synchronized SPARC front-end pipeline simulator",
		Long: `sparcsim fetches ADD instructions from an assembly source file,
forms them into instruction groups and steps the issue and integer units
in lock step with a global clock.

Keys: Esc or Ctrl-C quits, space pauses and resumes the clock.
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.simConfig(cmd)
			if err != nil {
				return err
			}
			return simulate(cmd, args[0], cfg, opts, keys)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to simulation configuration JSON file")
	flags.Int64Var(&opts.periodMS, "period", 0, "Clock period in milliseconds (overrides config)")
	flags.Uint64Var(&opts.cycles, "cycles", 0, "Stop after this many clock pulses, 0 runs forever (overrides config)")
	flags.StringVar(&opts.tracePath, "trace", trace.DefaultPath, `Diagnostic trace file, "-" for stderr`)
	flags.BoolVar(&opts.plain, "plain", false, "Print panel updates as plain lines")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose trace output")

	return cmd
}

// simConfig loads the configuration and applies flag overrides.
func (o *options) simConfig(cmd *cobra.Command) (*config.SimConfig, error) {
	cfg := config.DefaultSimConfig()
	if o.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if cmd.Flags().Changed("period") {
		cfg.ClockPeriodMS = o.periodMS
	}
	if cmd.Flags().Changed("cycles") {
		cfg.MaxCycles = o.cycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func simulate(cmd *cobra.Command, path string, cfg *config.SimConfig, opts *options, keys io.Reader) error {
	prog, err := loader.Load(path)
	if err != nil {
		return err
	}

	log, closer, err := trace.Open(opts.tracePath, opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	log.WithFields(logrus.Fields{
		"program": path,
		"lines":   len(prog.Lines),
	}).Info("loaded program")

	screen := display.NewText(cmd.OutOrStdout(), opts.plain)

	var kb *control.Keyboard
	if keys != nil {
		kb = control.NewKeyboard(keys, control.WithLogger(trace.ForUnit(log, "KBD")))
		if err := kb.Start(); err != nil {
			return err
		}
		defer kb.Stop()

		if kb.Raw() {
			useRawTerminal(screen, log, opts.tracePath)
		}
	}

	c := core.NewCore(&emu.RegFile{}, prog.NewReader(),
		core.WithConfig(cfg),
		core.WithDisplay(screen),
		core.WithLogger(log),
	)

	if kb != nil {
		go func() {
			for sig := range kb.Signals() {
				c.HandleSignal(sig)
			}
		}()
	}

	runErr := c.Run(cmd.Context())
	_ = screen.Close()
	if kb != nil {
		kb.Stop()
	}

	printStats(cmd.OutOrStdout(), path, c.Stats())

	return runErr
}

// useRawTerminal switches terminal-bound output to CRLF line endings while
// the keyboard holds the terminal in raw mode.
func useRawTerminal(screen *display.Text, log *logrus.Logger, tracePath string) {
	screen.SetRaw(true)
	if tracePath == "-" {
		log.SetOutput(display.RawWriter{W: os.Stderr})
	}
}

func printStats(w io.Writer, path string, stats core.Stats) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", path)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Issue unit:\n")
	fmt.Fprintf(w, "  Stages executed: %d\n", stats.Issue.Steps)
	fmt.Fprintf(w, "  Lines fetched:   %d\n", stats.Issue.Fetched)
	fmt.Fprintf(w, "  Decoded:         %d\n", stats.Issue.Decoded)
	fmt.Fprintf(w, "  Groups formed:   %d\n", stats.Issue.GroupsFormed)
	fmt.Fprintf(w, "  Groups dropped:  %d\n", stats.Issue.GroupsDropped)
	fmt.Fprintf(w, "  Groups queued:   %d\n", stats.Queued)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Integer unit:\n")
	fmt.Fprintf(w, "  Stages executed: %d\n", stats.Integer.Steps)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Instruction cache:\n")
	fmt.Fprintf(w, "  Accesses: %d\n", stats.ICache.Accesses)
	fmt.Fprintf(w, "  Hits:     %d\n", stats.ICache.Hits)
	fmt.Fprintf(w, "  Misses:   %d\n", stats.ICache.Misses)
}
