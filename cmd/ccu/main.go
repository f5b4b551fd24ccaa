// Command ccu drives a coincidence counting unit over a serial port, or a
// simulated unit with --simulate.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Build variables set by ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stderr)
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describeError(err))
		return 1
	}

	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ccu",
		Short: "Coincidence counting unit control",
		Long: `ccu talks to a coincidence counting unit: it reads counters, configures
the trigger level, DAC, input impedance and channel coincidence masks, runs
rate and coincidence measurements and manages calibration profiles.

Examples:
  # Read the counters of the unit on /dev/ttyACM0
  ccu --port /dev/ttyACM0 counts

  # Measure the rate of channel 1 for 10 seconds on a simulated unit
  ccu --simulate rate 1 10

  # Interactive shell
  ccu --port /dev/ttyACM0 shell`,
		Version:       fmt.Sprintf("%s (commit %s)", buildVersion, buildCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.port, "port", "p", "", "Serial port of the unit")
	flags.IntVar(&a.opts.baud, "baud", 0, "Baud rate (default 115200)")
	flags.BoolVar(&a.opts.simulate, "simulate", false, "Use a simulated unit instead of a serial port")
	flags.DurationVar(&a.opts.settle, "settle", defaultSettle, "Delay between a command and its reply")
	flags.StringVar(&a.opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&a.opts.consoleLog, "console-log", false, "Human-readable coloured log output")
	flags.StringVar(&a.opts.profiles, "profiles", "", "Calibration profile directory (default <user config dir>/ccu/profiles)")

	addCommands(root, a)
	root.AddCommand(shellCmd(a))

	return root
}

// addCommands registers every command that also runs inside the shell.
func addCommands(root *cobra.Command, a *app) {
	root.AddCommand(
		versionCmd(),
		infoCmd(a),
		settingsCmd(a),
		helpDeviceCmd(a),
		countsCmd(a),
		clearCmd(a),
		triggerCmd(a),
		dacCmd(a),
		impedanceCmd(a),
		channelCmd(a),
		repeatCmd(a),
		repeatToggleCmd(a),
		watchCmd(a),
		ledsCmd(a),
		rateCmd(a),
		coincidenceCmd(a),
		calibCmd(a),
	)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ccu %s (commit %s)\n", buildVersion, buildCommit)
		},
	}
}
