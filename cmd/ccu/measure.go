package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-ccu/calib"
	"github.com/arloliu/go-ccu/measure"
)

// defaultWindow is the coincidence window of the unit, 5 ns.
const defaultWindow = 5e-9

func rateCmd(a *app) *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "rate <ch> <seconds>",
		Short: "Measure the count rate of a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ch, err := parseIntArg("channel", args[0])
			if err != nil {
				return err
			}
			secs, err := parseFloatArg("duration", args[1])
			if err != nil {
				return err
			}
			p, err := a.profile(ctx, profile)
			if err != nil {
				return err
			}
			eng, err := a.engine(ctx)
			if err != nil {
				return err
			}

			m, err := eng.MeasureRate(ctx, ch, secs)
			if err != nil {
				return err
			}
			printRate(cmd.OutOrStdout(), m, p)

			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Calibration profile applied to the result")

	return cmd
}

func printRate(out io.Writer, m measure.RateMeasurement, p *calib.Profile) {
	fmt.Fprintln(out, m)
	if p != nil {
		c := m.Calibrated(p)
		fmt.Fprintf(out, "  calibrated (%s): %.6g counts, %.6g ± %.6g Hz\n", c.Coefficients, c.Counts, c.Rate, c.Uncertainty)
	}
}

func coincidenceCmd(a *app) *cobra.Command {
	opts := measure.CoincidenceOptions{
		Duration:    1,
		SinglesA:    0,
		SinglesB:    1,
		Coincidence: 4,
		Window:      defaultWindow,
	}

	cmd := &cobra.Command{
		Use:   "coincidence",
		Short: "Measure singles, coincidence and accidental rates",
		Long: `Measure the rates of two singles channels and their coincidence channel
over one sampling window, and derive the accidental rate 2*window*Ra*Rb and
the true coincidence rate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eng, err := a.engine(ctx)
			if err != nil {
				return err
			}

			m, err := eng.MeasureCoincidence(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "singles A   %s\n", m.SinglesA)
			fmt.Fprintf(out, "singles B   %s\n", m.SinglesB)
			fmt.Fprintf(out, "coincidence %s\n", m.Coincidence)
			fmt.Fprintf(out, "accidental rate: %.6g Hz (window %g s)\n", m.AccidentalRate, m.Window)
			fmt.Fprintf(out, "true coincidence rate: %.6g Hz\n", m.TrueCoincidenceRate)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.SinglesA, "a", opts.SinglesA, "Singles channel of detector A")
	flags.IntVar(&opts.SinglesB, "b", opts.SinglesB, "Singles channel of detector B")
	flags.IntVar(&opts.Coincidence, "c", opts.Coincidence, "Coincidence channel of A and B")
	flags.Float64VarP(&opts.Duration, "duration", "d", opts.Duration, "Sampling time in seconds")
	flags.Float64VarP(&opts.Window, "window", "w", opts.Window, "Coincidence window in seconds")

	return cmd
}
