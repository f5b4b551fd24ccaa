package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-ccu/calib"
	"github.com/arloliu/go-ccu/ccu"
	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/validate"
)

type deviceFunc func(ctx context.Context, dev *ccu.Device, out io.Writer, args []string) error

// withDevice adapts fn into a cobra RunE that connects the device first.
func withDevice(a *app, fn deviceFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dev, err := a.device(ctx)
		if err != nil {
			return err
		}

		return fn(ctx, dev, cmd.OutOrStdout(), args)
	}
}

func parseFloatArg(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", validate.ErrInvalidValue, name, s)
	}

	return v, nil
}

func parseIntArg(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", validate.ErrInvalidValue, name, s)
	}

	return v, nil
}

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the firmware version of the unit",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			v, err := dev.GetVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)

			return nil
		}),
	}
}

func helpDeviceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "help-device",
		Short: "Print the command help of the unit firmware",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			h, err := dev.GetHelp(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, h)

			return nil
		}),
	}
}

func settingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the current settings of the unit",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			s, err := dev.GetSettings(ctx)
			if err != nil {
				return err
			}
			printSettings(out, s)

			return nil
		}),
	}
}

func printSettings(out io.Writer, s reply.Settings) {
	trig, _ := calib.ByteToVoltage(int(s.TriggerCode))
	dac, _ := calib.ByteToVoltage(int(s.DacCode))

	fmt.Fprintf(out, "trigger level:   %.2f V (code %d)\n", trig, s.TriggerCode)
	fmt.Fprintf(out, "dac voltage:     %.2f V (code %d)\n", dac, s.DacCode)
	fmt.Fprintf(out, "impedance:       %s\n", s.Impedance)
	fmt.Fprintf(out, "repeat interval: %s\n", s.RepeatInterval)
	fmt.Fprintf(out, "repeat mode:     %s\n", onOff(s.RepeatEnabled))
	for ch, m := range s.Channels {
		fmt.Fprintf(out, "channel %d:       %s\n", ch, m)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}

func countsCmd(a *app) *cobra.Command {
	var text bool
	var profile string

	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Read the counters",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			if text {
				s, err := dev.GetCountsText(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)

				return nil
			}

			p, err := a.profile(ctx, profile)
			if err != nil {
				return err
			}
			snap, err := dev.GetCounts(ctx)
			if err != nil {
				return err
			}
			printCounts(out, snap, p)

			return nil
		}),
	}
	cmd.Flags().BoolVar(&text, "text", false, "Print the human-readable report of the unit")
	cmd.Flags().StringVar(&profile, "profile", "", "Calibration profile applied to the counts")

	return cmd
}

// printCounts prints snap, calibrated by p when p is not nil.
func printCounts(out io.Writer, snap reply.CountSnapshot, p *calib.Profile) {
	values := calib.ApplySnapshot(snap, p)
	for ch := 0; ch < reply.NumChannels; ch++ {
		line := fmt.Sprintf("ch%d: %d", ch, snap.Count(ch))
		if p != nil {
			line += fmt.Sprintf(" (calibrated %.6g)", values[ch])
			if p.BelowThreshold(snap.Count(ch)) {
				line += " background"
			}
		}
		if snap.Overflowed(ch) {
			line += " overflow"
		}
		fmt.Fprintln(out, line)
	}
}

func clearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset all counters to zero",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			if err := dev.ClearCounts(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "counters cleared")

			return nil
		}),
	}
}

func voltageCmd(a *app, use, short, name string, set func(*ccu.Device, context.Context, float64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <volts>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, args []string) error {
			v, err := parseFloatArg(name, args[0])
			if err != nil {
				return err
			}
			if err := validate.Voltage(v); err != nil {
				return err
			}
			if err := set(dev, ctx, v); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s set to %.2f V (code %d)\n", name, v, calib.VoltageToByte(v))

			return nil
		}),
	}
}

func triggerCmd(a *app) *cobra.Command {
	return voltageCmd(a, "trigger", "Set the discriminator trigger level (0-4.08 V)", "trigger level", (*ccu.Device).SetTriggerLevel)
}

func dacCmd(a *app) *cobra.Command {
	return voltageCmd(a, "dac", "Set the auxiliary DAC output (0-4.08 V)", "dac voltage", (*ccu.Device).SetDacVoltage)
}

func impedanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "impedance 50|highz",
		Short:     "Set the input termination",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{validate.Impedance50Ohm, validate.ImpedanceHighZ},
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, args []string) error {
			mode, err := validate.ImpedanceMode(args[0])
			if err != nil {
				return err
			}
			z := reply.ImpedanceHighZ
			if mode == validate.Impedance50Ohm {
				z = reply.Impedance50Ohm
			}
			if err := dev.SetImpedance(ctx, z); err != nil {
				return err
			}
			fmt.Fprintf(out, "impedance set to %s\n", z)

			return nil
		}),
	}
}

func channelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "channel <ch> <inputs>",
		Short: "Set the inputs a channel counts coincidences of, e.g. \"channel 4 A+B\"",
		Args:  cobra.ExactArgs(2),
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, args []string) error {
			ch, err := parseIntArg("channel", args[0])
			if err != nil {
				return err
			}
			if err := validate.Channel(ch); err != nil {
				return err
			}
			mask, err := reply.ParseInputMask(args[1])
			if err != nil {
				return fmt.Errorf("%w: %w", validate.ErrInvalidValue, err)
			}
			if err := dev.SetChannel(ctx, ch, mask); err != nil {
				return err
			}
			fmt.Fprintf(out, "channel %d counts %s\n", ch, mask)

			return nil
		}),
	}
}

func repeatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repeat <ms>",
		Short: "Set the repeat-mode report interval in milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, args []string) error {
			ms, err := parseIntArg("interval", args[0])
			if err != nil {
				return err
			}
			if err := validate.RepeatInterval(ms); err != nil {
				return err
			}
			if err := dev.SetRepeat(ctx, ms); err != nil {
				return err
			}
			fmt.Fprintf(out, "repeat interval set to %d ms\n", ms)

			return nil
		}),
	}
}

func repeatToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repeat-toggle",
		Short: "Toggle repeat mode",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			on, err := dev.ToggleRepeat(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "repeat mode %s\n", onOff(on))

			return nil
		}),
	}
}

func watchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream counter reports in repeat mode until interrupted",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			n := 0
			err := dev.StreamCounts(ctx, func(snap reply.CountSnapshot) bool {
				n++
				fmt.Fprintf(out, "%s %s\n", snap.Time.Format("15:04:05.000"), snap)

				return limit <= 0 || n < limit
			})
			if ctx.Err() != nil {
				// interrupted by the user
				return nil
			}

			return err
		}),
	}
	cmd.Flags().IntVarP(&limit, "count", "n", 0, "Stop after this many reports (0 = until interrupted)")

	return cmd
}

func ledsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leds",
		Short: "Run the LED self test",
		Args:  cobra.NoArgs,
		RunE: withDevice(a, func(ctx context.Context, dev *ccu.Device, out io.Writer, _ []string) error {
			if err := dev.TestLeds(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "LED test done")

			return nil
		}),
	}
}
