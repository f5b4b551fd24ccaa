package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-ccu/calib"
	"github.com/arloliu/go-ccu/validate"
)

func calibCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calib",
		Short: "Manage calibration profiles",
	}
	cmd.AddCommand(
		calibFitCmd(a),
		calibHardwareCmd(a),
		calibListCmd(a),
		calibShowCmd(a),
		calibDeleteCmd(a),
		calibExportCmd(a),
		calibImportCmd(a),
		calibApplyCmd(a),
	)

	return cmd
}

// parsePoints parses "raw:actual" reference points.
func parsePoints(specs []string) ([]calib.Point, error) {
	points := make([]calib.Point, 0, len(specs))
	for _, s := range specs {
		rawStr, actualStr, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("%w: point %q, want raw:actual", validate.ErrInvalidValue, s)
		}
		raw, err := strconv.ParseFloat(strings.TrimSpace(rawStr), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point %q, raw is not a number", validate.ErrInvalidValue, s)
		}
		actual, err := strconv.ParseFloat(strings.TrimSpace(actualStr), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point %q, actual is not a number", validate.ErrInvalidValue, s)
		}
		points = append(points, calib.Point{Raw: raw, Actual: actual})
	}

	return points, nil
}

func calibFitCmd(a *app) *cobra.Command {
	var (
		channel     int
		pointSpecs  []string
		twoPoint    bool
		description string
	)

	cmd := &cobra.Command{
		Use:   "fit <profile>",
		Short: "Fit the calibration of one channel and store it in a profile",
		Long: `Fit gain and offset of a channel from reference points given as raw:actual,
and store the result in the named profile, creating it when needed.

Examples:
  ccu calib fit lab1 --channel 0 --two-point --points 100:110,200:210
  ccu calib fit lab1 --channel 2 --points 0:1,10:21,20:40.5,30:61`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := validate.Channel(channel); err != nil {
				return err
			}
			points, err := parsePoints(pointSpecs)
			if err != nil {
				return err
			}

			var coef calib.Coefficients
			if twoPoint {
				if len(points) != 2 {
					return fmt.Errorf("%w: --two-point needs exactly 2 points, got %d", validate.ErrInvalidValue, len(points))
				}
				coef, err = calib.TwoPoint(points[0], points[1])
			} else {
				coef, err = calib.MultiPoint(points)
			}
			if err != nil {
				return err
			}

			store, err := a.profiles()
			if err != nil {
				return err
			}
			p, err := loadOrNew(cmd, store, args[0])
			if err != nil {
				return err
			}
			p = p.WithChannel(channel, coef)
			if description != "" {
				p.Description = description
			}
			if err := store.Save(ctx, p); err != nil {
				return err
			}

			stats := calib.CalculateError(points, coef)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s channel %d: %s\n", p.Name, channel, coef)
			fmt.Fprintf(out, "error: mean %.6g, std %.6g, max %.6g\n", stats.Mean, stats.Std, stats.Max)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&channel, "channel", "c", 0, "Channel to calibrate")
	flags.StringSliceVar(&pointSpecs, "points", nil, "Reference points as raw:actual")
	flags.BoolVar(&twoPoint, "two-point", false, "Use the exact line through two points")
	flags.StringVar(&description, "description", "", "Profile description")
	_ = cmd.MarkFlagRequired("points")

	return cmd
}

func loadOrNew(cmd *cobra.Command, store calib.Store, name string) (*calib.Profile, error) {
	p, err := store.Load(cmd.Context(), name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, calib.ErrProfileNotFound) {
		return nil, err
	}

	return calib.NewProfile(name)
}

func calibHardwareCmd(a *app) *cobra.Command {
	var (
		trigger   float64
		dac       float64
		impedance string
		threshold uint32
	)

	cmd := &cobra.Command{
		Use:   "hardware <profile>",
		Short: "Store front-end settings in a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.profiles()
			if err != nil {
				return err
			}
			p, err := loadOrNew(cmd, store, args[0])
			if err != nil {
				return err
			}

			var hw calib.Hardware
			if p.Hardware != nil {
				hw = *p.Hardware
			}
			if cmd.Flags().Changed("trigger") {
				hw.TriggerLevel = &trigger
			}
			if cmd.Flags().Changed("dac") {
				hw.DacVoltage = &dac
			}
			if cmd.Flags().Changed("threshold") {
				hw.Threshold = &threshold
			}
			if impedance != "" {
				mode, err := validate.ImpedanceMode(impedance)
				if err != nil {
					return err
				}
				hw.Impedance = mode
			}

			p = p.WithHardware(hw)
			if err := store.Save(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s hardware updated\n", p.Name)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&trigger, "trigger", 0, "Trigger level in volts")
	flags.Float64Var(&dac, "dac", 0, "DAC voltage in volts")
	flags.StringVar(&impedance, "impedance", "", "Input impedance, 50 or highz")
	flags.Uint32Var(&threshold, "threshold", 0, "Background threshold in raw counts")

	return cmd
}

func calibListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.profiles()
			if err != nil {
				return err
			}
			names, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}

func calibShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile>",
		Short: "Print a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.profiles()
			if err != nil {
				return err
			}
			p, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := calib.Export(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}

func calibDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.profiles()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", args[0])

			return nil
		},
	}
}

func calibExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <profile>",
		Short: "Write a profile as a YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.profiles()
			if err != nil {
				return err
			}
			p, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := calib.Export(p)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func calibImportCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a profile read from a YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := calib.Import(data)
			if err != nil {
				return err
			}
			if name != "" {
				if err := calib.ValidateName(name); err != nil {
					return err
				}
				p.Name = name
			}

			store, err := a.profiles()
			if err != nil {
				return err
			}
			if err := store.Save(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s imported\n", p.Name)

			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Store under this name instead of the document's")

	return cmd
}

func calibApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <profile>",
		Short: "Apply the front-end settings of a profile to the unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.profiles()
			if err != nil {
				return err
			}
			p, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if p.Hardware == nil {
				return fmt.Errorf("%s has no hardware settings", p.Name)
			}
			dev, err := a.device(ctx)
			if err != nil {
				return err
			}
			if err := dev.ApplyHardware(ctx, *p.Hardware); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s applied\n", p.Name)

			return nil
		},
	}
}
