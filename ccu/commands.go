package ccu

import (
	"context"
	"fmt"

	"github.com/arloliu/go-ccu/calib"
	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/validate"
	"github.com/arloliu/go-ccu/wire"
)

// GetVersion returns the firmware version string.
func (d *Device) GetVersion(ctx context.Context) (string, error) {
	line, err := d.exchange(ctx, wire.CmdVersion)
	if err != nil {
		return "", err
	}

	return reply.ParseVersion(line), nil
}

// GetHelp returns the help text of the unit.
func (d *Device) GetHelp(ctx context.Context) (string, error) {
	line, err := d.exchange(ctx, wire.CmdHelp)
	if err != nil {
		return "", err
	}

	return reply.ParseHelp(line), nil
}

// GetSettings returns the decoded settings record.
func (d *Device) GetSettings(ctx context.Context) (reply.Settings, error) {
	line, err := d.exchange(ctx, wire.CmdSettings)
	if err != nil {
		return reply.Settings{}, err
	}

	s, err := reply.ParseSettings(line)
	if err != nil {
		return reply.Settings{}, d.malformed(wire.CmdSettings, line, err)
	}

	return s, nil
}

// TestLeds runs the LED self test.
func (d *Device) TestLeds(ctx context.Context) error {
	return d.command(ctx, ledTestAck, wire.CmdTestLeds)
}

// GetCounts reads a numeric snapshot of all counters, stamped with the time
// the reply arrived.
func (d *Device) GetCounts(ctx context.Context) (reply.CountSnapshot, error) {
	line, err := d.exchange(ctx, wire.CmdCounts)
	if err != nil {
		return reply.CountSnapshot{}, err
	}

	snap, err := reply.ParseCounts(line)
	if err != nil {
		return reply.CountSnapshot{}, d.malformed(wire.CmdCounts, line, err)
	}

	return snap.WithTime(d.cfg.clk.Now()), nil
}

// GetCountsText reads the human-readable count report.
func (d *Device) GetCountsText(ctx context.Context) (string, error) {
	line, err := d.exchange(ctx, wire.CmdCountsText)
	if err != nil {
		return "", err
	}

	return reply.ParseText(line), nil
}

// Counts reads either the numeric snapshot or, when humanReadable is set, the
// text report. Exactly one of the two results is filled.
func (d *Device) Counts(ctx context.Context, humanReadable bool) (reply.CountSnapshot, string, error) {
	if humanReadable {
		text, err := d.GetCountsText(ctx)
		return reply.CountSnapshot{}, text, err
	}

	snap, err := d.GetCounts(ctx)

	return snap, "", err
}

// ClearCounts resets all counters. It fails with ErrUnexpectedAck when the
// confirmation does not match the configured acknowledgement; the session is
// kept in that case.
func (d *Device) ClearCounts(ctx context.Context) error {
	line, err := d.exchange(ctx, wire.CmdClear)
	if err != nil {
		return err
	}

	if err := reply.ParseAck(line, d.cfg.clearAck); err != nil {
		d.metrics.incCommandErrCount()
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedAck, line, d.cfg.clearAck)
	}

	return nil
}

// SetTriggerLevel sets the discriminator threshold. volts is expected to be
// validated already; values outside [0, 4.08] are clamped.
func (d *Device) SetTriggerLevel(ctx context.Context, volts float64) error {
	return d.command(ctx, d.cfg.setAck, wire.CmdTrigger, int(calib.VoltageToByte(volts)))
}

// SetDacVoltage sets the auxiliary DAC output. volts is expected to be
// validated already; values outside [0, 4.08] are clamped.
func (d *Device) SetDacVoltage(ctx context.Context, volts float64) error {
	return d.command(ctx, d.cfg.setAck, wire.CmdDac, int(calib.VoltageToByte(volts)))
}

// SetImpedance50Ohm terminates the inputs with 50 Ohm.
func (d *Device) SetImpedance50Ohm(ctx context.Context) error {
	return d.command(ctx, d.cfg.setAck, wire.CmdImpedance50)
}

// SetImpedanceHighZ switches the inputs to high impedance.
func (d *Device) SetImpedanceHighZ(ctx context.Context) error {
	return d.command(ctx, d.cfg.setAck, wire.CmdImpedanceHighZ)
}

// SetImpedance selects the input termination.
func (d *Device) SetImpedance(ctx context.Context, z reply.Impedance) error {
	switch z {
	case reply.Impedance50Ohm:
		return d.SetImpedance50Ohm(ctx)
	case reply.ImpedanceHighZ:
		return d.SetImpedanceHighZ(ctx)
	}

	return fmt.Errorf("%w: %s", validate.ErrInvalidValue, z)
}

// SetChannel makes channel ch count coincidences of the inputs in mask.
func (d *Device) SetChannel(ctx context.Context, ch int, mask reply.InputMask) error {
	bits := mask.Bits()
	return d.command(ctx, d.cfg.setAck, wire.CmdChannel, ch, bits[0], bits[1], bits[2], bits[3])
}

// SetRepeat sets the interval of periodic pushes in milliseconds.
func (d *Device) SetRepeat(ctx context.Context, ms int) error {
	return d.command(ctx, d.cfg.setAck, wire.CmdRepeat, ms)
}

// ApplyHardware applies the hardware block of a calibration profile. All
// values are validated before the first command is sent; the commands then
// run in the order trigger level, DAC voltage, impedance.
func (d *Device) ApplyHardware(ctx context.Context, hw calib.Hardware) error {
	var imp string
	if hw.TriggerLevel != nil {
		if err := validate.Voltage(*hw.TriggerLevel); err != nil {
			return err
		}
	}
	if hw.DacVoltage != nil {
		if err := validate.Voltage(*hw.DacVoltage); err != nil {
			return err
		}
	}
	if hw.Impedance != "" {
		mode, err := validate.ImpedanceMode(hw.Impedance)
		if err != nil {
			return err
		}
		imp = mode
	}

	if hw.TriggerLevel != nil {
		if err := d.SetTriggerLevel(ctx, *hw.TriggerLevel); err != nil {
			return err
		}
	}
	if hw.DacVoltage != nil {
		if err := d.SetDacVoltage(ctx, *hw.DacVoltage); err != nil {
			return err
		}
	}

	switch imp {
	case validate.Impedance50Ohm:
		return d.SetImpedance50Ohm(ctx)
	case validate.ImpedanceHighZ:
		return d.SetImpedanceHighZ(ctx)
	}

	return nil
}

// command runs a command whose reply carries no data but must start with
// ack. A refusal such as "ERR range" fails with ErrUnexpectedAck and keeps
// the session open.
func (d *Device) command(ctx context.Context, ack string, cmd wire.Command, args ...int) error {
	line, err := d.exchange(ctx, cmd, args...)
	if err != nil {
		return err
	}

	if err := reply.ParseAck(line, ack); err != nil {
		d.metrics.incCommandErrCount()
		d.logger.Warn("ccu: command refused", "cmd", cmd.String(), "reply", line)

		return fmt.Errorf("%w: %s: got %q, want %q", ErrUnexpectedAck, cmd, line, ack)
	}
	d.logger.Debug("ccu: command done", "cmd", cmd.String(), "reply", line)

	return nil
}
