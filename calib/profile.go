package calib

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"time"

	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/validate"
)

// ProfileVersion is the current version of the profile document format.
const ProfileVersion = 1

// MaxProfileNameLength bounds profile names.
const MaxProfileNameLength = 64

var profileNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ErrInvalidProfile indicates a profile that fails validation.
var ErrInvalidProfile = errors.New("calib: invalid profile")

// Hardware holds the front-end settings stored with a profile. Nil fields are
// left untouched when the profile is applied to a device.
type Hardware struct {
	// TriggerLevel is the discriminator threshold in volts.
	TriggerLevel *float64 `yaml:"trigger_level,omitempty" json:"trigger_level,omitempty"`
	// DacVoltage is the auxiliary DAC output in volts.
	DacVoltage *float64 `yaml:"dac_voltage,omitempty" json:"dac_voltage,omitempty"`
	// Impedance is "50" or "highz".
	Impedance string `yaml:"impedance,omitempty" json:"impedance,omitempty"`
	// Threshold is the raw count at or below which a reading is background.
	// It is not sent to the unit. One value serves all channels and is
	// bounded by the 24-bit counters, so on the 16-bit channel 7 a threshold
	// of 65535 or more marks every reading as background.
	Threshold *uint32 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// Profile is a named set of per-channel calibrations.
//
// A Profile is treated as immutable once stored: WithChannel and
// WithHardware return modified copies.
type Profile struct {
	Version     int                  `yaml:"version" json:"version"`
	Name        string               `yaml:"name" json:"name"`
	Description string               `yaml:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time            `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `yaml:"updated_at" json:"updated_at"`
	Channels    map[int]Coefficients `yaml:"channels,omitempty" json:"channels,omitempty"`
	Hardware    *Hardware            `yaml:"hardware,omitempty" json:"hardware,omitempty"`
}

var _ Lookup = (*Profile)(nil)

// NewProfile creates an empty profile named name.
func NewProfile(name string) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	return &Profile{Version: ProfileVersion, Name: name, Channels: map[int]Coefficients{}}, nil
}

// ValidateName checks a profile name: 1-64 characters of [A-Za-z0-9_.-].
func ValidateName(name string) error {
	if name == "" || len(name) > MaxProfileNameLength || !profileNameRe.MatchString(name) {
		return fmt.Errorf("%w: name %q must be 1-%d characters of [A-Za-z0-9_.-]", ErrInvalidProfile, name, MaxProfileNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: name %q is reserved", ErrInvalidProfile, name)
	}

	return nil
}

// Gain returns the gain of channel ch, 1 when unset. Safe on a nil profile.
func (p *Profile) Gain(ch int) float64 {
	if p == nil {
		return 1
	}
	if c, ok := p.Channels[ch]; ok {
		return c.Gain
	}

	return 1
}

// Offset returns the offset of channel ch, 0 when unset. Safe on a nil profile.
func (p *Profile) Offset(ch int) float64 {
	if p == nil {
		return 0
	}
	if c, ok := p.Channels[ch]; ok {
		return c.Offset
	}

	return 0
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	cp := *p
	cp.Channels = maps.Clone(p.Channels)
	if cp.Channels == nil {
		cp.Channels = map[int]Coefficients{}
	}
	if p.Hardware != nil {
		hw := *p.Hardware
		if hw.TriggerLevel != nil {
			v := *hw.TriggerLevel
			hw.TriggerLevel = &v
		}
		if hw.DacVoltage != nil {
			v := *hw.DacVoltage
			hw.DacVoltage = &v
		}
		if hw.Threshold != nil {
			v := *hw.Threshold
			hw.Threshold = &v
		}
		cp.Hardware = &hw
	}

	return &cp
}

// BelowThreshold reports whether raw is at or below the background threshold
// of the hardware block. Without a threshold nothing is below it. raw is not
// checked against the counter width of its channel.
func (p *Profile) BelowThreshold(raw uint32) bool {
	if p == nil || p.Hardware == nil || p.Hardware.Threshold == nil {
		return false
	}

	return raw <= *p.Hardware.Threshold
}

// WithChannel returns a copy of p with channel ch set to c. A nil p yields
// an unnamed profile holding only that channel.
func (p *Profile) WithChannel(ch int, c Coefficients) *Profile {
	cp := p.cloneOrEmpty()
	cp.Channels[ch] = c

	return cp
}

// WithHardware returns a copy of p with hw as its hardware block. A nil p
// yields an unnamed profile holding only hw.
func (p *Profile) WithHardware(hw Hardware) *Profile {
	cp := p.cloneOrEmpty()
	cp.Hardware = &hw

	return cp
}

func (p *Profile) cloneOrEmpty() *Profile {
	if p == nil {
		return &Profile{Version: ProfileVersion, Channels: map[int]Coefficients{}}
	}

	return p.Clone()
}

// Validate checks the name, channel indexes, coefficients and hardware block.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidProfile)
	}
	if err := ValidateName(p.Name); err != nil {
		return err
	}

	for ch, c := range p.Channels {
		if ch < 0 || ch >= reply.NumChannels {
			return fmt.Errorf("%w: channel %d out of range [0, %d]", ErrInvalidProfile, ch, reply.NumChannels-1)
		}
		if !isFinite(c.Gain) || !isFinite(c.Offset) {
			return fmt.Errorf("%w: channel %d has non-finite coefficients (%s)", ErrInvalidProfile, ch, c)
		}
	}

	if hw := p.Hardware; hw != nil {
		if hw.TriggerLevel != nil {
			if err := validate.Voltage(*hw.TriggerLevel); err != nil {
				return fmt.Errorf("%w: trigger level: %w", ErrInvalidProfile, err)
			}
		}
		if hw.DacVoltage != nil {
			if err := validate.Voltage(*hw.DacVoltage); err != nil {
				return fmt.Errorf("%w: dac voltage: %w", ErrInvalidProfile, err)
			}
		}
		if hw.Impedance != "" {
			if _, err := validate.ImpedanceMode(hw.Impedance); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
			}
		}
		// The threshold is shared by all channels, so the widest counter
		// bounds it.
		if hw.Threshold != nil && *hw.Threshold > reply.MaxCount24 {
			return fmt.Errorf("%w: threshold %d above counter limit %d", ErrInvalidProfile, *hw.Threshold, reply.MaxCount24)
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
