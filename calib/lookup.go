package calib

import (
	"github.com/arloliu/go-ccu/reply"
)

// Lookup yields the calibration of a channel. Unset channels return the
// identity gain 1 and offset 0.
type Lookup interface {
	Gain(ch int) float64
	Offset(ch int) float64
}

type identityLookup struct{}

func (identityLookup) Gain(int) float64   { return 1 }
func (identityLookup) Offset(int) float64 { return 0 }

// IdentityLookup returns a Lookup with no calibration.
func IdentityLookup() Lookup { return identityLookup{} }

// For returns the coefficients of channel ch from l. A nil l yields Identity.
func For(l Lookup, ch int) Coefficients {
	if l == nil {
		return Identity()
	}

	return Coefficients{Gain: l.Gain(ch), Offset: l.Offset(ch)}
}

// ApplySnapshot calibrates every channel of snap.
func ApplySnapshot(snap reply.CountSnapshot, l Lookup) [reply.NumChannels]float64 {
	var out [reply.NumChannels]float64
	for ch, raw := range snap.Counts {
		out[ch] = For(l, ch).Apply(float64(raw))
	}

	return out
}
