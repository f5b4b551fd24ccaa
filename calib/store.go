package calib

import (
	"context"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound indicates that no profile has the requested name.
var ErrProfileNotFound = errors.New("calib: profile not found")

// Store persists calibration profiles.
//
// Implementations copy profiles on Save and Load, so callers never share a
// profile with the store.
type Store interface {
	// Save validates and stores p under p.Name, replacing any previous
	// profile of that name. UpdatedAt is set to the save time and CreatedAt
	// is kept from the previous version, or set when new.
	Save(ctx context.Context, p *Profile) error
	// Load returns the profile named name or ErrProfileNotFound.
	Load(ctx context.Context, name string) (*Profile, error)
	// List returns the stored profile names in ascending order.
	List(ctx context.Context) ([]string, error)
	// Delete removes the profile named name or returns ErrProfileNotFound.
	Delete(ctx context.Context, name string) error
}

// Export encodes p as a YAML document.
func Export(p *Profile) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return yaml.Marshal(p)
}

// Import decodes and validates a YAML profile document.
func Import(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Join(ErrInvalidProfile, err)
	}
	if p.Version == 0 {
		p.Version = ProfileVersion
	}
	if p.Channels == nil {
		p.Channels = map[int]Coefficients{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}
