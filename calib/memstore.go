package calib

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore is an in-memory Store, safe for concurrent use.
type MemoryStore struct {
	profiles *xsync.MapOf[string, *Profile]
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: xsync.NewMapOf[string, *Profile](),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	cp := p.Clone()
	cp.Version = ProfileVersion
	cp.UpdatedAt = s.now()

	s.profiles.Compute(cp.Name, func(old *Profile, loaded bool) (*Profile, bool) {
		switch {
		case loaded && !old.CreatedAt.IsZero():
			cp.CreatedAt = old.CreatedAt
		case cp.CreatedAt.IsZero():
			cp.CreatedAt = cp.UpdatedAt
		}

		return cp, false
	})

	return nil
}

func (s *MemoryStore) Load(ctx context.Context, name string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, ok := s.profiles.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	return p.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, s.profiles.Size())
	s.profiles.Range(func(name string, _ *Profile) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names, nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, ok := s.profiles.LoadAndDelete(name); !ok {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	return nil
}
