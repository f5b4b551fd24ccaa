package calib

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const profileExt = ".yaml"

// FileStore keeps one YAML document per profile in a directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+profileExt)
}

func (s *FileStore) Save(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("calib: create store directory: %w", err)
	}

	cp := p.Clone()
	cp.Version = ProfileVersion
	cp.UpdatedAt = s.now()
	if prev, err := s.read(cp.Name); err == nil && !prev.CreatedAt.IsZero() {
		cp.CreatedAt = prev.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}

	data, err := yaml.Marshal(cp)
	if err != nil {
		return fmt.Errorf("calib: encode profile %q: %w", cp.Name, err)
	}

	// write to a temporary file first so a crash never leaves a torn profile
	tmp, err := os.CreateTemp(s.dir, "."+cp.Name+".*")
	if err != nil {
		return fmt.Errorf("calib: save profile %q: %w", cp.Name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("calib: save profile %q: %w", cp.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("calib: save profile %q: %w", cp.Name, err)
	}

	if err := os.Rename(tmpName, s.path(cp.Name)); err != nil {
		return fmt.Errorf("calib: save profile %q: %w", cp.Name, err)
	}

	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(name)
}

func (s *FileStore) read(name string) (*Profile, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("calib: load profile %q: %w", name, err)
	}

	p, err := Import(data)
	if err != nil {
		return nil, fmt.Errorf("calib: load profile %q: %w", name, err)
	}

	return p, nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("calib: list profiles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), profileExt)
		if e.IsDir() || !ok || ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	return err
}
