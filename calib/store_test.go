package calib

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ccu/reply"
)

func ptr[T any](v T) *T { return &v }

func newTestProfile(t *testing.T, name string) *Profile {
	t.Helper()

	p, err := NewProfile(name)
	require.NoError(t, err)

	return p.
		WithChannel(0, Coefficients{Gain: 1.02, Offset: -3}).
		WithChannel(7, Coefficients{Gain: 0.98, Offset: 0.5}).
		WithHardware(Hardware{TriggerLevel: ptr(1.2), Impedance: "50"})
}

// testStore runs the Store contract against s.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = s.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.ErrorIs(t, s.Delete(ctx, "missing"), ErrProfileNotFound)

	p := newTestProfile(t, "lab-a")
	require.NoError(t, s.Save(ctx, p))
	require.NoError(t, s.Save(ctx, newTestProfile(t, "bench_1")))

	got, err := s.Load(ctx, "lab-a")
	require.NoError(t, err)
	assert.Equal(t, "lab-a", got.Name)
	assert.Equal(t, ProfileVersion, got.Version)
	assert.InDelta(t, 1.02, got.Gain(0), 1e-12)
	assert.InDelta(t, -3.0, got.Offset(0), 1e-12)
	assert.InDelta(t, 1.0, got.Gain(3), 0)
	assert.InDelta(t, 0.0, got.Offset(3), 0)
	require.NotNil(t, got.Hardware)
	assert.InDelta(t, 1.2, *got.Hardware.TriggerLevel, 1e-12)
	assert.False(t, got.CreatedAt.IsZero())
	created := got.CreatedAt

	// the store keeps its own copy
	got.Channels[0] = Coefficients{Gain: 9}
	again, err := s.Load(ctx, "lab-a")
	require.NoError(t, err)
	assert.InDelta(t, 1.02, again.Gain(0), 1e-12)

	// re-saving keeps CreatedAt
	require.NoError(t, s.Save(ctx, again.WithChannel(2, Coefficients{Gain: 2})))
	again, err = s.Load(ctx, "lab-a")
	require.NoError(t, err)
	assert.True(t, created.Equal(again.CreatedAt))
	assert.InDelta(t, 2.0, again.Gain(2), 0)

	names, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bench_1", "lab-a"}, names)

	require.NoError(t, s.Delete(ctx, "lab-a"))
	_, err = s.Load(ctx, "lab-a")
	require.ErrorIs(t, err, ErrProfileNotFound)

	bad := &Profile{Name: "bad/name"}
	require.ErrorIs(t, s.Save(ctx, bad), ErrInvalidProfile)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, s.Save(canceled, newTestProfile(t, "late")), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	testStore(t, NewFileStore(filepath.Join(t.TempDir(), "profiles")))
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newTestProfile(t, "keep")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)
	assert.Equal(t, dir, s.Dir())
}

func TestFileStore_CorruptProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("channels: [1, 2"), 0o644))

	_, err := NewFileStore(dir).Load(context.Background(), "broken")
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestMemoryStore_ConcurrentSave(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := newTestProfile(t, "shared")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := base.WithChannel(1, Coefficients{Gain: float64(i), Offset: float64(i)})
			assert.NoError(t, s.Save(ctx, p))
		}(i)
	}
	wg.Wait()

	// gain and offset always come from the same save
	p, err := s.Load(ctx, "shared")
	require.NoError(t, err)
	assert.InDelta(t, p.Gain(1), p.Offset(1), 0)
}

func TestExportImport(t *testing.T) {
	p := newTestProfile(t, "export-me")
	p.Description = "bench calibration"
	p.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	data, err := Export(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: export-me")
	assert.Contains(t, string(data), "trigger_level: 1.2")

	got, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Description, got.Description)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, p.Channels, got.Channels)
	assert.Equal(t, "50", got.Hardware.Impedance)
}

func TestImport_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "name: [",
		"missing name":    "channels: {0: {gain: 1, offset: 0}}",
		"channel range":   "name: x\nchannels: {8: {gain: 1, offset: 0}}",
		"trigger voltage": "name: x\nhardware: {trigger_level: 5}",
		"impedance":       "name: x\nhardware: {impedance: \"75\"}",
		"threshold":       "name: x\nhardware: {threshold: 16777216}",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Import([]byte(doc))
			require.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"a", "lab-1", "run_2024.05", "X"} {
		require.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", "..", "a/b", "with space", strings.Repeat("a", 65)} {
		require.ErrorIs(t, ValidateName(name), ErrInvalidProfile, name)
	}
}

func TestProfile_NilSafe(t *testing.T) {
	var p *Profile
	assert.InDelta(t, 1.0, p.Gain(0), 0)
	assert.InDelta(t, 0.0, p.Offset(0), 0)
	assert.Nil(t, p.Clone())
	assert.False(t, p.BelowThreshold(0))
	require.ErrorIs(t, p.Validate(), ErrInvalidProfile)

	withCh := p.WithChannel(3, Coefficients{Gain: 2, Offset: 1})
	require.NotNil(t, withCh)
	assert.Equal(t, ProfileVersion, withCh.Version)
	assert.InDelta(t, 2.0, withCh.Gain(3), 0)
	assert.Nil(t, withCh.Hardware)

	withHw := p.WithHardware(Hardware{Threshold: ptr(uint32(7))})
	require.NotNil(t, withHw)
	assert.Empty(t, withHw.Channels)
	assert.True(t, withHw.BelowThreshold(7))
}

func TestProfile_Threshold(t *testing.T) {
	p := newTestProfile(t, "bg")
	assert.False(t, p.BelowThreshold(0))

	p = p.WithHardware(Hardware{Threshold: ptr(uint32(20))})
	assert.True(t, p.BelowThreshold(0))
	assert.True(t, p.BelowThreshold(20))
	assert.False(t, p.BelowThreshold(21))

	cp := p.Clone()
	*cp.Hardware.Threshold = 5
	assert.Equal(t, uint32(20), *p.Hardware.Threshold)

	data, err := Export(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "threshold: 20")
}

func TestProfile_ThresholdLimit(t *testing.T) {
	p := newTestProfile(t, "bg").WithHardware(Hardware{Threshold: ptr(uint32(reply.MaxCount24))})
	require.NoError(t, p.Validate())

	// Channel 7 saturates at 16 bits, so every reading there is background.
	assert.True(t, p.BelowThreshold(reply.MaxCount16))

	p = p.WithHardware(Hardware{Threshold: ptr(uint32(reply.MaxCount24 + 1))})
	require.ErrorIs(t, p.Validate(), ErrInvalidProfile)
}
