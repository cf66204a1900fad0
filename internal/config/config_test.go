package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/BarrensZeppelin/alias/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Parallelism)
	assert.True(t, cfg.OnlyMemory)
	assert.True(t, cfg.Color)
	assert.NoError(t, cfg.Validate())
}

func TestDecode(t *testing.T) {
	t.Run("Full", func(t *testing.T) {
		cfg, err := config.Decode([]byte(`
packages: [./..., example.com/x]
exclude:
  - example.com/x/internal
functions: [main]
parallelism: 3
onlyMemory: false
color: false
tests: true
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"./...", "example.com/x"}, cfg.Packages)
		assert.Equal(t, []string{"example.com/x/internal"}, cfg.Exclude)
		assert.Equal(t, []string{"main"}, cfg.Functions)
		assert.Equal(t, 3, cfg.Parallelism)
		assert.False(t, cfg.OnlyMemory)
		assert.False(t, cfg.Color)
		assert.True(t, cfg.Tests)
	})

	t.Run("KeepsDefaults", func(t *testing.T) {
		cfg, err := config.Decode([]byte("packages: [a]\n"))
		require.NoError(t, err)
		assert.True(t, cfg.OnlyMemory)
		assert.Equal(t, config.Default().Parallelism, cfg.Parallelism)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := config.Decode([]byte("pakages: [a]\n"))
		assert.Error(t, err)
	})

	t.Run("BadParallelism", func(t *testing.T) {
		_, err := config.Decode([]byte("parallelism: 0\n"))
		assert.ErrorContains(t, err, "parallelism")
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliascheck.yml")
	require.NoError(t, os.WriteFile(path, []byte("packages: [fmt]\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fmt"}, cfg.Packages)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExcluded(t *testing.T) {
	cfg := config.Config{Exclude: []string{"example.com/x", "example.com/y/..."}}

	assert.True(t, cfg.Excluded("example.com/x"))
	assert.True(t, cfg.Excluded("example.com/x/sub"))
	assert.True(t, cfg.Excluded("example.com/y/sub"))
	assert.False(t, cfg.Excluded("example.com/xy"))
	assert.False(t, cfg.Excluded("example.com/z"))
}

func TestSelected(t *testing.T) {
	assert.True(t, config.Config{}.Selected("main.f", "f"))

	cfg := config.Config{Functions: []string{"f", "(*main.T).m"}}
	assert.True(t, cfg.Selected("main.f", "f"))
	assert.True(t, cfg.Selected("(*main.T).m", "m"))
	assert.False(t, cfg.Selected("main.g", "g"))
}

func TestMerge(t *testing.T) {
	base := config.Config{
		Packages:    []string{"a"},
		Exclude:     []string{"x"},
		Parallelism: 2,
		OnlyMemory:  true,
		Color:       true,
	}

	assert.Equal(t, base, base.Merge(config.Overrides{}))

	no := false
	merged := base.Merge(config.Overrides{
		Packages:    []string{"b"},
		Exclude:     []string{"y"},
		Parallelism: 8,
		Dir:         "/src",
		OnlyMemory:  &no,
		Color:       &no,
	})
	assert.Equal(t, []string{"b"}, merged.Packages)
	assert.Equal(t, []string{"x", "y"}, merged.Exclude)
	assert.Equal(t, 8, merged.Parallelism)
	assert.Equal(t, "/src", merged.Dir)
	assert.False(t, merged.OnlyMemory)
	assert.False(t, merged.Color)
	assert.Equal(t, []string{"x"}, base.Exclude, "merging does not modify the receiver")
}
