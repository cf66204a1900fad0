// Package config holds the settings of the aliascheck command, read from a
// YAML file and overridden from the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BarrensZeppelin/alias/internal/slices"
	"gopkg.in/yaml.v2"
)

var ErrNoPackages = errors.New("no packages to analyze")

type Config struct {
	// Packages are the package queries handed to go/packages.
	Packages []string `yaml:"packages"`

	// Exclude lists package paths whose functions are skipped. A path
	// also excludes the packages below it.
	Exclude []string `yaml:"exclude"`

	// Functions restricts the analysis to the named functions, given
	// either by their full SSA name or by their plain name.
	Functions []string `yaml:"functions"`

	Dir         string `yaml:"dir"`
	Tests       bool   `yaml:"tests"`
	Parallelism int    `yaml:"parallelism"`

	// OnlyMemory reports memory access pairs only. Otherwise every pair of
	// reference values is reported too.
	OnlyMemory bool `yaml:"onlyMemory"`
	Color      bool `yaml:"color"`
}

func Default() Config {
	return Config{
		Parallelism: runtime.GOMAXPROCS(0),
		OnlyMemory:  true,
		Color:       true,
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Decode(data)
}

// Decode parses YAML settings on top of the defaults. Unknown keys are
// rejected.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be positive, got %d", c.Parallelism)
	}
	return nil
}

// Excluded reports whether functions of the package with the given path
// are skipped.
func (c Config) Excluded(pkgPath string) bool {
	for _, ex := range c.Exclude {
		ex = strings.TrimSuffix(strings.TrimSuffix(ex, "/..."), "/")
		if pkgPath == ex || strings.HasPrefix(pkgPath, ex+"/") {
			return true
		}
	}
	return false
}

// Selected reports whether a function is analyzed.
func (c Config) Selected(fullName, name string) bool {
	if len(c.Functions) == 0 {
		return true
	}
	return slices.Contains(c.Functions, fullName) || slices.Contains(c.Functions, name)
}

// Overrides are settings given on the command line. Empty fields keep the
// configured value.
type Overrides struct {
	Packages    []string
	Exclude     []string
	Functions   []string
	Dir         string
	Parallelism int

	Tests      *bool
	OnlyMemory *bool
	Color      *bool
}

// Merge applies the overrides. Exclusions are added to the configured
// ones, skipping duplicates. Every other setting is replaced.
func (c Config) Merge(o Overrides) Config {
	if len(o.Packages) > 0 {
		c.Packages = o.Packages
	}
	if len(o.Exclude) > 0 {
		c.Exclude = slices.AppendUnique(append([]string(nil), c.Exclude...), o.Exclude...)
	}
	if len(o.Functions) > 0 {
		c.Functions = o.Functions
	}
	if o.Dir != "" {
		c.Dir = o.Dir
	}
	if o.Parallelism > 0 {
		c.Parallelism = o.Parallelism
	}
	if o.Tests != nil {
		c.Tests = *o.Tests
	}
	if o.OnlyMemory != nil {
		c.OnlyMemory = *o.OnlyMemory
	}
	if o.Color != nil {
		c.Color = *o.Color
	}
	return c
}
