// Package config reads and writes the YAML run configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/gap"
	"github.com/mchmarny/semscore/pkg/score"
	"gopkg.in/yaml.v3"
)

const (
	FileName     = "config.yaml"
	DataFileName = "data.db"
	CacheDirName = "cache"
	dirMode      = 0700
	fileMode     = 0600
)

// Config is the run configuration. Zero-valued sections fall back to defaults.
type Config struct {
	Scoring Scoring `yaml:"scoring"`
	Gap     Gap     `yaml:"gap"`
	Groups  Groups  `yaml:"groups"`
	Workers int     `yaml:"workers"`
	Store   Store   `yaml:"store"`
	Cache   string  `yaml:"cache_dir"`
}

type Scoring struct {
	Alpha float64 `yaml:"alpha"`
	Rho   float64 `yaml:"rho"`
	Delta float64 `yaml:"delta"`
}

type Gap struct {
	TopN int `yaml:"top_n"`
}

type Groups struct {
	Fitting         int   `yaml:"fitting"`
	Alien           int   `yaml:"alien"`
	MinSize         int   `yaml:"min_size"`
	Pairs           int   `yaml:"pairs"`
	ExcludedParents []int `yaml:"excluded_parents"`
}

type Store struct {
	DSN string `yaml:"dsn"`
}

// Default returns the configuration with every default filled in, rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Scoring: Scoring{
			Alpha: score.DefaultParams().Alpha,
			Rho:   score.DefaultParams().Rho,
			Delta: score.DeltaDefault,
		},
		Gap: Gap{TopN: gap.TopNDefault},
		Groups: Groups{
			Fitting:         domain.FittingDefault,
			Alien:           domain.AlienDefault,
			MinSize:         domain.MinSizeDefault,
			Pairs:           domain.PairsDefault,
			ExcludedParents: append([]int{}, domain.ExcludedParentsDefault...),
		},
		Workers: runtime.NumCPU(),
		Store:   Store{DSN: filepath.Join(dir, DataFileName)},
		Cache:   filepath.Join(dir, CacheDirName),
	}
}

// Params returns the combiner parameters.
func (c *Config) Params() score.Params {
	return score.Params{Alpha: c.Scoring.Alpha, Rho: c.Scoring.Rho}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.Scoring.Delta) || math.IsInf(c.Scoring.Delta, 0) {
		return fmt.Errorf("scoring.delta must be finite, got %g", c.Scoring.Delta)
	}
	if c.Gap.TopN < 1 {
		return fmt.Errorf("gap.top_n must be at least 1, got %d", c.Gap.TopN)
	}
	if c.Groups.Fitting < 2 {
		return fmt.Errorf("groups.fitting must be at least 2, got %d", c.Groups.Fitting)
	}
	if c.Groups.Alien < 1 {
		return fmt.Errorf("groups.alien must be at least 1, got %d", c.Groups.Alien)
	}
	if c.Groups.MinSize < 1 || c.Groups.Pairs < 1 {
		return errors.New("groups.min_size and groups.pairs must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return errors.New("store.dsn required")
	}
	return nil
}

// Save writes c as config.yaml in dir.
func Save(dir string, c *Config) error {
	if dir == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// Load reads a config file over the defaults rooted at the file's directory.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	c := Default(filepath.Dir(path))
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return c, nil
}

// ReadOrCreate reads config.yaml from dir, writing the defaults first when
// the file does not exist.
func ReadOrCreate(dir string) (*Config, error) {
	if dir == "" {
		return nil, errors.New("config directory required")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dir, Default(dir)); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
	}
	return Load(path)
}

// GetOrCreateHomeDir returns $HOME/.<name>, creating it when missing.
// The created flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}
	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("getting user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("creating dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
