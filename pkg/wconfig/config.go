// Package wconfig loads and validates wright.toml, repos.toml, and the
// executors/assemblies directories, and watches the executors directory
// for hot-reload.
package wconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/werr"
)

// General holds filesystem layout knobs.
type General struct {
	CacheDir      string `toml:"cache_dir" validate:"required"`
	ComponentsDir string `toml:"components_dir" validate:"required"`
	PlansDir      string `toml:"plans_dir" validate:"required"`
	AssembliesDir string `toml:"assemblies_dir"`
	ExecutorsDir  string `toml:"executors_dir"`
	DBPath        string `toml:"db_path" validate:"required"`
}

// Build holds global build defaults, overridable per-plan.
type Build struct {
	BuildDir         string `toml:"build_dir" validate:"required"`
	CFlags           string `toml:"cflags"`
	CXXFlags         string `toml:"cxxflags"`
	Jobs             int    `toml:"jobs"`
	Dockyards        int    `toml:"dockyards"`
	MaxCPUs          int    `toml:"max_cpus"`
	NprocPerDockyard int    `toml:"nproc_per_dockyard"`
}

// Network holds download behavior.
type Network struct {
	DownloadTimeoutSecs int `toml:"download_timeout_secs" validate:"required"`
	RetryCount          int `toml:"retry_count"`
}

// Config is the fully parsed and validated wright.toml.
type Config struct {
	General General `toml:"general" validate:"required"`
	Build   Build   `toml:"build" validate:"required"`
	Network Network `toml:"network"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() { validate = validator.New() })
	return validate
}

// EffectiveJobs returns the global CPU budget per spec §4.10: max_cpus if
// set, else available_cpus - 4 (min 1), using availableCPUs (typically
// runtime.NumCPU()) as the host's view of available cores.
func (c Config) EffectiveJobs(availableCPUs int) int {
	if c.Build.MaxCPUs > 0 {
		return c.Build.MaxCPUs
	}
	n := availableCPUs - 4
	if n < 1 {
		n = 1
	}
	return n
}

// Dockyards returns the worker pool size (build.dockyards, default = budget).
func (c Config) Dockyards(budget int) int {
	if c.Build.Dockyards > 0 {
		return c.Build.Dockyards
	}
	return budget
}

// Parse decodes and validates wright.toml contents.
func Parse(data []byte) (*Config, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, werr.New(werr.KindValidation, "failed to parse wright.toml", err)
	}
	if cfg.Network.DownloadTimeoutSecs == 0 {
		cfg.Network.DownloadTimeoutSecs = 300
	}
	if err := getValidator().Struct(cfg); err != nil {
		return nil, werr.New(werr.KindValidation, "wright.toml failed validation", err)
	}
	for _, dir := range []string{cfg.General.CacheDir, cfg.General.ComponentsDir, cfg.General.PlansDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, werr.New(werr.KindValidation, "failed to create directory "+dir, err)
		}
	}
	return &cfg, nil
}

// Load reads and parses wright.toml from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, werr.New(werr.KindValidation, "failed to read "+path, err)
	}
	return Parse(data)
}

// EffectiveExecutorsDir returns the effective executors directory,
// defaulting to <parent of general.plans_dir>/executors when unset.
func (c Config) EffectiveExecutorsDir() string {
	if c.General.ExecutorsDir != "" {
		return c.General.ExecutorsDir
	}
	return filepath.Join(filepath.Dir(c.General.PlansDir), "executors")
}

// EffectiveAssembliesDir mirrors EffectiveExecutorsDir for assemblies.
func (c Config) EffectiveAssembliesDir() string {
	if c.General.AssembliesDir != "" {
		return c.General.AssembliesDir
	}
	return filepath.Join(c.General.PlansDir, "assemblies")
}
