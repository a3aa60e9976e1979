// Package executor runs one plan stage's script: it resolves which
// interpreter to invoke, remaps build variables into dockyard-visible
// paths, delivers the script by tempfile or stdin, and writes the
// per-stage log file the builder surfaces on failure.
package executor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/werr"
)

// Delivery is how a script body reaches the interpreter process.
type Delivery string

const (
	DeliveryTempfile Delivery = "tempfile"
	DeliveryStdin    Delivery = "stdin"
)

// Definition is one named executor: an interpreter command plus the
// conventions for handing it a script.
type Definition struct {
	Name              string
	Description       string
	Command           string
	Args              []string
	Delivery          Delivery
	TempfileExtension string
	RequiredPaths     []string
	DefaultDockyard   string
}

// DefaultShell is the built-in "shell" executor every registry starts with.
func DefaultShell() Definition {
	return Definition{
		Name:              "shell",
		Description:       "Bash shell executor",
		Command:           "/bin/bash",
		Args:              []string{"-e", "-o", "pipefail"},
		Delivery:          DeliveryTempfile,
		TempfileExtension: ".sh",
		DefaultDockyard:   "strict",
	}
}

// Registry holds every loaded executor definition, keyed by name.
type Registry struct {
	executors map[string]Definition
}

// NewRegistry returns a registry pre-seeded with the built-in shell executor.
func NewRegistry() *Registry {
	r := &Registry{executors: make(map[string]Definition)}
	shell := DefaultShell()
	r.executors[shell.Name] = shell
	return r
}

// Get looks up a named executor.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.executors[name]
	return d, ok
}

// Register installs or overwrites a single executor definition.
func (r *Registry) Register(d Definition) {
	r.executors[d.Name] = d
}

// LoadDir reads every *.toml file in dir as an `[executor]`-wrapped
// definition and registers it, overwriting any built-in of the same
// name. A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return werr.New(werr.KindValidation, "failed to read executors directory", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return werr.New(werr.KindValidation, "failed to read executor file "+path, err)
		}
		def, err := parseDefinition(data)
		if err != nil {
			return werr.New(werr.KindValidation, "failed to parse executor file "+path, err)
		}
		r.Register(def)
	}
	return nil
}

type executorWrapper struct {
	Executor rawDefinition `toml:"executor"`
}

type rawDefinition struct {
	Name              string   `toml:"name"`
	Description       string   `toml:"description"`
	Command           string   `toml:"command"`
	Args              []string `toml:"args"`
	Delivery          string   `toml:"delivery"`
	TempfileExtension string   `toml:"tempfile_extension"`
	RequiredPaths     []string `toml:"required_paths"`
	DefaultDockyard   string   `toml:"default_dockyard"`
}

func parseDefinition(data []byte) (Definition, error) {
	var w executorWrapper
	if err := toml.Unmarshal(data, &w); err != nil {
		return Definition{}, err
	}
	if w.Executor.Name == "" {
		return Definition{}, werr.New(werr.KindValidation, "executor definition missing [executor] name", nil)
	}
	delivery := Delivery(w.Executor.Delivery)
	if delivery == "" {
		delivery = DeliveryTempfile
	}
	ext := w.Executor.TempfileExtension
	if ext == "" {
		ext = ".sh"
	}
	return Definition{
		Name:              w.Executor.Name,
		Description:       w.Executor.Description,
		Command:           w.Executor.Command,
		Args:              w.Executor.Args,
		Delivery:          delivery,
		TempfileExtension: ext,
		RequiredPaths:     w.Executor.RequiredPaths,
		DefaultDockyard:   w.Executor.DefaultDockyard,
	}, nil
}
