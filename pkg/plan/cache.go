package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/werr"
)

// Cache is an in-memory, reloadable index of plans found under a hold
// tree: one `<name>/plan.toml` file per main package.
type Cache struct {
	holdDir   string
	plans     map[string]*Plan
	assembly  map[string][]string
}

// Load scans holdDir for `<name>/plan.toml` files and parses each one,
// then loads any `assemblies/*.toml` files sitting alongside it.
func Load(holdDir string) (*Cache, error) {
	c := &Cache{holdDir: holdDir, plans: map[string]*Plan{}, assembly: map[string][]string{}}
	entries, err := os.ReadDir(holdDir)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to read hold tree", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		planPath := filepath.Join(holdDir, e.Name(), "plan.toml")
		data, err := os.ReadFile(planPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, werr.New(werr.KindValidation, "failed to read plan file", err).WithPackage(e.Name())
		}
		p, err := Parse(data, filepath.Join(holdDir, e.Name()))
		if err != nil {
			return nil, err
		}
		if p.Name != e.Name() {
			return nil, werr.New(werr.KindValidation,
				fmt.Sprintf("plan directory %q does not match plan name %q", e.Name(), p.Name), nil)
		}
		c.plans[p.Name] = p
	}

	assembliesDir := filepath.Join(holdDir, "assemblies")
	if entries, err := os.ReadDir(assembliesDir); err == nil {
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(assembliesDir, e.Name()))
			if err != nil {
				return nil, werr.New(werr.KindValidation, "failed to read assembly file", err)
			}
			var doc map[string][]string
			if err := toml.Unmarshal(data, &doc); err != nil {
				return nil, werr.New(werr.KindValidation, "failed to parse assembly file", err)
			}
			for name, members := range doc {
				c.assembly[name] = members
			}
		}
	}

	return c, nil
}

// Lookup returns the plan named name, or false if no such plan exists.
func (c *Cache) Lookup(name string) (*Plan, bool) {
	p, ok := c.plans[name]
	return p, ok
}

// All returns every loaded plan, sorted by name for deterministic
// iteration (construction-plan printing must be stable run to run).
func (c *Cache) All() []*Plan {
	names := make([]string, 0, len(c.plans))
	for name := range c.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Plan, 0, len(names))
	for _, name := range names {
		out = append(out, c.plans[name])
	}
	return out
}

// ExpandAssembly resolves `@name` to its member plan names. A target
// with no leading `@` is returned unchanged as the sole member.
func (c *Cache) ExpandAssembly(target string) []string {
	if len(target) == 0 || target[0] != '@' {
		return []string{target}
	}
	members, ok := c.assembly[target[1:]]
	if !ok {
		return nil
	}
	return members
}

// FindOwnerOfProvide returns the plan that declares name in its
// `provides` list, if any.
func (c *Cache) FindOwnerOfProvide(name string) (*Plan, bool) {
	for _, p := range c.All() {
		for _, provided := range p.Dependencies.Provides {
			if provided == name {
				return p, true
			}
		}
	}
	return nil, false
}
