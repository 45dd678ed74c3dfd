package customs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirProvider discovers overrides from a configured directory holding
// `query/` and `mutation/` subdirectories of yaml descriptors. Each
// descriptor binds a field name to a resolver registered in the Registry:
//
//	name: topUsers        # optional; file base name when absent
//	resolver: top-users   # registry key, required
//	entity: User          # output element type for the wrapped field
//
// Discovery failures — an unreadable directory or a malformed descriptor —
// are configuration errors surfaced at schema-build time.
type DirProvider struct {
	Dir      string
	Registry *Registry
}

type descriptor struct {
	Name     string `yaml:"name"`
	Resolver string `yaml:"resolver"`
	Entity   string `yaml:"entity"`
}

func (p DirProvider) ListResolvers(kind Kind) ([]Named, error) {
	if p.Dir == "" {
		return nil, nil
	}
	dir := filepath.Join(p.Dir, string(kind))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("customs: read %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	out := make([]Named, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		named, err := p.loadDescriptor(path)
		if err != nil {
			return nil, err
		}
		out = append(out, named)
	}
	return out, nil
}

func (p DirProvider) loadDescriptor(path string) (Named, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Named{}, fmt.Errorf("customs: read %s: %w", path, err)
	}
	var desc descriptor
	if err := yaml.Unmarshal(raw, &desc); err != nil {
		return Named{}, fmt.Errorf("customs: parse %s: %w", path, err)
	}
	if desc.Resolver == "" {
		return Named{}, fmt.Errorf("customs: %s: resolver is required", path)
	}
	if p.Registry == nil {
		return Named{}, fmt.Errorf("customs: %s: no registry configured for resolver %q", path, desc.Resolver)
	}
	fn, ok := p.Registry.Lookup(desc.Resolver)
	if !ok {
		return Named{}, fmt.Errorf("customs: %s: resolver %q is not registered", path, desc.Resolver)
	}

	name := desc.Name
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return Named{Name: name, Resolver: fn, Entity: desc.Entity}, nil
}
