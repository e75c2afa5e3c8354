// Package registry maps hub paths to modules and holds the sidebar
// navigation tree. All lookups are pure.
package registry

import (
	"fmt"
	"strings"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/pkg/types"
)

// Module describes an independently deployed module
type Module struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	PathPrefix string `json:"path_prefix" yaml:"path_prefix"`
	URL        string `json:"url" yaml:"url"`
	Icon       string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Section is the top level of the navigation tree
type Section struct {
	ID     string  `json:"id" yaml:"id"`
	Label  string  `json:"label" yaml:"label"`
	Icon   string  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Groups []Group `json:"groups" yaml:"groups"`
}

// Group is the second level of the navigation tree
type Group struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Items []Item `json:"items" yaml:"items"`
}

// Item is a navigable leaf of the navigation tree
type Item struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Path  string `json:"path" yaml:"path"`
}

// ActiveNav identifies the navigation item matching a path
type ActiveNav struct {
	SectionID string
	GroupID   string
	ItemID    string
}

// Found reports whether any item matched
func (a ActiveNav) Found() bool {
	return a.ItemID != ""
}

// Registry is the static module registry plus navigation tree
type Registry struct {
	Modules []Module  `json:"modules" yaml:"modules"`
	Nav     []Section `json:"nav" yaml:"nav"`
}

// Load returns the registry named by cfg: the YAML file when set, the
// built-in registry otherwise, with module URL overrides applied.
func Load(cfg config.RegistryConfig) (*Registry, error) {
	reg := Default()
	if cfg.File != "" {
		loaded, err := LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		reg = loaded
	}
	for id, url := range cfg.ModuleURLs {
		if !reg.SetModuleURL(id, url) {
			return nil, types.NewError(types.ErrCodeNotFound, "url override for unknown module "+id)
		}
	}
	return reg, nil
}

// LoadFile reads a registry from a YAML file
func LoadFile(path string) (*Registry, error) {
	var reg Registry
	if err := config.ReadYAML(path, &reg); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, types.WrapError(types.ErrCodeInvalid, "invalid registry "+path, err)
	}
	return &reg, nil
}

// Validate checks ids are unique and prefixes and paths are absolute
func (r *Registry) Validate() error {
	if len(r.Modules) == 0 {
		return types.NewError(types.ErrCodeInvalid, "registry has no modules")
	}
	seen := make(map[string]bool)
	for _, m := range r.Modules {
		if m.ID == "" {
			return types.NewError(types.ErrCodeInvalid, "module without id")
		}
		if seen[m.ID] {
			return types.NewError(types.ErrCodeDuplicate, "duplicate module id "+m.ID)
		}
		seen[m.ID] = true
		if !strings.HasPrefix(m.PathPrefix, "/") || m.PathPrefix == "/" {
			return types.NewError(types.ErrCodeInvalid, fmt.Sprintf("module %s has invalid path prefix %q", m.ID, m.PathPrefix))
		}
	}

	ids := make(map[string]bool)
	for _, s := range r.Nav {
		for _, g := range s.Groups {
			for _, it := range g.Items {
				if !strings.HasPrefix(it.Path, "/") {
					return types.NewError(types.ErrCodeInvalid, fmt.Sprintf("nav item %s has relative path %q", it.ID, it.Path))
				}
				if ids[it.ID] {
					return types.NewError(types.ErrCodeDuplicate, "duplicate nav item id "+it.ID)
				}
				ids[it.ID] = true
			}
		}
	}
	return nil
}

// SetModuleURL replaces the base URL of a module. It reports whether the module exists.
func (r *Registry) SetModuleURL(id, url string) bool {
	for i := range r.Modules {
		if r.Modules[i].ID == id {
			r.Modules[i].URL = url
			return true
		}
	}
	return false
}

// Module returns the module with the given id
func (r *Registry) Module(id string) (Module, bool) {
	for _, m := range r.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleForPath returns the first module whose prefix owns path. A prefix owns
// the path itself and everything below it on a segment boundary, so
// /employees owns /employees/list but not /employeesx.
func (r *Registry) ModuleForPath(path string) (Module, bool) {
	for _, m := range r.Modules {
		if HasPathPrefix(path, m.PathPrefix) {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleIDForPath returns the id of the module owning path, or ""
func (r *Registry) ModuleIDForPath(path string) string {
	m, ok := r.ModuleForPath(path)
	if !ok {
		return ""
	}
	return m.ID
}

// SubPath returns the module-relative part of a hub path, "/" when the prefix
// consumes the whole path
func (m Module) SubPath(path string) string {
	sub := strings.TrimPrefix(path, m.PathPrefix)
	if sub == "" {
		return "/"
	}
	return sub
}

// ResolveModuleURL maps a hub path to the module URL serving it, for
// example /employees/list/42 to {employees url}/list/42
func (r *Registry) ResolveModuleURL(path string) (string, bool) {
	m, ok := r.ModuleForPath(path)
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(m.URL, "/") + m.SubPath(path), true
}

// ActiveNav returns the first navigation item whose path prefixes path
func (r *Registry) ActiveNav(path string) ActiveNav {
	for _, s := range r.Nav {
		for _, g := range s.Groups {
			for _, it := range g.Items {
				if strings.HasPrefix(path, it.Path) {
					return ActiveNav{SectionID: s.ID, GroupID: g.ID, ItemID: it.ID}
				}
			}
		}
	}
	return ActiveNav{}
}

// DefaultExpandedSections returns the section and group ids that must be
// open for the item active at path
func (r *Registry) DefaultExpandedSections(path string) []string {
	active := r.ActiveNav(path)
	expanded := []string{}
	if active.SectionID != "" {
		expanded = append(expanded, active.SectionID)
	}
	if active.GroupID != "" {
		expanded = append(expanded, active.GroupID)
	}
	return expanded
}

// HasPathPrefix reports whether prefix owns path on a segment boundary
func HasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
