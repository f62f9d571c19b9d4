package rbac

import (
	"sort"
	"strings"
)

// SlugSet is an owned-permission lookup set.
type SlugSet map[string]struct{}

// NewSlugSet builds a set from raw slugs, trimming empties.
func NewSlugSet(slugs []string) SlugSet {
	set := make(SlugSet, len(slugs))
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// Contains reports whether the set owns the slug.
func (s SlugSet) Contains(slug string) bool {
	_, ok := s[slug]
	return ok
}

// ContainsAll reports whether the set owns every given slug. An empty
// required list is vacuously satisfied; callers deciding capabilities
// must check emptiness themselves (see CapabilitiesFor).
func (s SlugSet) ContainsAll(slugs []string) bool {
	for _, slug := range slugs {
		if _, ok := s[slug]; !ok {
			return false
		}
	}
	return true
}

// Capabilities is the per-module view/write/delete triple.
type Capabilities struct {
	View   bool `json:"view"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
}

// CapabilitiesFor derives the capability triple an owned slug set earns
// for one module. A capability holds only when the module's required
// set for that action is non-empty and the owner holds every slug in
// it: an empty required set means the action does not exist for the
// module and can never be satisfied.
func CapabilitiesFor(owned SlugSet, m Module) Capabilities {
	return Capabilities{
		View:   len(m.View) > 0 && owned.ContainsAll(m.View),
		Write:  len(m.Write) > 0 && owned.ContainsAll(m.Write),
		Delete: len(m.Delete) > 0 && owned.ContainsAll(m.Delete),
	}
}

// ModuleSummary pairs a module with the capabilities a slug set earns.
type ModuleSummary struct {
	Key          string       `json:"key"`
	Label        string       `json:"label"`
	Description  string       `json:"description,omitempty"`
	Icon         string       `json:"icon,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Summarize computes the capability triple for every module in catalog
// definition order. Used to render a role's effective access.
func Summarize(c *Catalog, owned SlugSet) []ModuleSummary {
	modules := c.Modules()
	out := make([]ModuleSummary, 0, len(modules))
	for _, m := range modules {
		out = append(out, ModuleSummary{
			Key:          m.Key,
			Label:        m.Label,
			Description:  m.Description,
			Icon:         m.Icon,
			Capabilities: CapabilitiesFor(owned, m),
		})
	}
	return out
}

// MatrixEntry is one row of a UI matrix submission: desired boolean
// capabilities for a module.
type MatrixEntry struct {
	ModuleKey string `json:"module"`
	View      bool   `json:"view"`
	Write     bool   `json:"write"`
	Delete    bool   `json:"delete"`
}

// SlugsFromMatrix computes the permission slugs implied by a matrix
// submission. Per entry the cascade applies first — delete forces
// write and view, then write forces view — and the required set of
// every action still marked true is unioned in. Entries naming unknown
// modules are ignored so partial submissions from older or newer
// clients stay harmless. The result is deduplicated and sorted.
func SlugsFromMatrix(c *Catalog, entries []MatrixEntry) []string {
	set := make(SlugSet)
	for _, e := range entries {
		m, ok := c.Lookup(e.ModuleKey)
		if !ok {
			continue
		}
		if e.Delete {
			e.Write = true
		}
		if e.Write {
			e.View = true
		}
		if e.View {
			for _, slug := range m.View {
				set[slug] = struct{}{}
			}
		}
		if e.Write {
			for _, slug := range m.Write {
				set[slug] = struct{}{}
			}
		}
		if e.Delete {
			for _, slug := range m.Delete {
				set[slug] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for slug := range set {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
