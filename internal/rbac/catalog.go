package rbac

import (
	"fmt"
	"strings"
)

// Action is a coarse capability category evaluated per module.
type Action string

const (
	ActionView   Action = "view"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// ParseAction normalizes a configured action name. Empty input means
// "derive from the HTTP method" and is reported via ok=false.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.TrimSpace(strings.ToLower(raw))) {
	case ActionView:
		return ActionView, true
	case ActionWrite:
		return ActionWrite, true
	case ActionDelete:
		return ActionDelete, true
	default:
		return "", false
	}
}

// ActionForMethod maps an HTTP verb onto the action it implies.
// GET/HEAD/OPTIONS read, DELETE deletes, everything else writes.
func ActionForMethod(method string) Action {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return ActionView
	case "DELETE":
		return ActionDelete
	default:
		return ActionWrite
	}
}

// Module is a functional area grouping related permissions. The three
// slug sets name every permission required for the corresponding
// action; an empty set means the action does not exist for the module.
type Module struct {
	Key         string
	Label       string
	Description string
	Icon        string

	View   []string
	Write  []string
	Delete []string
}

// Required returns the slug set the module demands for an action.
func (m Module) Required(action Action) []string {
	switch action {
	case ActionView:
		return m.View
	case ActionWrite:
		return m.Write
	case ActionDelete:
		return m.Delete
	default:
		return nil
	}
}

// Definition carries display metadata for one permission slug. It is
// never consulted for access decisions.
type Definition struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Module      string `json:"module"`
	Description string `json:"description"`
}

// Catalog is the process-wide module registry. It is built once at
// startup and read-only afterwards, so concurrent reads need no
// synchronization.
type Catalog struct {
	modules []Module
	index   map[string]int
	defs    map[string]Definition
}

// NewCatalog validates and freezes a module list plus slug metadata.
func NewCatalog(modules []Module, defs []Definition) (*Catalog, error) {
	c := &Catalog{
		modules: make([]Module, len(modules)),
		index:   make(map[string]int, len(modules)),
		defs:    make(map[string]Definition, len(defs)),
	}
	copy(c.modules, modules)
	for i, m := range c.modules {
		key := strings.TrimSpace(m.Key)
		if key == "" {
			return nil, fmt.Errorf("rbac: module %d has an empty key", i)
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("rbac: duplicate module key %q", key)
		}
		c.index[key] = i
	}
	for _, d := range defs {
		if strings.TrimSpace(d.Slug) == "" {
			return nil, fmt.Errorf("rbac: permission definition without slug (module %q)", d.Module)
		}
		if _, dup := c.defs[d.Slug]; dup {
			return nil, fmt.Errorf("rbac: duplicate permission slug %q", d.Slug)
		}
		c.defs[d.Slug] = d
	}
	return c, nil
}

// Modules returns all modules in definition order.
func (c *Catalog) Modules() []Module {
	out := make([]Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Lookup finds a module by key. A missing key indicates a route wired
// to a module absent from configuration; callers treat that as a
// configuration error, not a user-facing condition.
func (c *Catalog) Lookup(key string) (Module, bool) {
	i, ok := c.index[key]
	if !ok {
		return Module{}, false
	}
	return c.modules[i], true
}

// Definitions returns display metadata for every known slug, ordered by
// the module definition order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.defs))
	emitted := make(map[string]struct{}, len(c.defs))
	for _, m := range c.modules {
		for _, slug := range m.allSlugs() {
			if _, done := emitted[slug]; done {
				continue
			}
			if d, ok := c.defs[slug]; ok {
				out = append(out, d)
				emitted[slug] = struct{}{}
			}
		}
	}
	return out
}

func (m Module) allSlugs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range [][]string{m.View, m.Write, m.Delete} {
		for _, slug := range set {
			if _, ok := seen[slug]; ok {
				continue
			}
			seen[slug] = struct{}{}
			out = append(out, slug)
		}
	}
	return out
}
