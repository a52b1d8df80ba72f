package streams

import (
	"fmt"
	"strings"
	"sync"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/hashicorp/go-multierror"
)

// Registry is the read-only table of stream definitions, built once at startup
type Registry struct {
	roots  []*types.StreamDefinition
	order  []string
	byName map[string]*types.StreamDefinition
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry over the static stream table
func Default() *Registry {
	defaultOnce.Do(func() {
		registry, err := New(Definitions()...)
		if err != nil {
			panic(fmt.Sprintf("invalid static stream table: %s", err))
		}
		defaultRegistry = registry
	})

	return defaultRegistry
}

// New builds a registry: nested children get their parent assigned, defaults are
// applied, parent references are resolved by name and every definition is validated.
// Duplicate names are accepted and the later definition wins.
func New(defs ...*types.StreamDefinition) (*Registry, error) {
	registry := &Registry{
		roots:  cloneAll(defs),
		byName: make(map[string]*types.StreamDefinition),
	}

	var register func(def *types.StreamDefinition, parent *types.StreamDefinition)
	register = func(def *types.StreamDefinition, parent *types.StreamDefinition) {
		if parent != nil && def.Parent == "" {
			def.Parent = parent.Name
		}
		applyDefaults(def)

		if _, exists := registry.byName[def.Name]; exists {
			logger.Warnf("stream[%s] defined more than once; the last definition wins", def.Name)
		} else {
			registry.order = append(registry.order, def.Name)
		}
		registry.byName[def.Name] = def

		for _, child := range def.Children {
			register(child, def)
		}
	}
	for _, def := range registry.roots {
		register(def, nil)
	}

	if err := registry.validate(); err != nil {
		return nil, err
	}

	return registry, nil
}

func applyDefaults(def *types.StreamDefinition) {
	if def.KeyProperties == nil {
		def.KeyProperties = []string{}
	}
	if def.BookmarkType == "" {
		def.BookmarkType = types.DatetimeBookmark
	}
	if def.DataKey == "" {
		def.DataKey = def.Name
	}
	if def.Path == "" {
		def.Path = "/" + def.Name
	} else if !strings.HasPrefix(def.Path, "/") {
		def.Path = "/" + def.Path
	}
}

func (r *Registry) validate() error {
	var result error
	for _, name := range r.order {
		def := r.byName[name]
		if def.Name == "" {
			result = multierror.Append(result, fmt.Errorf("stream with data key[%s] has no name", def.DataKey))
			continue
		}
		if err := def.ReplicationMethod.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stream[%s]: %s", name, err))
		}
		if err := def.BookmarkType.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stream[%s]: %s", name, err))
		}
		if def.ReplicationMethod == types.FullTable && len(def.ReplicationKeys) > 0 {
			result = multierror.Append(result, fmt.Errorf("stream[%s]: %s stream must not define replication keys %v", name, types.FullTable, def.ReplicationKeys))
		}
		if def.ReplicationMethod == types.Incremental && len(def.ReplicationKeys) == 0 && len(def.KeyProperties) < 2 {
			logger.Warnf("stream[%s] is %s without replication keys; it syncs without an advancing bookmark", name, types.Incremental)
		}
		if def.Parent == "" {
			continue
		}

		parent, found := r.byName[def.Parent]
		if !found {
			result = multierror.Append(result, fmt.Errorf("stream[%s]: dangling parent reference[%s]", name, def.Parent))
			continue
		}
		if def.ParentKey == "" {
			if len(parent.KeyProperties) == 0 {
				result = multierror.Append(result, fmt.Errorf("stream[%s]: parent[%s] has no key properties and no parent_key is set", name, parent.Name))
			} else {
				def.ParentKey = parent.KeyProperties[0]
			}
		}
		if err := r.checkCycle(def); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

func (r *Registry) checkCycle(def *types.StreamDefinition) error {
	seen := map[string]bool{def.Name: true}
	for current := def; current.Parent != ""; {
		parent, found := r.byName[current.Parent]
		if !found {
			return nil // reported as dangling
		}
		if seen[parent.Name] {
			return fmt.Errorf("stream[%s]: parent cycle through[%s]", def.Name, parent.Name)
		}
		seen[parent.Name] = true
		current = parent
	}
	return nil
}

// Get fails with UnknownStreamError when name is not defined
func (r *Registry) Get(name string) (*types.StreamDefinition, error) {
	def, found := r.byName[name]
	if !found {
		return nil, &types.UnknownStreamError{Name: name}
	}
	return def, nil
}

// Names lists stream names in declaration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Children returns the streams whose parent is name
func (r *Registry) Children(name string) []*types.StreamDefinition {
	children := []*types.StreamDefinition{}
	for _, n := range r.order {
		if def := r.byName[n]; def.Parent == name {
			children = append(children, def)
		}
	}
	return children
}

// Parents maps every child stream to its parent's name
func (r *Registry) Parents() map[string]string {
	parents := map[string]string{}
	for _, n := range r.order {
		if def := r.byName[n]; def.Parent != "" {
			parents[n] = def.Parent
		}
	}
	return parents
}

// Flatten emits every top-level stream and every child under it at the same
// flat level. On a name collision the definition written last wins.
func (r *Registry) Flatten() map[string]types.FlatStream {
	flat := make(map[string]types.FlatStream)

	var emit func(def *types.StreamDefinition)
	emit = func(def *types.StreamDefinition) {
		flat[def.Name] = def.Flat()
		for _, child := range def.Children {
			emit(child)
		}
	}
	for _, def := range r.roots {
		emit(def)
	}

	return flat
}

// Ordered returns the selected streams (all when none are given) with every
// parent placed before its children; selecting a child pulls in its parents
func (r *Registry) Ordered(selected ...string) ([]*types.StreamDefinition, error) {
	wanted := types.NewSet[string]()
	if len(selected) == 0 {
		wanted.Insert(r.order...)
	}
	for _, name := range selected {
		def, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		for current := def; current != nil; {
			wanted.Insert(current.Name)
			current = r.byName[current.Parent]
		}
	}

	ordered := []*types.StreamDefinition{}
	placed := map[string]bool{}
	var place func(def *types.StreamDefinition)
	place = func(def *types.StreamDefinition) {
		if placed[def.Name] {
			return
		}
		placed[def.Name] = true
		if parent, found := r.byName[def.Parent]; found {
			place(parent)
		}
		ordered = append(ordered, def)
	}
	for _, name := range r.order {
		if wanted.Exists(name) {
			place(r.byName[name])
		}
	}

	return ordered, nil
}

func cloneAll(defs []*types.StreamDefinition) []*types.StreamDefinition {
	cloned := make([]*types.StreamDefinition, 0, len(defs))
	for _, def := range defs {
		cloned = append(cloned, clone(def))
	}
	return cloned
}

func clone(def *types.StreamDefinition) *types.StreamDefinition {
	c := *def
	c.KeyProperties = cloneStrings(def.KeyProperties)
	c.ReplicationKeys = cloneStrings(def.ReplicationKeys)
	if def.Params != nil {
		c.Params = make(map[string]string, len(def.Params))
		for k, v := range def.Params {
			c.Params[k] = v
		}
	}
	c.Children = cloneAll(def.Children)
	return &c
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string{}, values...)
}
