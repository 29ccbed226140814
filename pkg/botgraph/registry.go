package botgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
	"github.com/randalmurphal/botgraph/pkg/botgraph/registry"
	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
)

type entry struct {
	node   Node
	parent string
}

// Registry owns every node by name and records the forest's shape.
//
// Registration happens during wiring, before the engine runs. During a run
// the registry is read by the dispatch goroutine only.
type Registry struct {
	mu     sync.Mutex // serialises Register
	nodes  *registry.Registry[string, entry]
	roots  *registry.Registry[string, struct{}]
	store  state.Store
	logger *slog.Logger
}

// NewRegistry creates an empty registry. store is handed to node load and
// exit hooks; nil means an in-memory store.
func NewRegistry(store state.Store, logger *slog.Logger) *Registry {
	if store == nil {
		store = state.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		nodes:  registry.New[string, entry](),
		roots:  registry.New[string, struct{}](),
		store:  store,
		logger: logger,
	}
}

// Register adds n under name. An empty parent makes n a root.
//
// Registration is all-or-nothing: the name, the node and the parent are
// validated, then n's OnLoad hook runs, and only if everything succeeded is
// n linked under its parent and inserted. Any failure returns a
// *ConfigError and leaves the registry unchanged.
func (r *Registry) Register(name, parent string, n Node) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var link Parent
	if err := r.validate(name, parent, n, &link); err != nil {
		return "", &ConfigError{Node: name, Op: "validate", Err: err}
	}

	if l, ok := n.(Loader); ok {
		if err := l.OnLoad(name, r.store); err != nil {
			return "", &ConfigError{Node: name, Op: "load", Err: err}
		}
	}

	if !r.nodes.Insert(name, entry{node: n, parent: parent}) {
		return "", &ConfigError{Node: name, Op: "validate", Err: fmt.Errorf("%w: %s", ErrDuplicateNode, name)}
	}
	if link != nil {
		link.RegisterChild(name)
	} else {
		r.roots.Insert(name, struct{}{})
	}

	r.logger.Debug("node registered",
		slog.String("node", name),
		slog.String("parent", parent),
	)
	return name, nil
}

func (r *Registry) validate(name, parent string, n Node, link *Parent) error {
	if name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if n == nil {
		return ErrNilNode
	}
	if r.nodes.Has(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	if parent == "" {
		return nil
	}
	pe, ok := r.nodes.Get(parent)
	if !ok {
		return fmt.Errorf("%w: %s", ErrParentNotFound, parent)
	}
	p, ok := pe.node.(Parent)
	if !ok {
		return fmt.Errorf("%w: %s (%T)", ErrNotParent, parent, pe.node)
	}
	*link = p
	return nil
}

// Lookup returns the node registered under name.
func (r *Registry) Lookup(name string) (Node, bool) {
	e, ok := r.nodes.Get(name)
	return e.node, ok
}

// ParentOf returns the parent of name. ok is false for unknown names;
// roots return "" and true.
func (r *Registry) ParentOf(name string) (parent string, ok bool) {
	e, ok := r.nodes.Get(name)
	return e.parent, ok
}

// Children returns the declared children of name, or nil for leaves and
// unknown names.
func (r *Registry) Children(name string) []string {
	n, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	if p, ok := n.(Parent); ok {
		return p.Children()
	}
	return nil
}

// RootNames returns root names in registration order.
func (r *Registry) RootNames() []string {
	return r.roots.Keys()
}

// AllNames returns every registered name in registration order.
func (r *Registry) AllNames() []string {
	return r.nodes.Keys()
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return r.nodes.Len()
}

// Store returns the state store handed to load and exit hooks.
func (r *Registry) Store() state.Store {
	return r.store
}

// ExitAll runs every OnExit hook. Failures and panics are logged and
// joined; every node gets its turn regardless.
func (r *Registry) ExitAll() error {
	var errs []error
	r.nodes.Range(func(name string, e entry) bool {
		x, ok := e.node.(Exiter)
		if !ok {
			return true
		}
		err := protect(name, "exit", func() error { return x.OnExit(name, r.store) })
		if err != nil {
			observability.LogStateError(r.logger, name, "exit", err)
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// walk visits the forest depth-first in dispatch order, calling fn with
// each reachable name and its depth. Unknown children are skipped.
func (r *Registry) walk(fn func(name string, depth int)) {
	seen := make(map[string]bool)
	var visit func(name string, depth int)
	visit = func(name string, depth int) {
		if seen[name] || !r.nodes.Has(name) {
			return
		}
		seen[name] = true
		fn(name, depth)
		for _, c := range r.Children(name) {
			visit(c, depth+1)
		}
	}
	for _, root := range r.RootNames() {
		visit(root, 0)
	}
}

// Reachable returns every name reachable from a root, in dispatch order.
func (r *Registry) Reachable() []string {
	var out []string
	r.walk(func(name string, _ int) { out = append(out, name) })
	return out
}

// Unreachable returns registered names no root can reach, in registration order.
func (r *Registry) Unreachable() []string {
	reach := r.Reachable()
	var out []string
	for _, name := range r.AllNames() {
		if !slices.Contains(reach, name) {
			out = append(out, name)
		}
	}
	return out
}
