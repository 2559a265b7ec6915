// Package graph plans the construction of a dependency graph. A plan lists
// every provider needed to satisfy a key in dependency order, after checking
// for missing bindings, cycles, ambiguity and lifetime violations.
package graph

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/junioryono/inject/internal/lifetime"
)

// NodeKey uniquely identifies a binding in the graph.
type NodeKey struct {
	Type       reflect.Type
	Qualifier  string
	Collection bool
}

// Base returns the single-value form of the key.
func (k NodeKey) Base() NodeKey {
	k.Collection = false
	return k
}

// All returns the collection form of the key.
func (k NodeKey) All() NodeKey {
	k.Collection = true
	return k
}

// Named returns a copy of the key with the given qualifier.
func (k NodeKey) Named(qualifier string) NodeKey {
	k.Qualifier = qualifier
	return k
}

// IsZero reports whether the key has no type.
func (k NodeKey) IsZero() bool {
	return k.Type == nil
}

func (k NodeKey) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}

	if k.Collection {
		name = "[]" + name
	}

	if k.Qualifier != "" {
		name = fmt.Sprintf("%s[%s]", name, k.Qualifier)
	}

	return name
}

// Provider is the planner's view of a provider.
type Provider interface {
	Key() NodeKey
	Lifetime() lifetime.Lifetime
	Dependencies() []NodeKey
}

// Node constrains the provider handles a plan can hold.
type Node interface {
	comparable
	Provider
}

// Source answers which providers are bound to a key, in registration order.
type Source[P Node] interface {
	Providers(key NodeKey) []P
}

// Options control planning policy.
type Options struct {
	// Strict turns multiple providers for a single-value key into an error
	// instead of picking the last registered one.
	Strict bool
}

// Plan is an ordered construction recipe. Steps appear after every step they
// depend on.
type Plan[P Node] struct {
	Key   NodeKey
	Root  Arg
	Steps []Step[P]
}

// Step builds one provider.
type Step[P Node] struct {
	Provider P
	Key      NodeKey

	// Source is the index of the source that supplied the provider.
	Source int

	// Reach lists, ascending and without duplicates, the sources of every
	// provider in the step's subgraph, its own included.
	Reach []int

	// Args holds one entry per declared dependency, in declaration order.
	Args []Arg
}

// Arg points at the steps producing a dependency value.
type Arg struct {
	Key        NodeKey
	Steps      []int
	Collection bool
}

// Lookup returns the provider that answers key together with the index of
// the source that supplied it. The first source with any provider for the
// key wins; within it the last registered provider wins.
func Lookup[P Node](key NodeKey, sources []Source[P], opts Options) (p P, source int, err error) {
	providers, source := find(key.Base(), sources)
	if len(providers) == 0 {
		return p, -1, &UnresolvedDependencyError{Key: key, Path: []NodeKey{key}}
	}

	if opts.Strict && len(providers) > 1 {
		return p, source, &AmbiguousProviderError{Key: key, Count: len(providers)}
	}

	return providers[len(providers)-1], source, nil
}

// LookupAll returns every provider bound to key by the first source that has
// any, in registration order.
func LookupAll[P Node](key NodeKey, sources []Source[P]) ([]P, int) {
	return find(key.Base(), sources)
}

func find[P Node](key NodeKey, sources []Source[P]) ([]P, int) {
	for i, src := range sources {
		if src == nil {
			continue
		}
		if providers := src.Providers(key); len(providers) > 0 {
			return providers, i
		}
	}
	return nil, -1
}

// Build plans the construction of key. Planning has no side effects; every
// structural error is reported before anything is built.
func Build[P Node](key NodeKey, sources []Source[P], opts Options) (*Plan[P], error) {
	if key.IsZero() {
		return nil, &UnresolvedDependencyError{Key: key, Path: []NodeKey{key}}
	}

	pl := &planner[P]{
		sources:  sources,
		opts:     opts,
		index:    make(map[P]int),
		visiting: make(map[P]int),
	}

	root, err := pl.arg(key)
	if err != nil {
		return nil, err
	}

	return &Plan[P]{Key: key, Root: root, Steps: pl.steps}, nil
}

type planner[P Node] struct {
	sources []Source[P]
	opts    Options

	steps []Step[P]

	// reach[i] is the shortest known path from step i to a Scoped provider
	// through Transient providers, or nil when there is none.
	reach [][]NodeKey

	index    map[P]int
	visiting map[P]int
	path     []NodeKey
}

func (pl *planner[P]) arg(key NodeKey) (Arg, error) {
	if !key.Collection {
		p, src, err := Lookup(key, pl.sources, pl.opts)
		if err != nil {
			return Arg{}, pl.withPath(err, key)
		}

		i, err := pl.visit(p, key, src)
		if err != nil {
			return Arg{}, err
		}

		return Arg{Key: key, Steps: []int{i}}, nil
	}

	providers, src := LookupAll(key, pl.sources)
	arg := Arg{Key: key, Collection: true, Steps: make([]int, 0, len(providers))}
	for _, p := range providers {
		i, err := pl.visit(p, key.Base(), src)
		if err != nil {
			return Arg{}, err
		}
		arg.Steps = append(arg.Steps, i)
	}

	return arg, nil
}

func (pl *planner[P]) withPath(err error, key NodeKey) error {
	switch e := err.(type) {
	case *UnresolvedDependencyError:
		e.Path = append(append([]NodeKey{}, pl.path...), key)
	case *AmbiguousProviderError:
		e.Path = append(append([]NodeKey{}, pl.path...), key)
	}
	return err
}

func (pl *planner[P]) visit(p P, key NodeKey, src int) (int, error) {
	if i, ok := pl.index[p]; ok {
		return i, nil
	}

	if pos, ok := pl.visiting[p]; ok {
		cycle := append(append([]NodeKey{}, pl.path[pos:]...), key)
		return -1, &CircularDependencyError{Cycle: cycle}
	}

	pl.visiting[p] = len(pl.path)
	pl.path = append(pl.path, key)
	defer func() {
		pl.path = pl.path[:len(pl.path)-1]
		delete(pl.visiting, p)
	}()

	deps := p.Dependencies()
	step := Step[P]{Provider: p, Key: key, Source: src, Args: make([]Arg, 0, len(deps))}

	for _, dep := range deps {
		arg, err := pl.arg(dep)
		if err != nil {
			return -1, err
		}
		step.Args = append(step.Args, arg)
	}

	reach, err := pl.checkWidth(p, key, step.Args)
	if err != nil {
		return -1, err
	}

	step.Reach = pl.sourcesReached(src, step.Args)

	pl.steps = append(pl.steps, step)
	pl.reach = append(pl.reach, reach)
	i := len(pl.steps) - 1
	pl.index[p] = i

	return i, nil
}

func (pl *planner[P]) sourcesReached(src int, args []Arg) []int {
	reached := []int{src}
	for _, arg := range args {
		for _, i := range arg.Steps {
			reached = append(reached, pl.steps[i].Reach...)
		}
	}

	slices.Sort(reached)
	return slices.Compact(reached)
}

// checkWidth rejects a Singleton that reaches a Scoped provider, directly or
// through Transient providers, and returns the reach of the new step.
func (pl *planner[P]) checkWidth(p P, key NodeKey, args []Arg) ([]NodeKey, error) {
	switch p.Lifetime() {
	case lifetime.Scoped:
		return []NodeKey{key}, nil

	case lifetime.Transient:
		for _, arg := range args {
			for _, i := range arg.Steps {
				if r := pl.reach[i]; r != nil {
					return append([]NodeKey{key}, r...), nil
				}
			}
		}
		return nil, nil

	default:
		for _, arg := range args {
			for _, i := range arg.Steps {
				if r := pl.reach[i]; r != nil {
					return nil, &ScopeMismatchError{
						Singleton: key,
						Scoped:    r[len(r)-1],
						Path:      append([]NodeKey{key}, r...),
					}
				}
			}
		}
		return nil, nil
	}
}

// Lifetimes reports which lifetimes appear in the plan.
func (p *Plan[P]) Lifetimes() map[lifetime.Lifetime]int {
	counts := make(map[lifetime.Lifetime]int, 3)
	for _, step := range p.Steps {
		counts[step.Provider.Lifetime()]++
	}
	return counts
}

// FirstScoped returns the index of the first Scoped step in the plan, or -1.
func (p *Plan[P]) FirstScoped() int {
	for i, step := range p.Steps {
		if step.Provider.Lifetime() == lifetime.Scoped {
			return i
		}
	}
	return -1
}

// PathTo returns the keys leading from the requested key to step target.
func (p *Plan[P]) PathTo(target int) []NodeKey {
	var walk func(i int) []NodeKey
	walk = func(i int) []NodeKey {
		if i == target {
			return []NodeKey{p.Steps[i].Key}
		}
		for _, arg := range p.Steps[i].Args {
			for _, j := range arg.Steps {
				if rest := walk(j); rest != nil {
					return append([]NodeKey{p.Steps[i].Key}, rest...)
				}
			}
		}
		return nil
	}

	for _, i := range p.Root.Steps {
		if path := walk(i); path != nil {
			return path
		}
	}
	return nil
}
