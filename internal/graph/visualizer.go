package graph

import (
	"fmt"
	"io"
	"strings"

	"github.com/junioryono/inject/internal/lifetime"
)

// WriteText writes the plan as an indented dependency tree rooted at the
// requested key. Shared steps are expanded once and marked on later visits.
func (p *Plan[P]) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n", p.Key); err != nil {
		return err
	}

	seen := make(map[int]bool, len(p.Steps))
	for _, i := range p.Root.Steps {
		if err := p.writeStep(w, i, 1, seen); err != nil {
			return err
		}
	}

	return nil
}

func (p *Plan[P]) writeStep(w io.Writer, i, depth int, seen map[int]bool) error {
	step := p.Steps[i]
	indent := strings.Repeat("  ", depth)

	if seen[i] {
		_, err := fmt.Fprintf(w, "%s%s (%s, shared)\n", indent, step.Key, step.Provider.Lifetime())
		return err
	}
	seen[i] = true

	if _, err := fmt.Fprintf(w, "%s%s (%s)\n", indent, step.Key, step.Provider.Lifetime()); err != nil {
		return err
	}

	for _, arg := range step.Args {
		if arg.Collection {
			if _, err := fmt.Fprintf(w, "%s  %s\n", indent, arg.Key); err != nil {
				return err
			}
			for _, j := range arg.Steps {
				if err := p.writeStep(w, j, depth+2, seen); err != nil {
					return err
				}
			}
			continue
		}

		for _, j := range arg.Steps {
			if err := p.writeStep(w, j, depth+1, seen); err != nil {
				return err
			}
		}
	}

	return nil
}

// WriteDOT writes the plan in Graphviz DOT format. Edges point from a
// dependent to its dependency.
func (p *Plan[P]) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for i, step := range p.Steps {
		fmt.Fprintf(&b, "  n%d [label=%q, fillcolor=%q, style=filled];\n",
			i, step.Key.String()+"\n"+step.Provider.Lifetime().String(), nodeColor(step.Provider.Lifetime()))
	}

	for i, step := range p.Steps {
		for _, arg := range step.Args {
			for _, j := range arg.Steps {
				fmt.Fprintf(&b, "  n%d -> n%d;\n", i, j)
			}
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func nodeColor(l lifetime.Lifetime) string {
	switch l {
	case lifetime.Singleton:
		return "lightblue"
	case lifetime.Scoped:
		return "lightgreen"
	default:
		return "lightyellow"
	}
}
