package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/reactive"
)

// Render builds the ASCII tree for one service's configuration: one root
// per Variable, per Definition that reads nothing, and per import alias that
// some Definition reads, with Definitions nested under every input they read.
func Render(serviceName string, cfg message.ReturnedConfiguration) string {
	children := make(map[string][]string) // input name -> consumer names
	roots := make([]string, 0)

	names := make([]string, 0, len(cfg.Reactives))
	for name := range cfg.Reactives {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rc := cfg.Reactives[name]
		if rc.Kind != reactive.KindDefinition || rc.Expr == nil {
			roots = append(roots, name)
			continue
		}
		inputs := eval.EvalReads(rc.Expr, serviceName)
		if len(inputs) == 0 {
			roots = append(roots, name)
			continue
		}
		for ref := range inputs {
			children[ref.Name] = append(children[ref.Name], name)
		}
	}

	importNames := make([]string, 0, len(cfg.Imports))
	for name := range cfg.Imports {
		importNames = append(importNames, name)
	}
	sort.Strings(importNames)
	for _, name := range importNames {
		if _, isRoot := children[name]; !isRoot {
			continue
		}
		roots = append(roots, name)
	}

	sort.Strings(roots)
	dedup := roots[:0:0]
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		dedup = append(dedup, r)
	}
	roots = dedup

	if len(roots) == 0 {
		return fmt.Sprintf("%s: (no reactives)", serviceName)
	}

	var root *tree.Tree
	if len(roots) == 1 {
		root = buildSubtree(roots[0], cfg, children, make(map[string]bool))
	} else {
		root = tree.NewTree(tree.NodeString(serviceName))
		for _, r := range roots {
			sub := buildSubtree(r, cfg, children, make(map[string]bool))
			if sub != nil {
				attach(root, sub)
			}
		}
	}
	if root == nil {
		return fmt.Sprintf("%s: (no reactives)", serviceName)
	}
	return root.String()
}

func buildSubtree(name string, cfg message.ReturnedConfiguration, children map[string][]string, visited map[string]bool) *tree.Tree {
	if visited[name] {
		return nil
	}
	visited[name] = true

	label := label(name, cfg)
	node := tree.NewTree(tree.NodeString(label))

	kids := append([]string(nil), children[name]...)
	sort.Strings(kids)
	for _, k := range kids {
		child := buildSubtree(k, cfg, children, visited)
		if child != nil {
			attach(node, child)
		}
	}
	return node
}

func attach(parent, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		attach(newChild, grandchild)
	}
}

func label(name string, cfg message.ReturnedConfiguration) string {
	var kind string
	switch {
	case isImport(name, cfg):
		ref := cfg.Imports[name]
		kind = fmt.Sprintf("import <- %s.%s", ref.Service, ref.Name)
	case cfg.Reactives[name].Kind == reactive.KindDefinition:
		kind = "def"
	default:
		kind = "var"
	}
	if importers := cfg.Exports[name]; len(importers) > 0 {
		return fmt.Sprintf("%s [%s, exported to %s]", name, kind, strings.Join(importers, ","))
	}
	return fmt.Sprintf("%s [%s]", name, kind)
}

func isImport(name string, cfg message.ReturnedConfiguration) bool {
	_, ok := cfg.Imports[name]
	return ok
}
