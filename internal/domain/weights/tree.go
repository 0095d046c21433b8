// Package weights defines the hierarchical weight tree used to combine
// normalized metric scores into category and overall scores.
//
// A tree is built once from nested literals (or parsed configuration),
// validated, and never mutated afterwards. It is safe for concurrent reads.
package weights

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// SumTolerance is the allowed deviation of a sibling group's weight sum from 1.0.
const SumTolerance = 1e-6

// PathSeparator joins component and metric names into metric identifiers.
const PathSeparator = "."

// Node is a component of the tree: either a *Leaf or a *Composite.
type Node interface {
	Name() string
	Weight() float64
	// Path is the dotted path from the root, empty before the node is part of a Tree.
	Path() string

	node()
}

// Metric is a weighted leaf entry.
type Metric struct {
	Name   string
	Weight float64
	Path   string
}

// Leaf is a component holding weighted metrics.
type Leaf struct {
	name    string
	weight  float64
	path    string
	metrics []Metric
}

// Composite is a component holding weighted sub-components.
type Composite struct {
	name     string
	weight   float64
	path     string
	children []Node
}

// NewLeaf builds a leaf component. Validation happens in NewTree.
func NewLeaf(name string, weight float64, metrics map[string]float64) *Leaf {
	l := &Leaf{name: name, weight: weight, metrics: make([]Metric, 0, len(metrics))}
	for n, w := range metrics {
		l.metrics = append(l.metrics, Metric{Name: n, Weight: w})
	}
	sort.Slice(l.metrics, func(i, j int) bool { return l.metrics[i].Name < l.metrics[j].Name })
	return l
}

// NewComposite builds a composite component. Validation happens in NewTree.
func NewComposite(name string, weight float64, children ...Node) *Composite {
	return &Composite{name: name, weight: weight, children: slices.Clone(children)}
}

func (l *Leaf) Name() string    { return l.name }
func (l *Leaf) Weight() float64 { return l.weight }
func (l *Leaf) Path() string    { return l.path }
func (*Leaf) node()             {}

// Metrics returns the leaf's metrics in lexical order.
func (l *Leaf) Metrics() []Metric { return slices.Clone(l.metrics) }

func (c *Composite) Name() string    { return c.name }
func (c *Composite) Weight() float64 { return c.weight }
func (c *Composite) Path() string    { return c.path }
func (*Composite) node()             {}

// Children returns the sub-components in lexical order.
func (c *Composite) Children() []Node { return slices.Clone(c.children) }

// Child is one entry of Children: a sub-component, or a metric when Node is nil.
type Child struct {
	Name   string
	Weight float64
	Path   string
	Node   Node
}

// Children returns the ordered (name, weight) entries directly below n.
func Children(n Node) []Child {
	switch v := n.(type) {
	case *Leaf:
		out := make([]Child, len(v.metrics))
		for i, m := range v.metrics {
			out[i] = Child{Name: m.Name, Weight: m.Weight, Path: m.Path}
		}
		return out
	case *Composite:
		out := make([]Child, len(v.children))
		for i, c := range v.children {
			out[i] = Child{Name: c.Name(), Weight: c.Weight(), Path: c.Path(), Node: c}
		}
		return out
	default:
		return nil
	}
}

// IsLeaf reports whether n holds metrics rather than sub-components.
func IsLeaf(n Node) bool {
	_, ok := n.(*Leaf)
	return ok
}

// Tree is a validated, immutable weight tree. Its roots are the top-level categories.
type Tree struct {
	categories []Node
	index      map[string]Node
	metrics    map[string]float64
}

// NewTree validates the categories and returns an immutable tree. The inputs
// are copied; later changes to them do not affect the tree.
func NewTree(categories ...Node) (*Tree, error) {
	return build(categories, nil)
}

func build(categories []Node, overrides map[string]float64) (*Tree, error) {
	t := &Tree{index: make(map[string]Node), metrics: make(map[string]float64)}
	b := builder{tree: t, overrides: overrides, used: make(map[string]bool)}

	roots, err := b.group("", categories)
	if err != nil {
		return nil, err
	}
	t.categories = roots

	for path := range overrides {
		if !b.used[path] {
			return nil, fmt.Errorf("%w: override for unknown path %q", ErrConfiguration, path)
		}
	}
	return t, nil
}

type builder struct {
	tree      *Tree
	overrides map[string]float64
	used      map[string]bool
}

// group copies and validates one sibling group of components.
func (b *builder) group(parent string, nodes []Node) ([]Node, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s has no components", ErrConfiguration, describe(parent))
	}
	out := make([]Node, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	weights := make([]float64, 0, len(nodes))

	for _, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: nil component under %s", ErrConfiguration, describe(parent))
		}
		path, err := b.childPath(parent, n.Name(), seen)
		if err != nil {
			return nil, err
		}
		w, err := b.weight(path, n.Weight())
		if err != nil {
			return nil, err
		}
		weights = append(weights, w)

		var cp Node
		switch v := n.(type) {
		case *Leaf:
			cp, err = b.leaf(path, w, v)
		case *Composite:
			cp, err = b.composite(path, w, v)
		default:
			err = fmt.Errorf("%w: unsupported node type %T at %q", ErrConfiguration, n, path)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	if err := checkSum(parent, weights); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *builder) leaf(path string, weight float64, src *Leaf) (*Leaf, error) {
	if len(src.metrics) == 0 {
		return nil, fmt.Errorf("%w: component %q has no metrics", ErrConfiguration, path)
	}
	l := &Leaf{name: src.name, weight: weight, path: path, metrics: make([]Metric, 0, len(src.metrics))}
	seen := make(map[string]bool, len(src.metrics))
	weights := make([]float64, 0, len(src.metrics))

	for _, m := range src.metrics {
		mp, err := b.childPath(path, m.Name, seen)
		if err != nil {
			return nil, err
		}
		w, err := b.weight(mp, m.Weight)
		if err != nil {
			return nil, err
		}
		weights = append(weights, w)
		l.metrics = append(l.metrics, Metric{Name: m.Name, Weight: w, Path: mp})
		b.tree.metrics[mp] = w
	}
	if err := checkSum(path, weights); err != nil {
		return nil, err
	}
	b.tree.index[path] = l
	return l, nil
}

func (b *builder) composite(path string, weight float64, src *Composite) (*Composite, error) {
	children, err := b.group(path, src.children)
	if err != nil {
		return nil, err
	}
	c := &Composite{name: src.name, weight: weight, path: path, children: children}
	b.tree.index[path] = c
	return c, nil
}

func (b *builder) childPath(parent, name string, seen map[string]bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty name under %s", ErrConfiguration, describe(parent))
	}
	if strings.Contains(name, PathSeparator) {
		return "", fmt.Errorf("%w: name %q must not contain %q", ErrConfiguration, name, PathSeparator)
	}
	if seen[name] {
		return "", fmt.Errorf("%w: duplicate name %q under %s", ErrConfiguration, name, describe(parent))
	}
	seen[name] = true
	return Join(parent, name), nil
}

func (b *builder) weight(path string, w float64) (float64, error) {
	if o, ok := b.overrides[path]; ok {
		b.used[path] = true
		w = o
	}
	if math.IsNaN(w) || w <= 0 || w > 1 {
		return 0, fmt.Errorf("%w: weight of %q is %v, must be in (0,1]", ErrConfiguration, path, w)
	}
	return w, nil
}

func checkSum(parent string, weights []float64) error {
	// Sorted summation so the check does not depend on input order.
	sorted := slices.Clone(weights)
	slices.Sort(sorted)
	var sum float64
	for _, w := range sorted {
		sum += w
	}
	if math.Abs(sum-1) > SumTolerance {
		return fmt.Errorf("%w: weights under %s sum to %.6f, must sum to 1.0", ErrConfiguration, describe(parent), sum)
	}
	return nil
}

func describe(path string) string {
	if path == "" {
		return "root"
	}
	return fmt.Sprintf("%q", path)
}

// Join builds a dotted path.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + PathSeparator + name
}

// Categories returns the top-level components in lexical order.
func (t *Tree) Categories() []Node { return slices.Clone(t.categories) }

// CategoryNames returns the top-level component names in lexical order.
func (t *Tree) CategoryNames() []string {
	names := make([]string, len(t.categories))
	for i, c := range t.categories {
		names[i] = c.Name()
	}
	return names
}

// Category returns the top-level component with the given name.
func (t *Tree) Category(name string) (Node, bool) {
	if strings.Contains(name, PathSeparator) {
		return nil, false
	}
	return t.Lookup(name)
}

// Lookup returns the component at path.
func (t *Tree) Lookup(path string) (Node, bool) {
	n, ok := t.index[path]
	return n, ok
}

// Metrics returns every metric path in lexical order.
func (t *Tree) Metrics() []string {
	out := make([]string, 0, len(t.metrics))
	for p := range t.metrics {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsMetric reports whether path names a leaf metric of the tree.
func (t *Tree) IsMetric(path string) bool {
	_, ok := t.metrics[path]
	return ok
}

// UnknownMetrics returns the paths that are not metrics of the tree, in
// lexical order.
func (t *Tree) UnknownMetrics(paths []string) []string {
	var out []string
	for _, p := range paths {
		if !t.IsMetric(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Weight returns the weight of the component or metric at path, relative to its siblings.
func (t *Tree) Weight(path string) (float64, bool) {
	if w, ok := t.metrics[path]; ok {
		return w, true
	}
	if n, ok := t.index[path]; ok {
		return n.Weight(), true
	}
	return 0, false
}

// EffectiveWeight returns the product of weights from the root down to path,
// i.e. the share of the overall score the component or metric controls.
func (t *Tree) EffectiveWeight(path string) (float64, bool) {
	if _, ok := t.Weight(path); !ok {
		return 0, false
	}
	eff := 1.0
	parts := strings.Split(path, PathSeparator)
	for i := range parts {
		w, _ := t.Weight(strings.Join(parts[:i+1], PathSeparator))
		eff *= w
	}
	return eff, true
}

// WithOverrides returns a new validated tree with some weights replaced.
// categoryWeights is keyed by top-level category name; pathWeights by the
// dotted path of any metric or sub-component. The receiver is not changed.
func (t *Tree) WithOverrides(categoryWeights, pathWeights map[string]float64) (*Tree, error) {
	overrides := make(map[string]float64, len(categoryWeights)+len(pathWeights))
	for name, w := range categoryWeights {
		if strings.Contains(name, PathSeparator) {
			return nil, fmt.Errorf("%w: category override %q is not a top-level name", ErrConfiguration, name)
		}
		overrides[name] = w
	}
	for path, w := range pathWeights {
		if _, dup := overrides[path]; dup {
			return nil, fmt.Errorf("%w: %q overridden twice", ErrConfiguration, path)
		}
		overrides[path] = w
	}
	if len(overrides) == 0 {
		return t, nil
	}
	return build(t.categories, overrides)
}
