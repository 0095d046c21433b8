package weights

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Keys of the nested configuration format:
//
//	financial_health:
//	  weight: 0.3
//	  components:
//	    liquidity:
//	      weight: 0.5
//	      metrics: {current_ratio: 0.5, quick_ratio: 0.5}
const (
	keyWeight     = "weight"
	keyMetrics    = "metrics"
	keyComponents = "components"
)

// Parse builds a tree from the nested configuration format. A component must
// carry exactly one of "metrics" or "components".
func Parse(raw map[string]any) (*Tree, error) {
	nodes, err := parseGroup("", raw)
	if err != nil {
		return nil, err
	}
	return NewTree(nodes...)
}

func parseGroup(parent string, raw map[string]any) ([]Node, error) {
	nodes := make([]Node, 0, len(raw))
	for name, v := range raw {
		path := Join(parent, name)
		body, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q must be a mapping, got %T", ErrConfiguration, path, v)
		}
		n, err := parseNode(path, name, body)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseNode(path, name string, body map[string]any) (Node, error) {
	w, err := toFloat(path, body[keyWeight])
	if err != nil {
		return nil, err
	}
	for k := range body {
		if k != keyWeight && k != keyMetrics && k != keyComponents {
			return nil, fmt.Errorf("%w: unknown key %q in %q", ErrConfiguration, k, path)
		}
	}

	metrics, hasMetrics := body[keyMetrics]
	components, hasComponents := body[keyComponents]
	switch {
	case hasMetrics && hasComponents:
		return nil, fmt.Errorf("%w: %q has both metrics and components", ErrConfiguration, path)
	case hasMetrics:
		m, ok := metrics.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: metrics of %q must be a mapping", ErrConfiguration, path)
		}
		mw := make(map[string]float64, len(m))
		for mn, mv := range m {
			f, err := toFloat(Join(path, mn), mv)
			if err != nil {
				return nil, err
			}
			mw[mn] = f
		}
		return NewLeaf(name, w, mw), nil
	case hasComponents:
		c, ok := components.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: components of %q must be a mapping", ErrConfiguration, path)
		}
		children, err := parseGroup(path, c)
		if err != nil {
			return nil, err
		}
		return NewComposite(name, w, children...), nil
	default:
		return nil, fmt.Errorf("%w: %q needs metrics or components", ErrConfiguration, path)
	}
}

func toFloat(path string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: weight of %q: %v", ErrConfiguration, path, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%w: %q has no weight", ErrConfiguration, path)
	default:
		return 0, fmt.Errorf("%w: weight of %q has type %T", ErrConfiguration, path, v)
	}
}

// Spec renders the tree in the nested configuration format accepted by Parse.
func (t *Tree) Spec() map[string]any {
	return specGroup(t.categories)
}

func specGroup(nodes []Node) map[string]any {
	out := make(map[string]any, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Leaf:
			m := make(map[string]any, len(v.metrics))
			for _, mt := range v.metrics {
				m[mt.Name] = mt.Weight
			}
			out[v.name] = map[string]any{keyWeight: v.weight, keyMetrics: m}
		case *Composite:
			out[v.name] = map[string]any{keyWeight: v.weight, keyComponents: specGroup(v.children)}
		}
	}
	return out
}

// MarshalJSON encodes the tree in the nested configuration format.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Spec())
}
