// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"fmt"
	"math"
	"strconv"

	"github.com/z5labs/rampart/rest/validation"

	"gopkg.in/yaml.v3"
)

// maxAliasDepth bounds alias expansion so a self referencing document
// can not recurse forever.
const maxAliasDepth = 64

func fromYAML(n *yaml.Node) (validation.Value, error) {
	return convertNode(n, 0)
}

func convertNode(n *yaml.Node, depth int) (validation.Value, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("yaml nesting exceeds %d levels at line %d", maxAliasDepth, n.Line)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return validation.Null{}, nil
		}
		return convertNode(n.Content[0], depth)
	case yaml.AliasNode:
		return convertNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		arr := validation.Array{}
		for _, item := range n.Content {
			v, err := convertNode(item, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.MappingNode:
		return convertMapping(n, depth)
	case yaml.ScalarNode:
		return convertScalar(n)
	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d at line %d", n.Kind, n.Line)
	}
}

func convertMapping(n *yaml.Node, depth int) (validation.Value, error) {
	obj := validation.Object{}
	var merged validation.Object
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]

		if k.ShortTag() == "!!merge" {
			src, err := mergeSources(v, depth)
			if err != nil {
				return nil, err
			}
			merged = append(merged, src...)
			continue
		}

		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("mapping key at line %d is not a scalar", k.Line)
		}
		val, err := convertNode(v, depth+1)
		if err != nil {
			return nil, err
		}
		obj = obj.Set(k.Value, val)
	}

	// explicit keys win over merged ones
	for _, m := range merged {
		if obj.Index(m.Key) >= 0 {
			continue
		}
		obj = obj.Set(m.Key, m.Value)
	}
	return obj, nil
}

func mergeSources(n *yaml.Node, depth int) (validation.Object, error) {
	if n.Kind == yaml.SequenceNode {
		var out validation.Object
		for _, item := range n.Content {
			src, err := mergeSources(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, src...)
		}
		return out, nil
	}

	v, err := convertNode(n, depth+1)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(validation.Object)
	if !ok {
		return nil, fmt.Errorf("merge value at line %d is not a mapping", n.Line)
	}
	return obj, nil
}

func convertScalar(n *yaml.Node) (validation.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return validation.Null{}, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		if err != nil {
			return nil, err
		}
		return validation.Bool(b), nil
	case "!!int":
		var i int64
		err := n.Decode(&i)
		if err != nil {
			return nil, err
		}
		return validation.Number(strconv.FormatInt(i, 10)), nil
	case "!!float":
		var f float64
		err := n.Decode(&f)
		if err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%s at line %d can not be represented as json", n.Value, n.Line)
		}
		return validation.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
	default:
		return validation.String(n.Value), nil
	}
}
