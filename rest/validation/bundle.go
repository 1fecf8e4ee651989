// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"sort"
	"strings"
)

// Bundle copies every component schema reachable from schema through
// #/components/schemas references into schema itself, under
// components/schemas, so those references resolve inside one document.
// Bundled components are converted with [ToJSONSchema].
//
// schema must already be converted. References into #/components which do
// not name a schema are malformed. Other references are left to the engine.
func Bundle(schema Value, components Components) (Value, error) {
	root, ok := schema.(Object)
	if !ok {
		return schema, nil
	}

	bundled := map[string]Value{}
	queue, err := collectRefs(root, nil)
	if err != nil {
		return nil, err
	}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		name, err := refName(ref)
		if err != nil {
			return nil, err
		}
		if _, seen := bundled[name]; seen {
			continue
		}

		component, err := lookupRef(ref, components)
		if err != nil {
			return nil, err
		}
		converted, err := ToJSONSchema(component)
		if err != nil {
			return nil, err
		}
		bundled[name] = converted

		if obj, ok := converted.(Object); ok {
			queue, err = collectRefs(obj, queue)
			if err != nil {
				return nil, err
			}
		}
	}
	if len(bundled) == 0 {
		return root, nil
	}

	names := make([]string, 0, len(bundled))
	for name := range bundled {
		names = append(names, name)
	}
	sort.Strings(names)

	schemas := make(Object, 0, len(names))
	for _, name := range names {
		schemas = append(schemas, Member{Key: name, Value: bundled[name]})
	}
	return root.Set("components", Object{{Key: "schemas", Value: schemas}}), nil
}

func collectRefs(schema Object, refs []string) ([]string, error) {
	for _, m := range schema {
		if m.Key == "$ref" {
			s, ok := m.Value.(String)
			if ok && strings.HasPrefix(string(s), "#/components/") {
				if _, err := refName(string(s)); err != nil {
					return nil, err
				}
				refs = append(refs, string(s))
			}
			continue
		}

		var err error
		switch {
		case contains(schemaKeywords, m.Key):
			refs, err = collectSubschemaRefs(m.Value, refs)
		case contains(schemaListKeywords, m.Key):
			arr, _ := m.Value.(Array)
			for _, el := range arr {
				refs, err = collectSubschemaRefs(el, refs)
				if err != nil {
					break
				}
			}
		case contains(schemaMapKeywords, m.Key):
			obj, _ := m.Value.(Object)
			for _, prop := range obj {
				refs, err = collectSubschemaRefs(prop.Value, refs)
				if err != nil {
					break
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func collectSubschemaRefs(v Value, refs []string) ([]string, error) {
	obj, ok := v.(Object)
	if !ok {
		return refs, nil
	}
	return collectRefs(obj, refs)
}
