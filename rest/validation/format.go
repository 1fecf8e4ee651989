// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Outcome is the result of [Check].
type Outcome struct {
	Valid      bool
	Violations []Violation
	Message    string

	// Err is the engine failure, if any. It is kept out of Message since
	// it may describe the schema in detail.
	Err error
}

// Check validates body against a converted schema using engine and renders
// every violation into one message. An engine failure never escapes; it
// makes the outcome invalid.
func Check(body Value, schema Value, engine Engine) Outcome {
	violations, err := engine.Validate(schema, body)
	if err != nil {
		return Outcome{
			Message: RootLabel(body) + " could not be validated: schema is invalid",
			Err:     err,
		}
	}
	if len(violations) == 0 {
		return Outcome{Valid: true}
	}

	SortViolations(schema, body, violations)
	return Outcome{
		Violations: violations,
		Message:    FormatViolations(body, violations),
	}
}

// FormatViolations renders violations as "<root><path> <message>" joined by ", ".
func FormatViolations(body Value, violations []Violation) string {
	root := RootLabel(body)

	var sb strings.Builder
	for i, v := range violations {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(root)
		sb.WriteString(DataPath(body, v.InstanceLocation))
		sb.WriteByte(' ')
		sb.WriteString(v.Message)
	}
	return sb.String()
}

// RootLabel is how the body itself is named at the start of each violation.
// Objects and arrays render as [object Object] and [object Array], scalars
// as their text, null as null and an absent body as undefined.
func RootLabel(body Value) string {
	switch v := body.(type) {
	case nil:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(v))
	case Number:
		return string(v)
	case String:
		return string(v)
	case Array:
		return "[object Array]"
	default:
		return "[object Object]"
	}
}

var identifier = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// DataPath renders an instance location as a JavaScript property access
// chain, e.g. .items[0]['first name'].
func DataPath(body Value, location []string) string {
	var sb strings.Builder
	cur := body
	for _, tok := range location {
		switch node := cur.(type) {
		case Array:
			sb.WriteString("[" + tok + "]")
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(node) {
				cur = nil
				continue
			}
			cur = node[i]
		default:
			if identifier.MatchString(tok) {
				sb.WriteString("." + tok)
			} else {
				sb.WriteString("['" + escapeQuotes(tok) + "']")
			}
			obj, _ := cur.(Object)
			cur, _ = obj.Get(tok)
		}
	}
	return sb.String()
}

type rank struct {
	index int
	key   string
}

// SortViolations orders violations so parents come before children,
// object members follow the order their schema declares them in and array
// items follow their index. Violations at the same location keep the
// engine's order.
func SortViolations(schema Value, body Value, violations []Violation) {
	ranks := make(map[string][]rank, len(violations))
	rankOf := func(v Violation) []rank {
		k := strings.Join(v.InstanceLocation, "\x00")
		r, ok := ranks[k]
		if !ok {
			r = locationRank(schema, body, v.InstanceLocation)
			ranks[k] = r
		}
		return r
	}

	slices.SortStableFunc(violations, func(a, b Violation) int {
		return compareRanks(rankOf(a), rankOf(b))
	})
}

func compareRanks(a, b []rank) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].index != b[i].index {
			if a[i].index < b[i].index {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a[i].key, b[i].key); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func locationRank(root Value, body Value, location []string) []rank {
	ranks := make([]rank, 0, len(location))
	schema, _ := root.(Object)
	cur := body
	for _, tok := range location {
		schema = followRef(root, schema)

		if arr, ok := cur.(Array); ok {
			i, err := strconv.Atoi(tok)
			if err != nil {
				i = math.MaxInt
			}
			ranks = append(ranks, rank{index: i})
			if i >= 0 && i < len(arr) {
				cur = arr[i]
			} else {
				cur = nil
			}
			schema = subschema(schema, "items")
			continue
		}

		obj, _ := cur.(Object)
		cur, _ = obj.Get(tok)

		props, _ := subschemaValue(schema, "properties").(Object)
		if i := props.Index(tok); i >= 0 {
			ranks = append(ranks, rank{index: i})
			schema, _ = props[i].Value.(Object)
			continue
		}
		ranks = append(ranks, rank{index: math.MaxInt, key: tok})
		schema = subschema(schema, "additionalProperties")
	}
	return ranks
}

func subschemaValue(schema Object, keyword string) Value {
	if schema == nil {
		return nil
	}
	v, _ := schema.Get(keyword)
	return v
}

func subschema(schema Object, keyword string) Object {
	obj, _ := subschemaValue(schema, keyword).(Object)
	return obj
}

// followRef resolves #/components/schemas references bundled into root.
func followRef(root Value, schema Object) Object {
	for range 8 {
		ref, ok := schemaRef(schema)
		if !ok {
			return schema
		}
		name, err := refName(ref)
		if err != nil {
			return schema
		}
		components := subschema(subschema(rootObject(root), "components"), "schemas")
		next, _ := subschemaValue(components, name).(Object)
		if next == nil {
			return schema
		}
		schema = next
	}
	return schema
}

func rootObject(v Value) Object {
	obj, _ := v.(Object)
	return obj
}
