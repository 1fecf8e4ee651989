// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/z5labs/rampart/concurrent"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Violation is a single reason an instance does not satisfy a schema.
type Violation struct {
	// InstanceLocation is the path from the root of the instance to the
	// offending value, one element per object member or array index.
	InstanceLocation []string

	// Keyword is the schema keyword which failed, e.g. required.
	Keyword string

	// Message describes the violation, e.g. should be boolean.
	Message string
}

// Engine validates JSON instances against JSON Schema documents.
// Implementations must report every violation rather than stop at the first.
type Engine interface {
	Validate(schema Value, instance Value) ([]Violation, error)
}

// EngineFunc is an adapter to allow the use of ordinary functions as [Engine]s.
type EngineFunc func(schema Value, instance Value) ([]Violation, error)

// Validate implements the [Engine] interface.
func (f EngineFunc) Validate(schema Value, instance Value) ([]Violation, error) {
	return f(schema, instance)
}

// schemaResource is absolute so the compiler never joins it with the
// working directory.
const schemaResource = "urn:rampart:request-body"

var defaultPrinter = message.NewPrinter(language.English)

// JSONSchemaEngine is the default [Engine]. Schemas are compiled as
// Draft 2020-12 with format assertions enabled and cached by content.
type JSONSchemaEngine struct {
	cache *concurrent.Cache[string, *jsonschema.Schema]
}

// NewJSONSchemaEngine initializes a [JSONSchemaEngine].
func NewJSONSchemaEngine(opts ...concurrent.CacheOption) *JSONSchemaEngine {
	return &JSONSchemaEngine{
		cache: concurrent.NewCache[string, *jsonschema.Schema](opts...),
	}
}

// Validate implements the [Engine] interface.
func (e *JSONSchemaEngine) Validate(schema Value, instance Value) ([]Violation, error) {
	sch, err := e.compile(schema)
	if err != nil {
		return nil, err
	}

	err = sch.Validate(ToAny(instance))
	if err == nil {
		return nil, nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	return flatten(verr, nil), nil
}

func (e *JSONSchemaEngine) compile(schema Value) (*jsonschema.Schema, error) {
	if schema == nil {
		return nil, ErrSchemaNotObject
	}
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}

	return e.cache.GetOr(string(b), func() (*jsonschema.Schema, error) {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}

		c := jsonschema.NewCompiler()
		c.DefaultDraft(jsonschema.Draft2020)
		c.AssertFormat()
		err = c.AddResource(schemaResource, doc)
		if err != nil {
			return nil, err
		}
		return c.Compile(schemaResource)
	})
}

// flatten walks the error tree down to its leaves. Combinator errors are
// emitted after the errors of their subschemas.
func flatten(verr *jsonschema.ValidationError, out []Violation) []Violation {
	switch k := verr.ErrorKind.(type) {
	case *kind.Schema, *kind.Group, *kind.Reference, *kind.AllOf:
		for _, cause := range verr.Causes {
			out = flatten(cause, out)
		}
		return out
	case *kind.AnyOf, *kind.OneOf:
		for _, cause := range verr.Causes {
			out = flatten(cause, out)
		}
		return append(out, violation(verr, k))
	case *kind.Required:
		for _, name := range k.Missing {
			out = append(out, Violation{
				InstanceLocation: verr.InstanceLocation,
				Keyword:          "required",
				Message:          fmt.Sprintf("should have required property '%s'", escapeQuotes(name)),
			})
		}
		return out
	case *kind.AdditionalProperties:
		for range k.Properties {
			out = append(out, Violation{
				InstanceLocation: verr.InstanceLocation,
				Keyword:          "additionalProperties",
				Message:          "should NOT have additional properties",
			})
		}
		return out
	case *kind.FalseSchema:
		return append(out, Violation{
			InstanceLocation: verr.InstanceLocation,
			Keyword:          "false schema",
			Message:          describe(k),
		})
	case *kind.Dependency:
		return append(out, dependencyViolation(verr, "dependencies", k.Prop, k.Missing))
	case *kind.DependentRequired:
		return append(out, dependencyViolation(verr, "dependentRequired", k.Prop, k.Missing))
	default:
		return append(out, violation(verr, k))
	}
}

func violation(verr *jsonschema.ValidationError, k jsonschema.ErrorKind) Violation {
	return Violation{
		InstanceLocation: verr.InstanceLocation,
		Keyword:          strings.Join(k.KeywordPath(), "/"),
		Message:          describe(k),
	}
}

func dependencyViolation(verr *jsonschema.ValidationError, keyword, prop string, missing []string) Violation {
	what := "property " + escapeQuotes(missing[0])
	if len(missing) > 1 {
		what = "properties " + escapeQuotes(strings.Join(missing, ", "))
	}
	return Violation{
		InstanceLocation: verr.InstanceLocation,
		Keyword:          keyword,
		Message:          fmt.Sprintf("should have %s when property %s is present", what, escapeQuotes(prop)),
	}
}

// describe phrases an error kind the way ajv does.
func describe(k jsonschema.ErrorKind) string {
	switch k := k.(type) {
	case *kind.Type:
		return "should be " + strings.Join(k.Want, ",")
	case *kind.Enum:
		return "should be equal to one of the allowed values"
	case *kind.Const:
		return "should be equal to constant"
	case *kind.Format:
		return fmt.Sprintf("should match format %q", k.Want)
	case *kind.Pattern:
		return fmt.Sprintf("should match pattern %q", k.Want)
	case *kind.MinLength:
		return fmt.Sprintf("should NOT be shorter than %d characters", k.Want)
	case *kind.MaxLength:
		return fmt.Sprintf("should NOT be longer than %d characters", k.Want)
	case *kind.MinItems:
		return fmt.Sprintf("should NOT have fewer than %d items", k.Want)
	case *kind.MaxItems:
		return fmt.Sprintf("should NOT have more than %d items", k.Want)
	case *kind.AdditionalItems:
		return fmt.Sprintf("should NOT have more than %d items", k.Count)
	case *kind.MinProperties:
		return fmt.Sprintf("should NOT have fewer than %d properties", k.Want)
	case *kind.MaxProperties:
		return fmt.Sprintf("should NOT have more than %d properties", k.Want)
	case *kind.Minimum:
		return "should be >= " + formatRat(k.Want)
	case *kind.Maximum:
		return "should be <= " + formatRat(k.Want)
	case *kind.ExclusiveMinimum:
		return "should be > " + formatRat(k.Want)
	case *kind.ExclusiveMaximum:
		return "should be < " + formatRat(k.Want)
	case *kind.MultipleOf:
		return "should be multiple of " + formatRat(k.Want)
	case *kind.UniqueItems:
		return fmt.Sprintf(
			"should NOT have duplicate items (items ## %d and %d are identical)",
			max(k.Duplicates[0], k.Duplicates[1]),
			min(k.Duplicates[0], k.Duplicates[1]),
		)
	case *kind.Contains:
		return "should contain a valid item"
	case *kind.PropertyNames:
		return fmt.Sprintf("property name '%s' is invalid", escapeQuotes(k.Property))
	case *kind.AnyOf:
		return "should match some schema in anyOf"
	case *kind.OneOf:
		return "should match exactly one schema in oneOf"
	case *kind.Not:
		return "should NOT be valid"
	case *kind.FalseSchema:
		return "boolean schema is false"
	default:
		return k.LocalizedString(defaultPrinter)
	}
}

// formatRat renders a number like JavaScript would. The message printer
// is not used since it groups digits.
func formatRat(r *big.Rat) string {
	if r == nil {
		return ""
	}
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escapeQuotes(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}
