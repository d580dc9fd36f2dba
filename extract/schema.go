package extract

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Item schemas for decoded completion output. Unknown keys are rejected and
// required keys enforced; numbers may arrive as numeric strings.
const (
	lectureThemeSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["title", "order", "hours"],
  "properties": {
    "title":       {"type": "string"},
    "order":       {"type": ["integer", "string"]},
    "hours":       {"type": ["number", "string"]},
    "description": {"type": ["string", "null"]}
  }
}`

	labExampleSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["title", "description"],
  "properties": {
    "title":           {"type": "string"},
    "description":     {"type": "string"},
    "theme_relation":  {"type": ["string", "null"]},
    "estimated_hours": {"type": ["number", "string", "null"]}
  }
}`

	literatureSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["authors", "title"],
  "properties": {
    "authors":        {"type": "string"},
    "title":          {"type": "string"},
    "year":           {"type": ["integer", "string", "null"]},
    "pages":          {"type": ["string", "number", "null"]},
    "publisher":      {"type": ["string", "null"]},
    "isbn":           {"type": ["string", "null"]},
    "kpfu_available": {"type": "boolean"},
    "kpfu_book_id":   {"type": ["string", "null"]}
  }
}`
)

var (
	themeItemSchema      = mustCompileSchema("lecture_theme.json", lectureThemeSchema)
	labItemSchema        = mustCompileSchema("lab_example.json", labExampleSchema)
	literatureItemSchema = mustCompileSchema("literature_reference.json", literatureSchema)
)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("extract: add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// describeValidation flattens a schema violation into one line.
func describeValidation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var leaves []string
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			loc := v.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			leaves = append(leaves, loc+": "+v.Message)
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(leaves)
	return strings.Join(leaves, "; ")
}

// Conversions for values already accepted by a schema.

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func asOptString(v any) *string {
	if s, ok := asString(v); ok {
		return &s
	}
	return nil
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", ".")), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func asInt(v any) (int, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%v is out of range", v)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	return int(f), nil
}

// asOptInt returns nil for null and an error for non-numeric text.
func asOptInt(v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	n, err := asInt(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func asOptFloat(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, err := asFloat(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
