// ABOUTME: Tagged union over the speech-synthesis response shapes
// ABOUTME: Resolved once at the boundary: bare locator, named locator field, or invalid
package speech

import (
	"bytes"

	"github.com/bytedance/sonic"
)

// Shape tells which response form the synthesizer returned
type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeLocator
	ShapeNamedField
)

func (s Shape) String() string {
	switch s {
	case ShapeLocator:
		return "locator"
	case ShapeNamedField:
		return "named_field"
	default:
		return "invalid"
	}
}

// LocatorFields are the structured-response fields that may carry the locator, in lookup order
var LocatorFields = []string{"name", "path"}

// Output is a resolved synthesis response
type Output struct {
	Shape   Shape
	Locator string
	Field   string // set for ShapeNamedField
	Raw     string // original payload, for diagnostics
}

// Valid reports whether a locator was extracted
func (o Output) Valid() bool {
	return o.Shape != ShapeInvalid && o.Locator != ""
}

// ParseOutput resolves a raw synthesis payload.
// A JSON string is a bare locator; an object exposing a string locator field is
// a named-field response; anything else is invalid.
func ParseOutput(raw []byte) Output {
	out := Output{Shape: ShapeInvalid, Raw: string(raw)}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out
	}

	var v interface{}
	if err := sonic.Unmarshal(trimmed, &v); err != nil {
		return out
	}

	switch val := v.(type) {
	case string:
		if val != "" {
			out.Shape = ShapeLocator
			out.Locator = val
		}
	case map[string]interface{}:
		for _, field := range LocatorFields {
			if s, ok := val[field].(string); ok && s != "" {
				out.Shape = ShapeNamedField
				out.Locator = s
				out.Field = field
				break
			}
		}
	}
	return out
}
