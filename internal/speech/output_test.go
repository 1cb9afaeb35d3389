package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantShape   Shape
		wantLocator string
		wantField   string
	}{
		{"bare string", `"/tmp/x.wav"`, ShapeLocator, "/tmp/x.wav", ""},
		{"name field", `{"name": "/tmp/x.wav"}`, ShapeNamedField, "/tmp/x.wav", "name"},
		{"path field", `{"path": "/tmp/y.wav", "url": null}`, ShapeNamedField, "/tmp/y.wav", "path"},
		{"name preferred over path", `{"path": "/b.wav", "name": "/a.wav"}`, ShapeNamedField, "/a.wav", "name"},
		{"empty object", `{}`, ShapeInvalid, "", ""},
		{"name not a string", `{"name": 42}`, ShapeInvalid, "", ""},
		{"empty string", `""`, ShapeInvalid, "", ""},
		{"array", `["/tmp/x.wav"]`, ShapeInvalid, "", ""},
		{"null", `null`, ShapeInvalid, "", ""},
		{"blank payload", `   `, ShapeInvalid, "", ""},
		{"not json", `/tmp/x.wav`, ShapeInvalid, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ParseOutput([]byte(tt.raw))
			assert.Equal(t, tt.wantShape, out.Shape)
			assert.Equal(t, tt.wantLocator, out.Locator)
			assert.Equal(t, tt.wantField, out.Field)
			assert.Equal(t, tt.raw, out.Raw)
			assert.Equal(t, tt.wantShape != ShapeInvalid, out.Valid())
		})
	}
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "locator", ShapeLocator.String())
	assert.Equal(t, "named_field", ShapeNamedField.String())
	assert.Equal(t, "invalid", ShapeInvalid.String())
}
