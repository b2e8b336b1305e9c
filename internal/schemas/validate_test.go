package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGeneratedTasks_Valid(t *testing.T) {
	doc := []byte(`{"tasks":[{"title":"Sketch a leaf","description":"Draw it.","pillar":"art","xp_value":100}]}`)

	assert.NoError(t, ValidateGeneratedTasks(doc))
}

func TestValidateGeneratedTasks_OptionalFields(t *testing.T) {
	doc := []byte(`{"tasks":[{"title":"Sketch a leaf","description":"Draw it."}]}`)

	assert.NoError(t, ValidateGeneratedTasks(doc))
}

func TestValidateGeneratedTasks_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing tasks", `{}`},
		{"tasks not array", `{"tasks":"x"}`},
		{"missing title", `{"tasks":[{"description":"d"}]}`},
		{"empty title", `{"tasks":[{"title":"","description":"d"}]}`},
		{"xp not integer", `{"tasks":[{"title":"t","description":"d","xp_value":"lots"}]}`},
		{"negative xp", `{"tasks":[{"title":"t","description":"d","xp_value":-1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeneratedTasks([]byte(tt.doc))
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Errors)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := ValidateGeneratedTasks([]byte(`{ invalid json }`))
	require.Error(t, err)

	var docErr *DocumentError
	assert.ErrorAs(t, err, &docErr)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", []byte(`{}`))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "missing.schema.json", loadErr.Name)
	assert.Contains(t, err.Error(), "schema not found")
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Field: "tasks.0.title", Message: "is required"},
	}}

	assert.Equal(t, "validation failed:\n  1. tasks.0.title: is required\n", err.Error())
}
