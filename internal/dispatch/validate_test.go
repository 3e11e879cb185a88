package dispatch

import (
	"testing"

	"mcphub/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestValidateArgs(t *testing.T) {
	addSchema := api.InputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"a": map[string]interface{}{"type": "number"},
			"b": map[string]interface{}{"type": "number"},
		},
		Required: []string{"a", "b"},
	}

	tests := []struct {
		name    string
		schema  api.InputSchema
		args    map[string]interface{}
		wantErr string
	}{
		{
			name:   "valid",
			schema: addSchema,
			args:   map[string]interface{}{"a": 3.0, "b": 4.0},
		},
		{
			name:    "missing required",
			schema:  addSchema,
			args:    map[string]interface{}{"a": 3.0},
			wantErr: "Missing required argument: b",
		},
		{
			name:    "null required",
			schema:  addSchema,
			args:    map[string]interface{}{"a": 3.0, "b": nil},
			wantErr: "Missing required argument: b",
		},
		{
			name:    "wrong type",
			schema:  addSchema,
			args:    map[string]interface{}{"a": "three", "b": 4.0},
			wantErr: "Invalid type for argument 'a'",
		},
		{
			name: "integer accepts whole float",
			schema: api.InputSchema{
				Properties: map[string]interface{}{
					"n": map[string]interface{}{"type": "integer"},
				},
			},
			args: map[string]interface{}{"n": 5.0},
		},
		{
			name: "integer rejects fraction",
			schema: api.InputSchema{
				Properties: map[string]interface{}{
					"n": map[string]interface{}{"type": "integer"},
				},
			},
			args:    map[string]interface{}{"n": 5.5},
			wantErr: "Invalid type",
		},
		{
			name: "array and object types",
			schema: api.InputSchema{
				Properties: map[string]interface{}{
					"list": map[string]interface{}{"type": "array"},
					"obj":  map[string]interface{}{"type": "object"},
					"flag": map[string]interface{}{"type": "boolean"},
				},
			},
			args: map[string]interface{}{
				"list": []interface{}{1, 2},
				"obj":  map[string]interface{}{"k": "v"},
				"flag": true,
			},
		},
		{
			name: "additional properties rejected",
			schema: api.InputSchema{
				Properties: map[string]interface{}{
					"a": map[string]interface{}{"type": "string"},
				},
				AdditionalProperties: boolPtr(false),
			},
			args:    map[string]interface{}{"a": "x", "extra": 1},
			wantErr: "Unexpected argument: extra",
		},
		{
			name: "additional properties allowed by default",
			schema: api.InputSchema{
				Properties: map[string]interface{}{
					"a": map[string]interface{}{"type": "string"},
				},
			},
			args: map[string]interface{}{"a": "x", "extra": 1},
		},
		{
			name:   "optional absent",
			schema: api.InputSchema{Properties: map[string]interface{}{"opt": map[string]interface{}{"type": "string"}}},
			args:   map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(tt.schema, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			var validationErr *api.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		msg       string
		retryable bool
	}{
		{"Connection timeout", true},
		{"NETWORK unreachable", true},
		{"temporary failure in name resolution", true},
		{"service unavailable", true},
		{"read timeout", true},
		{"Invalid arguments", false},
		{"tool not found", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(assertableError(tt.msg)))
		})
	}
	assert.False(t, isRetryable(nil))
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
