package tool

import (
	"context"
	"reflect"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getWeather(location string) string { return location }

func generateRandomNumber(minVal, maxVal int) int { return minVal }

func drawCards(ctx context.Context, deckID string, count *int) (map[string]any, error) {
	return nil, nil
}

func TestMust(t *testing.T) {
	testFunc := func() {}

	t.Run("valid function", func(t *testing.T) {
		assert.NotPanics(t, func() {
			def := Must(testFunc)
			assert.Equal(t, reflect.ValueOf(testFunc).Pointer(), reflect.ValueOf(def.Function).Pointer())
		})
	})

	t.Run("invalid function", func(t *testing.T) {
		assert.Panics(t, func() {
			Must("not a function")
		})
	})

	t.Run("variadic function", func(t *testing.T) {
		assert.Panics(t, func() {
			Must(func(xs ...string) {})
		})
	})
}

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		fn       any
		options  []Option
		toolName string
	}{
		{"explicit name", func() {}, []Option{Name("test_tool")}, "test_tool"},
		{"derived from function", getWeather, nil, "get_weather"},
		{"derived multiword", generateRandomNumber, nil, "generate_random_number"},
		{"anonymous has no name", func() {}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := New(tt.fn, tt.options...)
			require.NoError(t, err)
			assert.Equal(t, tt.toolName, def.Name)
		})
	}
}

func TestDescription(t *testing.T) {
	for _, desc := range []string{"A test tool", "", "Line 1\nLine 2"} {
		def, err := New(func() {}, Description(desc))
		require.NoError(t, err)
		assert.Equal(t, desc, def.Description)
	}
}

func TestParams(t *testing.T) {
	def := Must(drawCards, Parameters("deck_id", "count"))
	params := def.Params()
	require.Len(t, params, 2)

	assert.Equal(t, "deck_id", params[0].Name)
	assert.Equal(t, 1, params[0].Index, "context parameter is skipped")
	assert.True(t, params[0].Required)

	assert.Equal(t, "count", params[1].Name)
	assert.Equal(t, 2, params[1].Index)
	assert.False(t, params[1].Required, "pointer parameters are optional")

	t.Run("unnamed parameters", func(t *testing.T) {
		params := Must(generateRandomNumber, Parameters("min_val")).Params()
		require.Len(t, params, 2)
		assert.Equal(t, "min_val", params[0].Name)
		assert.Equal(t, "param1", params[1].Name)
	})
}

func TestSchema(t *testing.T) {
	tests := []struct {
		name     string
		def      Definition
		props    map[string]string
		required []string
	}{
		{
			name:  "no parameters",
			def:   Must(func() string { return "" }, Name("get_current_time")),
			props: map[string]string{},
		},
		{
			name:     "string parameter",
			def:      Must(getWeather, Parameters("location")),
			props:    map[string]string{"location": "string"},
			required: []string{"location"},
		},
		{
			name:     "integers",
			def:      Must(generateRandomNumber, Parameters("min_val", "max_val")),
			props:    map[string]string{"min_val": "integer", "max_val": "integer"},
			required: []string{"min_val", "max_val"},
		},
		{
			name:     "context and optional",
			def:      Must(drawCards, Parameters("deck_id", "count")),
			props:    map[string]string{"deck_id": "string", "count": "integer"},
			required: []string{"deck_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := tt.def.Schema()
			assert.Equal(t, "object", schema.Type)
			assert.Equal(t, tt.def.Name, schema.Title)
			assert.Equal(t, jsonschema.FalseSchema, schema.AdditionalProperties)
			assert.Equal(t, len(tt.props), schema.Properties.Len())
			for name, typ := range tt.props {
				prop, ok := schema.Properties.Get(name)
				require.True(t, ok, name)
				assert.Equal(t, typ, prop.Type, name)
				assert.Empty(t, prop.Version)
			}
			assert.Equal(t, tt.required, schema.Required)
		})
	}

	t.Run("explicit schema wins", func(t *testing.T) {
		custom := &jsonschema.Schema{Type: "object"}
		def := Must(getWeather, Schema(custom))
		assert.Same(t, custom, def.Schema())
	})
}

func TestWithToolCombined(t *testing.T) {
	def, err := New(getWeather,
		Name("weather"),
		Description("Get current weather information for a specified location."),
		Parameters("location"),
	)
	require.NoError(t, err)
	assert.Equal(t, "weather", def.Name)
	assert.Equal(t, "Get current weather information for a specified location.", def.Description)
	assert.Equal(t, map[string]string{"param0": "location"}, def.Parameters)
}
