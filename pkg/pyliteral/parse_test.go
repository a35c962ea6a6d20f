package pyliteral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"int", "42", int64(42)},
		{"negative int", "-7", int64(-7)},
		{"plus sign", "+3", int64(3)},
		{"double negative", "- -3", int64(3)},
		{"underscores", "1_000_000", int64(1000000)},
		{"zero", "0", int64(0)},
		{"zeros", "000", int64(0)},
		{"hex", "0xff", int64(255)},
		{"octal", "0o17", int64(15)},
		{"binary", "0b101", int64(5)},
		{"float", "3.25", 3.25},
		{"leading dot", ".5", 0.5},
		{"trailing dot", "5.", 5.0},
		{"exponent", "1e3", 1000.0},
		{"negative exponent", "-2.5E-1", -0.25},
		{"big int becomes float", "123456789012345678901234567890", 1.2345678901234568e29},
		{"True", "True", true},
		{"False", "False", false},
		{"None", "None", nil},
		{"json true", "true", true},
		{"json null", "null", nil},
		{"single quoted", `'hello'`, "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"embedded other quote", `"it's"`, "it's"},
		{"escaped quote", `'it\'s'`, "it's"},
		{"escapes", `'a\tb\nc\\d'`, "a\tb\nc\\d"},
		{"hex escape", `'\x41'`, "A"},
		{"unicode escape", `'\u00e9t\u00e9'`, "été"},
		{"octal escape", `'\101'`, "A"},
		{"unknown escape kept", `'\d'`, `\d`},
		{"raw string", `r'\d+'`, `\d+`},
		{"unicode prefix", `u'x'`, "x"},
		{"triple quoted", `'''a
b'''`, "a\nb"},
		{"adjacent strings", `'ab' "cd"`, "abcd"},
		{"utf8 passthrough", `'Montréal'`, "Montréal"},
		{"surrounding space", "  'x'  ", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseContainers(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"empty dict", "{}", map[string]any{}},
		{"empty list", "[]", []any{}},
		{"empty tuple", "()", []any{}},
		{"dict", `{'location': 'Montreal'}`, map[string]any{"location": "Montreal"}},
		{"dict double quotes", `{"min_val": 1, "max_val": 6}`, map[string]any{"min_val": int64(1), "max_val": int64(6)}},
		{"dict trailing comma", `{'a': 1,}`, map[string]any{"a": int64(1)}},
		{"duplicate key last wins", `{'a': 1, 'a': 2}`, map[string]any{"a": int64(2)}},
		{"numeric keys", `{1: 'x', 2.5: 'y', True: 'z'}`, map[string]any{"1": "x", "2.5": "y", "True": "z"}},
		{"list", `[1, 'two', 3.0, None]`, []any{int64(1), "two", 3.0, nil}},
		{"tuple", `(1, 2)`, []any{int64(1), int64(2)}},
		{"single tuple", `(1,)`, []any{int64(1)}},
		{"parenthesized value", `(1)`, int64(1)},
		{"set", `{1, 2}`, []any{int64(1), int64(2)}},
		{
			"nested",
			`{'cards': ['AS', 'KH'], 'opts': {'shuffled': True, 'count': (1, 2)}}`,
			map[string]any{
				"cards": []any{"AS", "KH"},
				"opts":  map[string]any{"shuffled": true, "count": []any{int64(1), int64(2)}},
			},
		},
		{"multiline", "{\n  'a': 1,\n  'b': [\n    2,\n  ],\n}", map[string]any{"a": int64(1), "b": []any{int64(2)}}},
		{"comment", "{'a': 1,  # the answer\n}", map[string]any{"a": int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"bare name", "location"},
		{"missing value", "{location: }"},
		{"name as value", "{'a': b}"},
		{"call", "{'a': open('/etc/passwd')}"},
		{"attribute", "os.system"},
		{"dunder import", "__import__('os')"},
		{"binary operator", "1 + 2"},
		{"complex", "1+2j"},
		{"imaginary", "2j"},
		{"lambda", "lambda: 1"},
		{"comprehension", "[x for x in y]"},
		{"f-string", "f'{x}'"},
		{"unterminated string", "'abc"},
		{"newline in string", "'ab\ncd'"},
		{"unterminated dict", "{'a': 1"},
		{"missing colon", "{'a' 1}"},
		{"mixed dict and set", "{'a': 1, 2}"},
		{"list key", "{[1]: 2}"},
		{"none key", "{None: 2}"},
		{"trailing garbage", "{'a': 1} extra"},
		{"two values", "1 2"},
		{"leading zero", "007"},
		{"bad hex", "0x"},
		{"bad exponent", "1e"},
		{"lone sign", "-"},
		{"signed string", "-'a'"},
		{"bad escape", `'\xZZ'`},
		{"missing comma", "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
		})
	}
}

func TestParseDepthLimit(t *testing.T) {
	deep := ""
	for range maxDepth + 5 {
		deep += "["
	}
	_, err := Parse(deep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting")
}

func TestSyntaxErrorOffset(t *testing.T) {
	_, err := Parse("{'a': b}")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, se.Offset)
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping(`{'location': 'Montreal'}`)
	require.NoError(t, err)
	assert.Equal(t, "Montreal", m["location"])

	_, err = ParseMapping(`['location']`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list")

	_, err = ParseMapping(`{'location': }`)
	require.Error(t, err)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "None", TypeName(nil))
	assert.Equal(t, "bool", TypeName(true))
	assert.Equal(t, "int", TypeName(int64(1)))
	assert.Equal(t, "float", TypeName(1.5))
	assert.Equal(t, "str", TypeName("x"))
	assert.Equal(t, "list", TypeName([]any{}))
	assert.Equal(t, "dict", TypeName(map[string]any{}))
}
