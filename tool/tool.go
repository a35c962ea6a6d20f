package tool

import (
	"fmt"
	"reflect"

	"github.com/casualjim/hoot/pkg/reflectx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/swag"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Definition represents a callable tool: its name, description, parameter
// names and the function itself.
type Definition struct {
	Name        string
	Description string
	// Parameters maps positional keys (param0, param1, ...) to the names the
	// model uses.
	Parameters map[string]string
	// InputSchema overrides the reflected parameter schema when set.
	InputSchema *jsonschema.Schema
	Function    any
}

// Param describes one bindable function parameter.
type Param struct {
	Name     string
	Index    int
	Type     reflect.Type
	Required bool
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// Params lists the parameters the model must supply, in declaration order.
// context.Context parameters are skipped.
func (td Definition) Params() []Param {
	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return nil
	}

	var params []Param
	pos := 0
	for i := range typ.NumIn() {
		pt := typ.In(i)
		if reflectx.IsContext(pt) {
			continue
		}
		name := fmt.Sprintf("param%d", pos)
		if p, ok := td.Parameters[name]; ok {
			name = p
		}
		params = append(params, Param{
			Name:     name,
			Index:    i,
			Type:     pt,
			Required: pt.Kind() != reflect.Pointer,
		})
		pos++
	}
	return params
}

// Schema returns the JSON schema of the tool's parameters.
func (td Definition) Schema() *jsonschema.Schema {
	if td.InputSchema != nil {
		return td.InputSchema
	}
	return functionDefinitionJSON(&functionReflector, td)
}

func functionDefinitionJSON(reflector *jsonschema.Reflector, f Definition) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:                 "object",
		Title:                f.Name,
		Description:          f.Description,
		Properties:           orderedmap.New[string, *jsonschema.Schema](),
		AdditionalProperties: jsonschema.FalseSchema,
	}

	var required []string
	for _, p := range f.Params() {
		pt := p.Type
		for pt.Kind() == reflect.Pointer {
			pt = pt.Elem()
		}
		propSchema := reflector.ReflectFromType(pt)
		propSchema.Version = ""
		schema.Properties.Set(p.Name, propSchema)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// Option configures a Definition.
type Option = opts.Option[Definition]

// Must is like New but panics when f is not a function.
func Must(f any, options ...Option) Definition {
	def, err := New(f, options...)
	if err != nil {
		panic(err)
	}
	return def
}

// New creates a Definition for f. Without a Name option the name is the
// snake_case form of the Go function name; anonymous functions need an
// explicit name.
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}
	if reflect.TypeOf(f).IsVariadic() {
		return Definition{}, fmt.Errorf("variadic functions cannot be tools")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		if name := reflectx.FunctionName(f); name != "" {
			def.Name = swag.ToFileName(name)
		}
	}

	def.Function = f
	return def, nil
}

// Name sets the name the model uses to call the tool.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the human-readable description shown to the model.
var Description = opts.ForName[Definition, string]("Description")

// Schema overrides the reflected parameter schema.
var Schema = opts.ForName[Definition, *jsonschema.Schema]("InputSchema")

// Parameters names the function's parameters in declaration order, skipping
// a context.Context parameter.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
