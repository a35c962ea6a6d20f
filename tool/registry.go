package tool

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/hoot/internal/registry"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrEmptyName is returned when registering a tool without a name.
var ErrEmptyName = errors.New("tool name cannot be empty")

// Entry is a registered tool together with its compiled parameter schema.
type Entry struct {
	Definition
	schema   *jsonschema.Schema
	compiled *validator.Schema
}

// Schema returns the parameter schema the entry was registered with.
func (e Entry) Schema() *jsonschema.Schema { return e.schema }

// Validate checks decoded JSON arguments against the parameter schema.
func (e Entry) Validate(args any) error {
	if e.compiled == nil {
		return nil
	}
	if err := e.compiled.Validate(args); err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			return &ParamError{Reason: validationReason(ve)}
		}
		return &ParamError{Reason: err.Error()}
	}
	return nil
}

// ValidateJSON decodes arguments and validates them against the schema.
func (e Entry) ValidateJSON(arguments string) error {
	doc, err := validator.UnmarshalJSON(strings.NewReader(arguments))
	if err != nil {
		return &ParamError{Reason: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	return e.Validate(doc)
}

// validationReason flattens the validator's multi-line report into one line.
func validationReason(ve *validator.ValidationError) string {
	lines := strings.Split(strings.TrimSpace(ve.Error()), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	reasons := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimLeft(strings.TrimSpace(l), "- "); l != "" {
			reasons = append(reasons, l)
		}
	}
	return strings.Join(reasons, "; ")
}

// Registry is the set of tools the orchestrator may dispatch to.
type Registry struct {
	tools registry.Registry[Entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: registry.New[Entry]()}
}

// Register adds def under def.Name. An existing tool with the same name is
// replaced and a warning is logged.
func (r *Registry) Register(def Definition) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return ErrEmptyName
	}
	if def.Function == nil {
		return fmt.Errorf("tool %q has no function", name)
	}
	def.Name = name

	schema := def.Schema()
	compiled, err := compile(schema)
	if err != nil {
		return fmt.Errorf("tool %q: %w", name, err)
	}

	if r.tools.Add(name, Entry{Definition: def, schema: schema, compiled: compiled}) {
		slog.Warn("tool registration replaced an existing tool", slogx.Tool(name))
	}
	return nil
}

// Add builds a definition from f and registers it.
func (r *Registry) Add(f any, options ...Option) error {
	def, err := New(f, options...)
	if err != nil {
		return err
	}
	return r.Register(def)
}

// MustRegister registers every definition and panics on the first error.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	return r.tools.Get(name)
}

// Definitions returns all tools ordered by name.
func (r *Registry) Definitions() []Definition {
	entries := r.tools.Values()
	defs := make([]Definition, len(entries))
	for i, e := range entries {
		defs[i] = e.Definition
	}
	return defs
}

// Schemas returns the parameter schemas of all tools ordered by tool name.
func (r *Registry) Schemas() []*jsonschema.Schema {
	entries := r.tools.Values()
	schemas := make([]*jsonschema.Schema, len(entries))
	for i, e := range entries {
		schemas[i] = e.schema
	}
	return schemas
}

// Names returns the registered tool names in lexical order.
func (r *Registry) Names() []string { return r.tools.Names() }

// Len returns the number of registered tools.
func (r *Registry) Len() int { return r.tools.Len() }

func compile(schema *jsonschema.Schema) (*validator.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	doc, err := validator.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	const url = "schema.json"
	c := validator.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}
