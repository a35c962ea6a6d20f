package being

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/casualjim/hoot/tool"
)

const promptTemplate = `{{if .System}}Your system instructions:
{{.System}}

{{end}}You are {{.Name}}. Your purpose is to be {{.Bio}}. You are specifically designed to be {{.Personality}}.
{{- if .Examples}}

Example responses:
{{- range .Examples}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Tools}}

You can use the following tools:
{{- range .Tools}}
- {{.Name}}({{.Signature}}){{if .Description}}: {{.Description}}{{end}}
{{- end}}

To use a tool, reply with one line per call in exactly this form:
FUNCTION: tool_name PARAMS: {"param_name": "value"}
Several FUNCTION lines in one reply run those tools together. When you can answer without a tool, reply normally with no FUNCTION line.
{{- end}}
{{- if .Context}}

Relevant context:
{{.Context}}
{{- end}}
`

var systemPrompt = template.Must(template.New("system").Option("missingkey=error").Parse(promptTemplate))

type promptTool struct {
	Name        string
	Signature   string
	Description string
}

type promptData struct {
	System      string
	Name        string
	Bio         string
	Personality string
	Examples    []string
	Tools       []promptTool
	Context     string
}

// Prompt renders the system prompt for this being with the given retrieval
// context and tool catalog. Tools the being does not allow are left out.
func (b *Being) Prompt(retrievalContext string, tools []tool.Definition) (string, error) {
	data := promptData{
		System:      strings.TrimSpace(b.System),
		Name:        b.Character.Name,
		Bio:         b.Character.Bio,
		Personality: b.Character.Personality,
		Examples:    nonEmpty(b.ExampleResponses),
		Context:     strings.TrimSpace(retrievalContext),
	}
	for _, def := range tools {
		if !b.Allows(def.Name) {
			continue
		}
		data.Tools = append(data.Tools, promptTool{
			Name:        def.Name,
			Signature:   signature(def),
			Description: strings.TrimSpace(def.Description),
		})
	}

	var sb strings.Builder
	if err := systemPrompt.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return sb.String(), nil
}

func signature(def tool.Definition) string {
	schema := def.Schema()
	if schema == nil || schema.Properties == nil {
		return ""
	}
	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	var parts []string
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		typ := "any"
		if pair.Value != nil && pair.Value.Type != "" {
			typ = pair.Value.Type
		}
		part := pair.Key + ": " + typ
		if !required[pair.Key] {
			part += "?"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
