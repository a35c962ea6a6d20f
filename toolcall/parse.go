package toolcall

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/casualjim/hoot/pkg/pyliteral"
	"github.com/casualjim/hoot/pkg/slogx"
)

var directive = regexp.MustCompile(`FUNCTION:\s*([A-Za-z0-9_]+)\s*PARAMS:\s*`)

// Contains reports whether text holds at least one directive header. It does
// not check that the parameters parse.
func Contains(text string) bool {
	return directive.MatchString(text)
}

// Parse extracts all well-formed, non-overlapping directives from text in the
// order they appear. A nil result means "no tool calls".
func Parse(text string) []Invocation {
	return ParseContext(context.Background(), text)
}

// ParseContext is Parse, reporting dropped directives to the logger carried by
// ctx.
func ParseContext(ctx context.Context, text string) []Invocation {
	logger := slogx.FromContext(ctx)
	var calls []Invocation
	pos := 0
	for pos < len(text) {
		loc := directive.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		header := text[pos+loc[0] : pos+loc[1]]
		name := text[pos+loc[2] : pos+loc[3]]
		start := pos + loc[1]

		if start >= len(text) || text[start] != '{' {
			logger.WarnContext(ctx, "dropping tool call without a parameter mapping", slogx.Tool(name))
			pos = start
			continue
		}
		end, ok := closingBrace(text, start)
		if !ok {
			logger.WarnContext(ctx, "dropping tool call with unbalanced parameters", slogx.Tool(name))
			pos = start + 1
			continue
		}
		pos = end

		literal := text[start:end]
		params, err := pyliteral.ParseMapping(literal)
		if err != nil {
			logger.WarnContext(ctx, "dropping malformed tool call", slogx.Tool(name), slog.String("params", literal), slogx.Error(err))
			continue
		}
		calls = append(calls, Invocation{
			Name:       name,
			Parameters: params,
			Directive:  header + literal,
		})
	}
	return calls
}

// closingBrace returns the index just past the brace that balances the one at
// text[start]. Braces inside quoted strings are ignored. An unclosed quote
// ends at the line break, because single-line string literals cannot span
// lines.
func closingBrace(text string, start int) (int, bool) {
	depth := 0
	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote, '\n':
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
