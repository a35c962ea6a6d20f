// Package pyliteral evaluates Python-style literal expressions without
// evaluating code.
//
// Accepted forms are numbers, strings, True/False/None, lists, tuples, sets
// and dicts, the same set of literal displays that model output uses when it
// writes parameters "the Python way". Names, calls, attribute access, operators
// other than a numeric sign, comprehensions and lambdas are rejected.
//
// Results use plain Go values:
//
//	int         int64 (float64 when it does not fit)
//	float       float64
//	str         string
//	bool        bool
//	None        nil
//	list/tuple  []any
//	set         []any
//	dict        map[string]any
//
// Dict keys must be strings, numbers or booleans; non-string keys are
// converted to their text form.
package pyliteral

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxDepth = 64

// SyntaxError reports where and why a literal could not be parsed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid literal at offset %d: %s", e.Offset, e.Msg)
}

// Parse evaluates src as exactly one literal expression. Surrounding
// whitespace is ignored.
func Parse(src string) (any, error) {
	p := &parser{src: src}
	p.skipSpace()
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q after literal", p.peekRune())
	}
	return v, nil
}

// ParseMapping evaluates src and requires the result to be a dict.
func ParseMapping(src string) (map[string]any, error) {
	v, err := Parse(src)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("literal is a %s, not a mapping", TypeName(v))
	}
	return m, nil
}

// TypeName returns the Python-flavoured name of a parsed value's type.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "None"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			p.pos++
		case c == '\\' && strings.HasPrefix(p.src[p.pos:], "\\\n"):
			p.pos += 2
		case c == '#':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, p.errorf("nesting deeper than %d", maxDepth)
	}
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.peek(); {
	case c == '{':
		return p.braces(depth)
	case c == '[':
		p.pos++
		return p.sequence(']', depth)
	case c == '(':
		p.pos++
		return p.sequence(')', depth)
	case c == '"' || c == '\'':
		return p.stringValue()
	case c == '+' || c == '-':
		return p.signed()
	case c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case c == '_' || isLetter(p.peekRune()):
		start := p.pos
		word := p.word()
		if q := p.peek(); (q == '"' || q == '\'') && isStringPrefix(word) {
			p.pos = start
			return p.stringValue()
		}
		switch word {
		case "True", "true":
			return true, nil
		case "False", "false":
			return false, nil
		case "None", "null":
			return nil, nil
		}
		p.pos = start
		return nil, p.errorf("name %q is not a literal", word)
	default:
		return nil, p.errorf("unexpected %q", p.peekRune())
	}
}

func isLetter(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isStringPrefix(w string) bool {
	switch strings.ToLower(w) {
	case "r", "u", "b", "br", "rb":
		return true
	}
	return false
}

func (p *parser) word() string {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

// sequence parses list and tuple displays after the opening bracket.
func (p *parser) sequence(closer byte, depth int) (any, error) {
	items := []any{}
	for {
		p.skipSpace()
		if p.peek() == closer {
			p.pos++
			return items, nil
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			// (x) is a parenthesized value, (x,) is a tuple
			if closer == ')' && len(items) == 1 {
				return items[0], nil
			}
			return items, nil
		default:
			if p.eof() {
				return nil, p.errorf("missing %q", closer)
			}
			return nil, p.errorf("expected ',' or %q, got %q", closer, p.peekRune())
		}
	}
}

// braces parses dict and set displays.
func (p *parser) braces(depth int) (any, error) {
	p.pos++
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return map[string]any{}, nil
	}

	first, err := p.value(depth + 1)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ':' {
		return p.set(first, depth)
	}

	out := map[string]any{}
	key := first
	for {
		keyPos := p.pos
		p.pos++ // ':'
		p.skipSpace()
		val, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		k, err := mapKey(key)
		if err != nil {
			return nil, &SyntaxError{Offset: keyPos, Msg: err.Error()}
		}
		out[k] = val

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				p.pos++
				return out, nil
			}
		case '}':
			p.pos++
			return out, nil
		default:
			if p.eof() {
				return nil, p.errorf("missing '}'")
			}
			return nil, p.errorf("expected ',' or '}', got %q", p.peekRune())
		}

		if key, err = p.value(depth + 1); err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after dict key")
		}
	}
}

func (p *parser) set(first any, depth int) (any, error) {
	items := []any{first}
	for {
		p.skipSpace()
		switch p.peek() {
		case '}':
			p.pos++
			return items, nil
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				p.pos++
				return items, nil
			}
			v, err := p.value(depth + 1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		default:
			if p.eof() {
				return nil, p.errorf("missing '}'")
			}
			return nil, p.errorf("expected ',' or '}', got %q", p.peekRune())
		}
	}
}

func mapKey(v any) (string, error) {
	switch k := v.(type) {
	case string:
		return k, nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64), nil
	case bool:
		if k {
			return "True", nil
		}
		return "False", nil
	default:
		return "", fmt.Errorf("unsupported dict key of type %s", TypeName(v))
	}
}

func (p *parser) signed() (any, error) {
	neg := false
	for p.peek() == '+' || p.peek() == '-' {
		if p.peek() == '-' {
			neg = !neg
		}
		p.pos++
		p.skipSpace()
	}
	if c := p.peek(); c != '.' && (c < '0' || c > '9') {
		return nil, p.errorf("sign must be followed by a number")
	}
	v, err := p.number()
	if err != nil || !neg {
		return v, err
	}
	switch n := v.(type) {
	case int64:
		if n == math.MinInt64 {
			return float64(n) * -1, nil
		}
		return -n, nil
	case float64:
		return -n, nil
	}
	return v, nil
}

func (p *parser) number() (any, error) {
	start := p.pos
	if p.peek() == '0' && p.pos+1 < len(p.src) {
		var base int
		switch p.src[p.pos+1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			p.pos += 2
			digits := p.digits(func(c byte) bool { return isDigitIn(c, base) })
			if digits == "" {
				return nil, p.errorf("malformed base-%d integer", base)
			}
			n, err := strconv.ParseInt(digits, base, 64)
			if err != nil {
				return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("integer out of range: %s", p.src[start:p.pos])}
			}
			return n, p.noSuffix()
		}
	}

	intPart := p.digits(isDecimal)
	isFloat := false
	var b strings.Builder
	b.WriteString(intPart)
	if p.peek() == '.' {
		isFloat = true
		p.pos++
		b.WriteByte('.')
		b.WriteString(p.digits(isDecimal))
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		isFloat = true
		p.pos++
		b.WriteByte('e')
		if c := p.peek(); c == '+' || c == '-' {
			b.WriteByte(c)
			p.pos++
		}
		exp := p.digits(isDecimal)
		if exp == "" {
			return nil, p.errorf("malformed exponent")
		}
		b.WriteString(exp)
	}
	text := b.String()
	if text == "" || text == "." {
		return nil, &SyntaxError{Offset: start, Msg: "malformed number"}
	}

	if !isFloat {
		if len(intPart) > 1 && intPart[0] == '0' && strings.Trim(intPart, "0") != "" {
			return nil, &SyntaxError{Offset: start, Msg: "leading zeros in decimal integer"}
		}
		n, err := strconv.ParseInt(intPart, 10, 64)
		if err == nil {
			return n, p.noSuffix()
		}
		if !errors.Is(err, strconv.ErrRange) {
			return nil, &SyntaxError{Offset: start, Msg: err.Error()}
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, &SyntaxError{Offset: start, Msg: err.Error()}
	}
	return f, p.noSuffix()
}

// noSuffix rejects complex literals and identifiers glued to a number.
func (p *parser) noSuffix() error {
	if p.eof() {
		return nil
	}
	if r := p.peekRune(); isLetter(r) || unicode.IsDigit(r) {
		return p.errorf("unexpected %q after number", r)
	}
	return nil
}

// digits consumes a run of digits, allowing single underscores between them.
func (p *parser) digits(ok func(byte) bool) string {
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if ok(c) {
			b.WriteByte(c)
			p.pos++
			continue
		}
		if c == '_' && b.Len() > 0 && p.pos+1 < len(p.src) && ok(p.src[p.pos+1]) {
			p.pos++
			continue
		}
		break
	}
	return b.String()
}

func isDecimal(c byte) bool { return c >= '0' && c <= '9' }

func isDigitIn(c byte, base int) bool {
	switch base {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return c >= '0' && c <= '7'
	default:
		return isDecimal(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
}

// stringValue parses one or more adjacent string literals and concatenates them.
func (p *parser) stringValue() (any, error) {
	var b strings.Builder
	for {
		s, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		b.WriteString(s)

		save := p.pos
		p.skipSpace()
		c := p.peek()
		if c == '"' || c == '\'' {
			continue
		}
		if isLetter(p.peekRune()) {
			start := p.pos
			w := p.word()
			if q := p.peek(); (q == '"' || q == '\'') && isStringPrefix(w) {
				p.pos = start
				continue
			}
		}
		p.pos = save
		return b.String(), nil
	}
}

func (p *parser) stringLiteral() (string, error) {
	raw := false
	for isLetter(p.peekRune()) {
		switch p.peek() {
		case 'r', 'R':
			raw = true
		case 'u', 'U', 'b', 'B':
		default:
			return "", p.errorf("invalid string prefix")
		}
		p.pos++
	}

	start := p.pos
	quote := p.peek()
	delim := string(quote)
	if strings.HasPrefix(p.src[p.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)
	triple := len(delim) == 3

	var b strings.Builder
	for {
		if p.eof() {
			return "", &SyntaxError{Offset: start, Msg: "unterminated string"}
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			p.pos += len(delim)
			return b.String(), nil
		}
		c := p.peek()
		if c == '\n' && !triple {
			return "", &SyntaxError{Offset: start, Msg: "unterminated string"}
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
			continue
		}
		if raw {
			// a raw string keeps the backslash, and it still escapes the quote
			b.WriteByte('\\')
			p.pos++
			if !p.eof() {
				r, size := utf8.DecodeRuneInString(p.src[p.pos:])
				b.WriteRune(r)
				p.pos += size
			}
			continue
		}
		if err := p.escape(&b); err != nil {
			return "", err
		}
	}
}

func (p *parser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.peek()
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; i++ {
			n = n*8 + int(p.peek()-'0')
			p.pos++
		}
		b.WriteRune(rune(n))
	default:
		// unknown escapes are kept verbatim
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) hexEscape(b *strings.Builder, n int) error {
	if p.pos+n > len(p.src) {
		return p.errorf("truncated escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+n])
	}
	if v > unicode.MaxRune {
		return p.errorf("escape out of unicode range")
	}
	p.pos += n
	b.WriteRune(rune(v))
	return nil
}
