package toolcall

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Invocation is one parsed tool call.
type Invocation struct {
	Name       string
	Parameters map[string]any
	// Directive is the matched directive text.
	Directive string
}

// Arguments returns the parameters as canonical JSON: object keys sorted at
// every level, numbers in their shortest form.
func (i Invocation) Arguments() (string, error) {
	if len(i.Parameters) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(i.Parameters)
	if err != nil {
		return "", fmt.Errorf("encode parameters for %s: %w", i.Name, err)
	}
	return string(b), nil
}

// Signature is the identity of a call used for repeat detection. Two calls
// have equal signatures when the names match and the parameters are equal by
// value, regardless of key order or quoting in the original literal.
type Signature struct {
	Name   string
	Params string
}

func (s Signature) IsZero() bool { return s == Signature{} }

func (s Signature) String() string { return s.Name + s.Params }

// Signature computes the call's repeat-detection key.
func (i Invocation) Signature() Signature {
	args, err := i.Arguments()
	if err != nil {
		// parameters come from the literal parser and always encode, keep a
		// stable fallback regardless
		args = fmt.Sprintf("%v", i.Parameters)
	}
	return Signature{Name: i.Name, Params: args}
}
