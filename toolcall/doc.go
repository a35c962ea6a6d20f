// Package toolcall finds tool-call directives in model output.
//
// A directive has the shape
//
//	FUNCTION: <name> PARAMS: {<python dict literal>}
//
// where name matches [A-Za-z0-9_]+. A reply may carry any number of
// directives, surrounded by prose, on one line or several. Parse returns every
// directive whose parameter literal evaluates to a mapping; malformed
// directives are logged and skipped without affecting the others.
//
// Parameter literals are evaluated by pkg/pyliteral, which only understands
// literal displays, so model output can never execute code.
package toolcall
