// Package reflectx contains the function reflection helpers used to turn Go
// functions into tools.
package reflectx

import (
	"context"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()

	// closures are compiled as outer.func1, outer.func1.2 ...
	closureSegment = regexp.MustCompile(`^(func)?\d+$`)
)

// IsFunction reports whether fn is a non-nil function value.
func IsFunction(fn any) bool {
	if fn == nil {
		return false
	}
	return reflect.TypeOf(fn).Kind() == reflect.Func
}

// FunctionName returns the bare name of a named function, method value or
// method expression. Anonymous functions yield the empty string.
func FunctionName(fn any) string {
	if !IsFunction(fn) {
		return ""
	}
	val := reflect.ValueOf(fn)
	if typ := val.Type(); typ.Name() != "" {
		return typ.Name()
	}

	rf := runtime.FuncForPC(val.Pointer())
	if rf == nil {
		return ""
	}
	name := rf.Name()
	if slash := strings.LastIndex(name, "/"); slash >= 0 {
		name = name[slash+1:]
	}
	name = strings.TrimSuffix(name, "-fm")

	segments := strings.Split(name, ".")
	last := segments[len(segments)-1]
	if len(segments) < 2 || closureSegment.MatchString(last) {
		return ""
	}
	return last
}

// IsContext reports whether t is context.Context.
func IsContext(t reflect.Type) bool {
	return t == contextType
}

// IsError reports whether t is error or a concrete type implementing it.
func IsError(t reflect.Type) bool {
	return t == errorType || (t.Kind() != reflect.Interface && t.Implements(errorType))
}

// ReturnsError reports whether the last result of the function type t is an
// error.
func ReturnsError(t reflect.Type) bool {
	if t.Kind() != reflect.Func || t.NumOut() == 0 {
		return false
	}
	return IsError(t.Out(t.NumOut() - 1))
}
