package tool

import (
	"errors"
	"fmt"
)

// ErrInvalidParams marks failures caused by the caller's parameters rather
// than the tool itself.
var ErrInvalidParams = errors.New("invalid parameters")

// ParamError describes a parameter that is missing, unexpected or of the
// wrong shape.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Param == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Param, e.Reason)
}

func (e *ParamError) Is(target error) bool { return target == ErrInvalidParams }

// IsParamError reports whether err was caused by bad parameters.
func IsParamError(err error) bool {
	return errors.Is(err, ErrInvalidParams)
}
