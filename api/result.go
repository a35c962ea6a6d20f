package api

// Outcome is the settled result of a background turn: the value it produced
// or the error that stopped it.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Settle builds an outcome from a function's return values.
func Settle[T any](value T, err error) Outcome[T] {
	return Outcome[T]{Value: value, Err: err}
}

// Failed reports whether the turn ended with an error.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// Kind classifies the failure; it is KindUnknown for successful outcomes and
// unclassified errors.
func (o Outcome[T]) Kind() Kind { return KindOf(o.Err) }

// Unpack returns the value and error in call-site order.
func (o Outcome[T]) Unpack() (T, error) { return o.Value, o.Err }
