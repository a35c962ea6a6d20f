// Package registry provides a concurrent name-keyed registry.
package registry

import (
	"slices"

	"github.com/alphadose/haxmap"
)

// Registry maps names to values. All methods are safe for concurrent use;
// reads never block.
type Registry[T any] interface {
	Get(name string) (T, bool)
	// Add stores value under name and reports whether it replaced an
	// existing entry.
	Add(name string, value T) (replaced bool)
	GetOrAdd(name string, value func() T) (T, bool)
	Del(name string)
	Len() int
	// Names returns the registered names in lexical order.
	Names() []string
	// Values returns the registered values ordered by name.
	Values() []T
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) bool {
	_, loaded := r.values.Get(name)
	r.values.Set(name, value)
	return loaded
}

func (r *registry[T]) GetOrAdd(name string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(name, valueFn)
}

func (r *registry[T]) Del(name string) {
	r.values.Del(name)
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}

func (r *registry[T]) Names() []string {
	names := make([]string, 0, r.values.Len())
	r.values.ForEach(func(k string, _ T) bool {
		names = append(names, k)
		return true
	})
	slices.Sort(names)
	return names
}

func (r *registry[T]) Values() []T {
	names := r.Names()
	values := make([]T, 0, len(names))
	for _, n := range names {
		if v, ok := r.values.Get(n); ok {
			values = append(values, v)
		}
	}
	return values
}
