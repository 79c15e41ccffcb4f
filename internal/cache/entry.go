package cache

import "reflect"

// Entry is a cached value and the type tag it was stored under.
type Entry struct {
	Tag   string
	Value any
}

// TypeTag returns the tag identifying T in cache entries.
func TypeTag[T any]() string {
	return reflect.TypeFor[T]().String()
}
