// Package types names element types with stable string tags and provides
// visitors and serializers over the closed set of scalar types used by graph
// properties.
//
// Two streams may be connected only when their tags match; tag equality is
// the sole runtime type check in the graph.
package types

import "reflect"

// Tagged is implemented by user element types that flow through streams.
// The returned tag must be stable and distinct from the built-in tags.
type Tagged interface {
	TypeTag() string
}

// Built-in tags. A good default for other types would be the reflected type
// name, but that string is not guaranteed to stay stable across refactors,
// so user types should implement Tagged.
const (
	TagInt    = "int"
	TagInt64  = "int64"
	TagBool   = "bool"
	TagFloat  = "float"
	TagDouble = "double"
	TagString = "string"
)

// Name returns the tag naming the element type T.
func Name[T any]() string {
	var zero T
	switch any(zero).(type) {
	case int:
		return TagInt
	case int64:
		return TagInt64
	case bool:
		return TagBool
	case float32:
		return TagFloat
	case float64:
		return TagDouble
	case string:
		return TagString
	}
	if tagged, ok := any(zero).(Tagged); ok {
		return tagged.TypeTag()
	}
	return reflect.TypeOf(&zero).Elem().String()
}
