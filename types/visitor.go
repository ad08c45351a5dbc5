package types

// ConstVisitor expresses a read-only operation over the scalar types a
// property can hold. The invoker does not need to know the concrete type at
// compile time; dispatch happens at runtime through the property's Apply.
//
// Serializers are the main ConstVisitor implementations.
type ConstVisitor interface {
	Int(value int) bool
	Int64(value int64) bool
	Bool(value bool) bool
	Float(value float32) bool
	Double(value float64) bool
	String(value string) bool
}

// Visitor is the mutating counterpart of ConstVisitor: each method may write
// through the pointer. Deserializers implement Visitor.
type Visitor interface {
	Int(value *int) bool
	Int64(value *int64) bool
	Bool(value *bool) bool
	Float(value *float32) bool
	Double(value *float64) bool
	String(value *string) bool
}

// Scalar constrains the set of types a property can hold.
type Scalar interface {
	int | int64 | bool | float32 | float64 | string
}

// Visit dispatches value to the matching ConstVisitor method.
func Visit[T Scalar](visitor ConstVisitor, value T) bool {
	switch v := any(value).(type) {
	case int:
		return visitor.Int(v)
	case int64:
		return visitor.Int64(v)
	case bool:
		return visitor.Bool(v)
	case float32:
		return visitor.Float(v)
	case float64:
		return visitor.Double(v)
	case string:
		return visitor.String(v)
	}
	return false
}

// VisitMut dispatches value to the matching Visitor method, letting the
// visitor write through the pointer.
func VisitMut[T Scalar](visitor Visitor, value *T) bool {
	switch v := any(value).(type) {
	case *int:
		return visitor.Int(v)
	case *int64:
		return visitor.Int64(v)
	case *bool:
		return visitor.Bool(v)
	case *float32:
		return visitor.Float(v)
	case *float64:
		return visitor.Double(v)
	case *string:
		return visitor.String(v)
	}
	return false
}
