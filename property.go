package mediagraph

import (
	"github.com/jpilet/mediagraph/types"
)

// NamedProperty is a named value of a type unknown at compile time. The value
// is accessed through visitors, which keeps serialization independent from
// the concrete type.
type NamedProperty interface {
	// Name returns the property name.
	Name() string

	// TypeName returns the tag describing the property type.
	TypeName() string

	// Writable reports whether the property accepts writes.
	Writable() bool

	// Apply runs a read-only visitor on the current value.
	Apply(visitor types.ConstVisitor) bool

	// ApplyMut runs a visitor that may replace the value. Returns false on a
	// read-only property.
	ApplyMut(visitor types.Visitor) bool
}

// PropertyValueString returns the property value as a string.
func PropertyValueString(p NamedProperty) string {
	var serializer types.StringSerializer
	p.Apply(&serializer)
	return serializer.Value()
}

// SetPropertyFromString parses serialized and stores it in the property.
// Returns true on success.
func SetPropertyFromString(p NamedProperty, serialized string) bool {
	return p.ApplyMut(types.NewStringDeserializer(serialized))
}

// PropertySerialized returns the property value in its binary form.
func PropertySerialized(p NamedProperty) []byte {
	var serializer types.BinarySerializer
	p.Apply(&serializer)
	return serializer.Value()
}

// SetPropertySerialized decodes serialized and stores it in the property.
// On failure the property value is not modified.
func SetPropertySerialized(p NamedProperty, serialized []byte) bool {
	return p.ApplyMut(types.NewBinaryDeserializer(serialized))
}

type getProperty[T types.Scalar] struct {
	name string
	get  func() T
}

func (p *getProperty[T]) Name() string     { return p.name }
func (p *getProperty[T]) TypeName() string { return types.Name[T]() }
func (p *getProperty[T]) Writable() bool   { return false }

func (p *getProperty[T]) Apply(visitor types.ConstVisitor) bool {
	return types.Visit(visitor, p.get())
}

func (p *getProperty[T]) ApplyMut(types.Visitor) bool { return false }

type getSetProperty[T types.Scalar] struct {
	name string
	get  func() T
	set  func(T) bool
}

func (p *getSetProperty[T]) Name() string     { return p.name }
func (p *getSetProperty[T]) TypeName() string { return types.Name[T]() }
func (p *getSetProperty[T]) Writable() bool   { return true }

func (p *getSetProperty[T]) Apply(visitor types.ConstVisitor) bool {
	return types.Visit(visitor, p.get())
}

func (p *getSetProperty[T]) ApplyMut(visitor types.Visitor) bool {
	value := p.get()
	if !types.VisitMut(visitor, &value) {
		return false
	}
	if value != p.get() {
		return p.set(value)
	}
	return true
}

// PropertyList is embedded by every object exposing properties: graphs,
// nodes, streams, and pins.
type PropertyList struct {
	properties []NamedProperty
}

// NumProperties returns the number of properties exposed by the object.
func (pl *PropertyList) NumProperties() int { return len(pl.properties) }

// Property returns property number index, or nil if out of range.
func (pl *PropertyList) Property(index int) NamedProperty {
	if index < 0 || index >= len(pl.properties) {
		return nil
	}
	return pl.properties[index]
}

// PropertyByName returns the property with the given name, or nil.
func (pl *PropertyList) PropertyByName(name string) NamedProperty {
	for _, p := range pl.properties {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Properties returns the list itself, letting any embedder expose it through
// an interface.
func (pl *PropertyList) Properties() *PropertyList { return pl }

// AddGetProperty declares a read-only property backed by a get function.
func AddGetProperty[T types.Scalar](pl *PropertyList, name string, get func() T) {
	pl.properties = append(pl.properties, &getProperty[T]{name: name, get: get})
}

// AddGetSetProperty declares a property backed by get and set functions. The
// set function may reject a value by returning false.
func AddGetSetProperty[T types.Scalar](pl *PropertyList, name string, get func() T, set func(T) bool) {
	pl.properties = append(pl.properties, &getSetProperty[T]{name: name, get: get, set: set})
}
