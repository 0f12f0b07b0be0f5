package pack

// Element is a named, ordered array of values of a single type.
type Element struct {
	Name   string
	Type   ValueType
	Values []Value
}

// NewElement builds a scalar element (single value).
func NewElement(name string, v Value) Element {
	return Element{Name: name, Type: v.Type, Values: []Value{v}}
}

// NewArrayElement builds an element carrying multiple values of the same type.
// Callers are responsible for ensuring all values share a type; the encoder
// writes the element's declared Type as the wire type tag but encodes each
// value's bytes according to that value's own tag.
func NewArrayElement(name string, t ValueType, values []Value) Element {
	return Element{Name: name, Type: t, Values: values}
}
