// Package pack implements the SoftEther "PACK" binary serialization format:
// named typed records with length-prefixed, 4-byte-aligned fields,
// big-endian integers, and UTF-16LE wide strings.
package pack

import (
	"encoding/binary"
	"unicode/utf8"

	"vpnse/application"
	verr "vpnse/errors"
)

const (
	maxElements      = 10_000
	maxValueLen      = 10_000_000
	maxElementNameLen = 1_000
)

// Container is an ordered sequence of elements. Lookup by name returns the
// first match; order is preserved on re-encode.
type Container struct {
	Elements []Element
}

// Get returns the first element with the given name, or nil if absent.
func (c *Container) Get(name string) *Element {
	for i := range c.Elements {
		if c.Elements[i].Name == name {
			return &c.Elements[i]
		}
	}
	return nil
}

// Add appends an element, preserving insertion order.
func (c *Container) Add(e Element) {
	c.Elements = append(c.Elements, e)
}

// AddInt32 appends a scalar Int32 element.
func (c *Container) AddInt32(name string, v uint32) { c.Add(NewElement(name, Int32Value(v))) }

// AddInt64 appends a scalar Int64 element.
func (c *Container) AddInt64(name string, v uint64) { c.Add(NewElement(name, Int64Value(v))) }

// AddData appends a scalar Data element.
func (c *Container) AddData(name string, v []byte) { c.Add(NewElement(name, DataValue(v))) }

// AddStr appends a scalar Str element.
func (c *Container) AddStr(name string, v string) { c.Add(NewElement(name, StrValue(v))) }

// AddWideStr appends a scalar WideStr element.
func (c *Container) AddWideStr(name string, v string) { c.Add(NewElement(name, WideStrValue(v))) }

// GetInt returns the first Int32 value of the named element.
func (c *Container) GetInt(name string) (uint32, bool) {
	e := c.Get(name)
	if e == nil || len(e.Values) == 0 {
		return 0, false
	}
	v := e.Values[0]
	if v.Type != TypeInt32 {
		return 0, false
	}
	return v.Int32, true
}

// GetInt64 returns the first Int64 value of the named element.
func (c *Container) GetInt64(name string) (uint64, bool) {
	e := c.Get(name)
	if e == nil || len(e.Values) == 0 {
		return 0, false
	}
	v := e.Values[0]
	if v.Type != TypeInt64 {
		return 0, false
	}
	return v.Int64, true
}

// GetData returns the first Data value of the named element.
func (c *Container) GetData(name string) ([]byte, bool) {
	e := c.Get(name)
	if e == nil || len(e.Values) == 0 {
		return nil, false
	}
	v := e.Values[0]
	if v.Type != TypeData {
		return nil, false
	}
	return v.Data, true
}

// GetStr returns the first string-like value (Str or WideStr) of the named
// element, matching the spec's accessor contract.
func (c *Container) GetStr(name string) (string, bool) {
	e := c.Get(name)
	if e == nil || len(e.Values) == 0 {
		return "", false
	}
	switch v := e.Values[0]; v.Type {
	case TypeStr:
		return v.Str, true
	case TypeWideStr:
		return v.WideStr, true
	default:
		return "", false
	}
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// Encode serializes the container deterministically: element and value
// order are preserved, and alignment padding bytes are zero.
func (c *Container) Encode() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(c.Elements)))

	for _, e := range c.Elements {
		eb, err := encodeElement(e)
		if err != nil {
			return nil, err
		}
		buf = append(buf, eb...)
	}
	return buf, nil
}

func encodeElement(e Element) ([]byte, error) {
	nameBytes := []byte(e.Name)
	nameLenInclNul := uint32(len(nameBytes)) + 1

	var out []byte
	lenField := make([]byte, 4)
	binary.BigEndian.PutUint32(lenField, nameLenInclNul)
	out = append(out, lenField...)
	out = append(out, nameBytes...)

	namePad := align4(nameLenInclNul) - (nameLenInclNul - 1)
	out = append(out, make([]byte, namePad)...)

	typeField := make([]byte, 4)
	binary.BigEndian.PutUint32(typeField, uint32(e.Type))
	out = append(out, typeField...)

	numValuesField := make([]byte, 4)
	binary.BigEndian.PutUint32(numValuesField, uint32(len(e.Values)))
	out = append(out, numValuesField...)

	for _, v := range e.Values {
		vb, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		lenField := make([]byte, 4)
		binary.BigEndian.PutUint32(lenField, uint32(len(vb)))
		out = append(out, lenField...)
		out = append(out, vb...)

		pad := align4(uint32(len(vb))) - uint32(len(vb))
		out = append(out, make([]byte, pad)...)
	}
	return out, nil
}

func encodeValue(v Value) ([]byte, error) {
	switch v.Type {
	case TypeInt32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v.Int32)
		return b, nil
	case TypeInt64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v.Int64)
		return b, nil
	case TypeData:
		return v.Data, nil
	case TypeStr:
		return []byte(v.Str), nil
	case TypeWideStr:
		return encodeWideStr(v.WideStr)
	default:
		return nil, verr.New(verr.Protocol, "unknown value type %d", v.Type)
	}
}

// decoder walks a byte slice, tracking its read position explicitly so
// bounds errors are diagnosable rather than panics.
type decoder struct {
	data []byte
	pos  int
	log  application.Logger
}

func (d *decoder) remaining() int { return len(d.data) - d.pos }

func (d *decoder) readU32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, verr.New(verr.Protocol, "not enough data for uint32 at offset %d", d.pos)
	}
	v := binary.BigEndian.Uint32(d.data[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *decoder) readBytes(n uint32) ([]byte, error) {
	if uint32(d.remaining()) < n {
		return nil, verr.New(verr.Protocol, "not enough data: need %d, have %d", n, d.remaining())
	}
	b := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, nil
}

func (d *decoder) skip(n uint32) error {
	if uint32(d.remaining()) < n {
		return verr.New(verr.Protocol, "not enough data to skip %d bytes", n)
	}
	d.pos += int(n)
	return nil
}

// Decode parses a PACK container from the wire. Per the decoder contract:
// rejects num_elements > 10_000 and any single value length > 10_000_000;
// an unrecognized type_tag is tolerated as Data (with a logged warning);
// if element k > 0 fails to parse, the elements parsed so far (0..k-1) are
// returned with the failure logged; if element 0 fails, the whole decode
// fails (it is consistently the server's status/error record).
func Decode(data []byte, logger application.Logger) (*Container, error) {
	d := &decoder{data: data, log: logger}

	numElements, err := d.readU32()
	if err != nil {
		return nil, verr.New(verr.Protocol, "PACK data too short for element count")
	}
	if numElements > maxElements {
		return nil, verr.New(verr.Protocol, "element count %d exceeds limit %d", numElements, maxElements)
	}

	c := &Container{Elements: make([]Element, 0, numElements)}
	for i := uint32(0); i < numElements; i++ {
		e, err := decodeElement(d)
		if err != nil {
			if logger != nil {
				logger.Printf("pack: failed to decode element %d of %d: %v", i, numElements, err)
			}
			if i == 0 {
				return nil, err
			}
			if logger != nil {
				logger.Printf("pack: recovered partial container with %d of %d elements", i, numElements)
			}
			return c, nil
		}
		c.Elements = append(c.Elements, e)
	}
	return c, nil
}

func decodeElement(d *decoder) (Element, error) {
	nameLenInclNul, err := d.readU32()
	if err != nil {
		return Element{}, err
	}
	if nameLenInclNul == 0 {
		return Element{}, verr.New(verr.Protocol, "element name length is zero")
	}
	if nameLenInclNul > maxElementNameLen {
		return Element{}, verr.New(verr.Protocol, "element name length %d exceeds limit", nameLenInclNul)
	}

	nameLen := nameLenInclNul - 1
	nameBytes, err := d.readBytes(nameLen)
	if err != nil {
		return Element{}, err
	}
	name := string(nameBytes)

	namePad := align4(nameLenInclNul) - nameLen
	if err := d.skip(namePad); err != nil {
		return Element{}, err
	}

	typeTagRaw, err := d.readU32()
	if err != nil {
		return Element{}, err
	}

	elemType, tolerated := normalizeType(typeTagRaw)
	if tolerated && d.log != nil {
		d.log.Printf("pack: element %q has unknown type tag %d, treating as Data", name, typeTagRaw)
	}

	numValues, err := d.readU32()
	if err != nil {
		return Element{}, err
	}

	values := make([]Value, 0, numValues)
	for j := uint32(0); j < numValues; j++ {
		v, err := decodeValue(d, elemType)
		if err != nil {
			return Element{}, verr.New(verr.Protocol, "element %q value %d: %v", name, j, err)
		}
		values = append(values, v)
	}

	return Element{Name: name, Type: elemType, Values: values}, nil
}

// normalizeType reports the effective ValueType for a raw wire tag, and
// whether the tag had to be tolerated as Data because it fell outside the
// known {0..4} range.
func normalizeType(raw uint32) (ValueType, bool) {
	switch raw {
	case uint32(TypeInt32), uint32(TypeData), uint32(TypeStr), uint32(TypeWideStr), uint32(TypeInt64):
		return ValueType(raw), false
	default:
		return TypeData, true
	}
}

func decodeValue(d *decoder, t ValueType) (Value, error) {
	valueLen, err := d.readU32()
	if err != nil {
		return Value{}, err
	}
	if valueLen > maxValueLen {
		return Value{}, verr.New(verr.Protocol, "value length %d exceeds limit %d", valueLen, maxValueLen)
	}

	raw, err := d.readBytes(valueLen)
	if err != nil {
		return Value{}, err
	}
	// Copy out: the backing array belongs to the decoder's input slice.
	b := append([]byte(nil), raw...)

	pad := align4(valueLen) - valueLen
	if err := d.skip(pad); err != nil {
		return Value{}, err
	}

	switch t {
	case TypeInt32:
		if len(b) != 4 {
			return Value{}, verr.New(verr.Protocol, "Int32 payload length %d, want 4", len(b))
		}
		return Int32Value(binary.BigEndian.Uint32(b)), nil
	case TypeInt64:
		if len(b) != 8 {
			return Value{}, verr.New(verr.Protocol, "Int64 payload length %d, want 8", len(b))
		}
		return Int64Value(binary.BigEndian.Uint64(b)), nil
	case TypeData:
		return DataValue(b), nil
	case TypeStr:
		if !utf8.Valid(b) {
			return Value{}, verr.New(verr.Protocol, "invalid UTF-8 in Str value")
		}
		return StrValue(string(b)), nil
	case TypeWideStr:
		s, err := decodeWideStr(b)
		if err != nil {
			return Value{}, err
		}
		return WideStrValue(s), nil
	default:
		return DataValue(b), nil
	}
}
