package pack

// ValueType is the wire type tag for a PACK element's values.
type ValueType uint32

const (
	TypeInt32   ValueType = 0
	TypeData    ValueType = 1
	TypeStr     ValueType = 2
	TypeWideStr ValueType = 3
	TypeInt64   ValueType = 4
)

func (t ValueType) String() string {
	switch t {
	case TypeInt32:
		return "Int32"
	case TypeData:
		return "Data"
	case TypeStr:
		return "Str"
	case TypeWideStr:
		return "WideStr"
	case TypeInt64:
		return "Int64"
	default:
		return "Unknown"
	}
}

// Value is the tagged union of PACK scalar values. Exactly one field is
// meaningful, selected by Type.
type Value struct {
	Type    ValueType
	Int32   uint32
	Int64   uint64
	Data    []byte
	Str     string
	WideStr string
}

func Int32Value(v uint32) Value   { return Value{Type: TypeInt32, Int32: v} }
func Int64Value(v uint64) Value   { return Value{Type: TypeInt64, Int64: v} }
func DataValue(v []byte) Value    { return Value{Type: TypeData, Data: v} }
func StrValue(v string) Value     { return Value{Type: TypeStr, Str: v} }
func WideStrValue(v string) Value { return Value{Type: TypeWideStr, WideStr: v} }
