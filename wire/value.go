package wire

import "fmt"

// Value is a decoded response. Exactly one concrete type is produced per decode:
// Int, Float, Bool, Str, Nil, ByteVector, U16Vector, S16Vector, U32Vector,
// S32Vector, ComplexVector or List.
//
// Server failures are not values; they are returned as *ServerError.
type Value interface {
	// Tag returns the wire tag the value is encoded with.
	Tag() Tag
	isValue()
}

// ByteVector holds the raw bytes of both u8v and s8v responses, which are not
// reinterpreted. Its tag is always u8v: an s8v response re-encodes as u8v.
type ByteVector []byte

type (
	Int           int64
	Float         float64
	Bool          bool
	Str           string
	Nil           struct{}
	U16Vector     []uint16
	S16Vector     []int16
	U32Vector     []uint32
	S32Vector     []int32
	ComplexVector []complex64
	List          []Value
)

func (Int) Tag() Tag           { return TagInt }
func (Float) Tag() Tag         { return TagFloat }
func (Bool) Tag() Tag          { return TagBool }
func (Str) Tag() Tag           { return TagString }
func (Nil) Tag() Tag           { return TagNull }
func (ByteVector) Tag() Tag    { return TagU8V }
func (U16Vector) Tag() Tag     { return TagU16V }
func (S16Vector) Tag() Tag     { return TagS16V }
func (U32Vector) Tag() Tag     { return TagU32V }
func (S32Vector) Tag() Tag     { return TagS32V }
func (ComplexVector) Tag() Tag { return TagC64V }
func (List) Tag() Tag          { return TagList }

func (Int) isValue()           {}
func (Float) isValue()         {}
func (Bool) isValue()          {}
func (Str) isValue()           {}
func (Nil) isValue()           {}
func (ByteVector) isValue()    {}
func (U16Vector) isValue()     {}
func (S16Vector) isValue()     {}
func (U32Vector) isValue()     {}
func (S32Vector) isValue()     {}
func (ComplexVector) isValue() {}
func (List) isValue()          {}

// Format renders a value for humans (CLI output, logs).
func Format(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<none>"
	case Nil:
		return "null"
	case Str:
		return string(v)
	case ByteVector:
		return fmt.Sprintf("u8v[%d] %v", len(v), []byte(v))
	case U16Vector:
		return fmt.Sprintf("u16v[%d] %v", len(v), []uint16(v))
	case S16Vector:
		return fmt.Sprintf("s16v[%d] %v", len(v), []int16(v))
	case U32Vector:
		return fmt.Sprintf("u32v[%d] %v", len(v), []uint32(v))
	case S32Vector:
		return fmt.Sprintf("s32v[%d] %v", len(v), []int32(v))
	case ComplexVector:
		return fmt.Sprintf("c64v[%d] %v", len(v), []complex64(v))
	case List:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = Format(item)
		}
		return fmt.Sprintf("%q", items)
	default:
		return fmt.Sprintf("%v", v)
	}
}
