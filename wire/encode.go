package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tinylib/msgp/msgp"
)

// AppendValue appends the response encoding of v to b.
// It is the inverse of Decode: list items are written in reverse order and must be Str.
func AppendValue(b []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case Str:
		b = appendHeader(b, TagString, 1)
		return msgp.AppendString(b, string(v)), nil
	case Bool:
		b = appendHeader(b, TagBool, 1)
		return msgp.AppendBool(b, bool(v)), nil
	case Int:
		b = appendHeader(b, TagInt, 1)
		return msgp.AppendInt64(b, int64(v)), nil
	case Float:
		b = appendHeader(b, TagFloat, 1)
		return msgp.AppendFloat64(b, float64(v)), nil
	case Nil:
		return appendHeader(b, TagNull, 0), nil
	case ByteVector:
		b = appendHeader(b, TagU8V, 1)
		return msgp.AppendBytes(b, v), nil
	case U16Vector:
		blob := make([]byte, 0, len(v)*2)
		for _, x := range v {
			blob = binary.LittleEndian.AppendUint16(blob, x)
		}
		return msgp.AppendBytes(appendHeader(b, TagU16V, 1), blob), nil
	case S16Vector:
		blob := make([]byte, 0, len(v)*2)
		for _, x := range v {
			blob = binary.LittleEndian.AppendUint16(blob, uint16(x))
		}
		return msgp.AppendBytes(appendHeader(b, TagS16V, 1), blob), nil
	case U32Vector:
		blob := make([]byte, 0, len(v)*4)
		for _, x := range v {
			blob = binary.LittleEndian.AppendUint32(blob, x)
		}
		return msgp.AppendBytes(appendHeader(b, TagU32V, 1), blob), nil
	case S32Vector:
		blob := make([]byte, 0, len(v)*4)
		for _, x := range v {
			blob = binary.LittleEndian.AppendUint32(blob, uint32(x))
		}
		return msgp.AppendBytes(appendHeader(b, TagS32V, 1), blob), nil
	case ComplexVector:
		blob := make([]byte, 0, len(v)*8)
		for _, x := range v {
			blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(real(x)))
			blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(imag(x)))
		}
		return msgp.AppendBytes(appendHeader(b, TagC64V, 1), blob), nil
	case List:
		b = appendHeader(b, TagList, uint32(len(v)))
		for i := len(v) - 1; i >= 0; i-- {
			s, ok := v[i].(Str)
			if !ok {
				return nil, fmt.Errorf("wire: list item %d is %s, only strings can be encoded", i, v[i].Tag())
			}
			b = msgp.AppendString(b, string(s))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("wire: cannot encode %T", v)
	}
}

// AppendError appends an "error" tagged response carrying msg.
func AppendError(b []byte, msg string) []byte {
	b = appendHeader(b, TagError, 1)
	return msgp.AppendString(b, msg)
}

func appendHeader(b []byte, tag Tag, elements uint32) []byte {
	b = msgp.AppendArrayHeader(b, elements+1)
	return msgp.AppendString(b, string(tag))
}
