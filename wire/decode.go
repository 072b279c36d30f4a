package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tinylib/msgp/msgp"
)

// Decode parses a response payload into a Value.
//
// The payload is an array whose first element is the type tag. Decoding is
// all-or-nothing: any malformed input returns a *DecodeError and no value.
// An "error" tagged response returns a *ServerError carrying the server message.
func Decode(payload []byte) (Value, error) {
	n, rest, err := msgp.ReadArrayHeaderBytes(payload)
	if err != nil {
		return nil, &DecodeError{Message: "invalid array header", Err: err}
	}
	if n < 1 {
		return nil, &DecodeError{Message: "invalid array length"}
	}

	tag, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return nil, &DecodeError{Message: "invalid type tag", Err: err}
	}

	switch Tag(tag) {
	case TagString:
		s, _, err := msgp.ReadStringBytes(rest)
		if err != nil {
			return nil, &DecodeError{Message: "invalid string value", Err: err}
		}
		return Str(s), nil

	case TagError:
		s, _, err := msgp.ReadStringBytes(rest)
		if err != nil {
			return nil, &DecodeError{Message: "invalid error message", Err: err}
		}
		return nil, &ServerError{Message: s}

	case TagBool:
		b, _, err := msgp.ReadBoolBytes(rest)
		if err != nil {
			return nil, &DecodeError{Message: "invalid bool value", Err: err}
		}
		return Bool(b), nil

	case TagInt:
		i, _, err := msgp.ReadInt64Bytes(rest)
		if err != nil {
			return nil, &DecodeError{Message: "invalid int value", Err: err}
		}
		return Int(i), nil

	case TagFloat:
		f, _, err := msgp.ReadFloat64Bytes(rest)
		if err != nil {
			return nil, &DecodeError{Message: "invalid float value", Err: err}
		}
		return Float(f), nil

	case TagNull:
		return Nil{}, nil

	case TagU8V, TagS8V:
		blob, err := readBlob(rest, 1)
		if err != nil {
			return nil, err
		}
		// Copy out of the response buffer so the value owns its bytes.
		return ByteVector(append([]byte(nil), blob...)), nil

	case TagU16V:
		blob, err := readBlob(rest, 2)
		if err != nil {
			return nil, err
		}
		v := make(U16Vector, len(blob)/2)
		for i := range v {
			v[i] = binary.LittleEndian.Uint16(blob[i*2:])
		}
		return v, nil

	case TagS16V:
		blob, err := readBlob(rest, 2)
		if err != nil {
			return nil, err
		}
		v := make(S16Vector, len(blob)/2)
		for i := range v {
			v[i] = int16(binary.LittleEndian.Uint16(blob[i*2:]))
		}
		return v, nil

	case TagU32V:
		blob, err := readBlob(rest, 4)
		if err != nil {
			return nil, err
		}
		v := make(U32Vector, len(blob)/4)
		for i := range v {
			v[i] = binary.LittleEndian.Uint32(blob[i*4:])
		}
		return v, nil

	case TagS32V:
		blob, err := readBlob(rest, 4)
		if err != nil {
			return nil, err
		}
		v := make(S32Vector, len(blob)/4)
		for i := range v {
			v[i] = int32(binary.LittleEndian.Uint32(blob[i*4:]))
		}
		return v, nil

	case TagC64V:
		blob, err := readBlob(rest, 8)
		if err != nil {
			return nil, err
		}
		v := make(ComplexVector, len(blob)/8)
		for i := range v {
			re := math.Float32frombits(binary.LittleEndian.Uint32(blob[i*8:]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(blob[i*8+4:]))
			v[i] = complex(re, im)
		}
		return v, nil

	case TagList:
		return decodeList(rest, n-1)

	default:
		return nil, &DecodeError{Message: fmt.Sprintf("unknown type tag %q", tag)}
	}
}

// readBlob reads one binary blob whose length must be a multiple of width.
func readBlob(b []byte, width int) ([]byte, error) {
	blob, _, err := msgp.ReadBytesZC(b)
	if err != nil {
		return nil, &DecodeError{Message: "invalid binary value", Err: err}
	}
	if len(blob)%width != 0 {
		return nil, &DecodeError{Message: fmt.Sprintf("binary value of %d bytes is not a multiple of %d", len(blob), width)}
	}
	return blob, nil
}

// decodeList reads count strings and returns them in reverse wire order.
func decodeList(b []byte, count uint32) (Value, error) {
	// Every item takes at least one byte.
	if uint64(count) > uint64(len(b)) {
		return nil, &DecodeError{Message: "truncated list", Err: msgp.ErrShortBytes}
	}

	list := make(List, count)
	for i := int(count) - 1; i >= 0; i-- {
		s, rest, err := msgp.ReadStringBytes(b)
		if err != nil {
			return nil, &DecodeError{Message: "invalid list item", Err: err}
		}
		list[i] = Str(s)
		b = rest
	}
	return list, nil
}
