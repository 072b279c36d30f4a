package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"
)

func TestAppendEnvelope_Layout(t *testing.T) {
	frames := [][]byte{[]byte("one"), []byte("two")}

	env, err := AppendEnvelope(nil, frames)
	require.NoError(t, err)

	want := []byte("rsp")
	want = msgp.AppendArrayHeader(want, 2)
	want = msgp.AppendBytes(want, []byte("one"))
	want = msgp.AppendBytes(want, []byte("two"))
	assert.Equal(t, want, env)
}

func TestAppendEnvelope_Empty(t *testing.T) {
	_, err := AppendEnvelope(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestParseEnvelope_RoundTrip(t *testing.T) {
	enc := NewEncoder("s", Options{})

	var frames [][]byte
	for i := range 5 {
		f, err := enc.Pack([]byte{byte(i), byte(i + 1)})
		require.NoError(t, err)
		frames = append(frames, f)
	}

	env, err := AppendEnvelope(nil, frames)
	require.NoError(t, err)
	assert.True(t, IsEnvelope(env))

	got, err := ParseEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, frames, got)

	for i, f := range got {
		p, err := Parse(f)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i), byte(i + 1)}, p.Block)
	}
}

func TestParseEnvelope_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"no tag":        []byte("PING\x00"),
		"short":         []byte("rs"),
		"no header":     []byte("rsp"),
		"count too big": msgp.AppendArrayHeader([]byte("rsp"), 1000),
		"not binary":    msgp.AppendString(msgp.AppendArrayHeader([]byte("rsp"), 1), "x"),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope(data)
			assert.ErrorIs(t, err, ErrInvalidFrame)
		})
	}

	_, err := ParseEnvelope(msgp.AppendArrayHeader([]byte("rsp"), 0))
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestIsEnvelope(t *testing.T) {
	assert.True(t, IsEnvelope([]byte("rsp\x91")))
	assert.False(t, IsEnvelope([]byte("META 'x' bit_depth\x00")))
	assert.False(t, IsEnvelope(nil))
}
