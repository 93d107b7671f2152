package param

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Float(t *testing.T) {
	tests := []struct {
		in   string
		want float32
		ok   bool
	}{
		{"1.5", 1.5, true},
		{"1.5f", 1.5, true},
		{"2.25F", 2.25, true},
		{"-3", -3, true},
		{"1e3", 1000, true},
		{"Inf", float32(math.Inf(1)), true},
		{"-inf", float32(math.Inf(-1)), true},
		{"+Infinity", float32(math.Inf(1)), true},
		{"", 0, false},
		{"f", 0, false},
		{"one", 0, false},
		{"1.5ff", 0, false},
	}
	for _, tt := range tests {
		got, ok := parse[float32](tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestParse_IntRange(t *testing.T) {
	_, ok := parse[int8]("127")
	assert.True(t, ok)

	_, ok = parse[int8]("128")
	assert.False(t, ok, "overflow must not parse")

	_, ok = parse[uint]("-1")
	assert.False(t, ok)

	_, ok = parse[int]("2.5")
	assert.False(t, ok)
}

func TestParse_Bool(t *testing.T) {
	v, ok := parse[bool]("true")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = parse[bool]("false")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = parse[bool]("yes")
	assert.False(t, ok)
}

type level string

func TestParse_NamedType(t *testing.T) {
	v, ok := parse[level]("debug")
	assert.True(t, ok)
	assert.Equal(t, level("debug"), v)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.4", format(float32(1.4)))
	assert.Equal(t, "0.1", format(0.1))
	assert.Equal(t, "42", format(42))
	assert.Equal(t, "true", format(true))
	assert.Equal(t, "text", format("text"))
}
