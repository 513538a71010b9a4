package sizeformat

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := map[string]int64{
		"0B":   0,
		"512B": 512,
		"2K":   2048,
		"10M":  10 << 20,
		"1G":   1 << 30,
		"3T":   3 << 40,
	}
	for in, want := range tests {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "10", "K", "10X", "-1K", "1.5M", "99999999999T"} {
		_, err := Parse(in)
		assert.True(t, errors.Is(err, ErrInvalidSize), in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.0 KiB", Format(1024))
	assert.Equal(t, "10 MiB", Format(10<<20))
	assert.Equal(t, "512 B", Format(512))
}
