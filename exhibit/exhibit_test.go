package exhibit

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		counter int
		want    string
	}{
		{0, "AA"},
		{1, "AB"},
		{25, "AZ"},
		{26, "BA"},
		{675, "ZZ"},
	}
	for _, tc := range tests {
		got, err := Label(tc.counter)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestLabelStrictlyIncreasing(t *testing.T) {
	prev := ""
	for i := 0; i <= Max; i++ {
		got, err := Label(i)
		require.NoError(t, err)
		assert.Greater(t, got, prev)
		prev = got
	}
}

func TestLabelOverflow(t *testing.T) {
	_, err := Label(676)
	assert.True(t, errors.Is(err, ErrExhibitOverflow))
	_, err = Label(-1)
	assert.True(t, errors.Is(err, ErrExhibitOverflow))
}

func TestParse(t *testing.T) {
	for i := 0; i <= Max; i += 37 {
		label, _ := Label(i)
		n, err := Parse(label)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	n, err := Parse("C")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, bad := range []string{"", "a", "A1", "A B"} {
		_, err := Parse(bad)
		assert.True(t, errors.Is(err, ErrInvalidID), bad)
	}
}
