// Package sizeformat parses the size arguments of the split and zip
// commands and formats byte counts for logs.
package sizeformat

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

var ErrInvalidSize = errors.New("invalid size")

var multipliers = map[byte]int64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// Parse reads "<n><unit>" where unit is one of B, K, M, G, T in powers of
// 1024. The unit is mandatory.
func Parse(s string) (int64, error) {
	if len(s) < 2 {
		return 0, errors.Wrapf(ErrInvalidSize, "%q, expected <number>[BKMGT]", s)
	}
	mult, ok := multipliers[s[len(s)-1]]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidSize, "%q, expected <number>[BKMGT]", s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n < 0 {
		return 0, errors.Wrapf(ErrInvalidSize, "%q, expected <number>[BKMGT]", s)
	}
	if n > math.MaxInt64/mult {
		return 0, errors.Wrapf(ErrInvalidSize, "%q overflows", s)
	}
	return n * mult, nil
}

// Format renders n in IEC units, e.g. "1.5 MiB".
func Format(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
