// Package exhibit maps exhibit counters to the two-letter labels stamped on
// exhibits (AA, AB, ... ZZ) and back.
package exhibit

import (
	"github.com/cockroachdb/errors"
)

// Max is the largest counter that has a label.
const Max = 26*26 - 1

var (
	ErrExhibitOverflow = errors.New("exhibit counter out of range")
	ErrInvalidID       = errors.New("invalid exhibit id")
)

// Label returns the two-letter id of counter.
func Label(counter int) (string, error) {
	if counter < 0 || counter > Max {
		return "", errors.Wrapf(ErrExhibitOverflow, "counter %d", counter)
	}
	return string([]byte{byte('A' + counter/26), byte('A' + counter%26)}), nil
}

// Parse reads an uppercase letter sequence as a base-26 number with A=0.
func Parse(id string) (int, error) {
	if id == "" {
		return 0, errors.Wrap(ErrInvalidID, "empty")
	}
	n := 0
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 'A' || c > 'Z' {
			return 0, errors.Wrapf(ErrInvalidID, "%q", id)
		}
		n = n*26 + int(c-'A')
		if n > 1<<24 {
			return 0, errors.Wrapf(ErrInvalidID, "%q is too large", id)
		}
	}
	return n, nil
}
