// Package answercode holds the wire encoding of candidate answers.
//
// A single-choice answer is the decimal id of the chosen option. A multiple-choice
// answer is a string of '0'/'1' with one character per option, left to right in
// option order. Code outside this package works on []bool masks and converts here.
package answercode

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformed is returned for a mask containing characters other than '0' and '1',
// or one longer than the option list.
var ErrMalformed = errors.New("malformed answer mask")

// Single encodes a single-choice answer.
func Single(optionID int) string {
	return strconv.Itoa(optionID)
}

// ParseSingle decodes a single-choice answer.
func ParseSingle(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrMalformed
	}
	return id, nil
}

// Encode renders mask as exactly n characters. Positions beyond len(mask) are '0'.
func Encode(mask []bool, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		if i < len(mask) && mask[i] {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Decode parses s into a mask of length n, zero-padding a shorter encoding.
func Decode(s string, n int) ([]bool, error) {
	if len(s) > n {
		return nil, ErrMalformed
	}
	mask := make([]bool, n)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			mask[i] = true
		case '0':
		default:
			return nil, ErrMalformed
		}
	}
	return mask, nil
}

// Pad right-pads s with '0' up to n characters.
func Pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat("0", n-len(s))
}

// Selected counts the set positions in mask.
func Selected(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}
