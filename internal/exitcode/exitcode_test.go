package exitcode_test

import (
	"errors"
	"testing"

	"luabundle/internal/exitcode"
)

func TestGet(t *testing.T) {
	testCases := map[string]struct {
		error
		int
	}{
		"nil":     {nil, 0},
		"default": {errors.New(""), 1},
		"wrapped": {errors.New("wrapping: boom"), 1},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := exitcode.Get(tc.error)
			if got != tc.int {
				t.Errorf("%v: %d != %d", tc.error, got, tc.int)
			}
		})
	}
}
