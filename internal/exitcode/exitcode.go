// Package exitcode implements the CLI's exit-code contract: 0 on success,
// 1 on any error.
package exitcode

import "os"

// Get returns 0 for a nil error and 1 for any other error.
func Get(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Exit calls os.Exit with the exit code associated with err.
func Exit(err error) {
	os.Exit(Get(err))
}
