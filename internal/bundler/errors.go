package bundler

import "fmt"

// ReparseError means the beautified bundle text produced from a valid
// module graph failed to re-parse during the minify pipeline. Since every
// earlier stage already validated its own input, this can only mean the
// printer emitted something the parser does not accept — a bug in the
// bundler itself, not a fault in the user's source.
type ReparseError struct {
	Err error
}

func (e *ReparseError) Error() string {
	return fmt.Sprintf("internal error: bundler produced unparseable output: %v", e.Err)
}

func (e *ReparseError) Unwrap() error { return e.Err }
