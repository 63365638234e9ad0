// Package renamer implements a stable suffix-counter naming scheme: the
// first request for a name returns that name verbatim; subsequent requests
// return "name2", "name3", … skipping whatever is already claimed. It
// underlies both the bundle-wide unique-name allocator (internal/linker)
// and the minifying identifier mangler (internal/mangle).
package renamer

import "strconv"

// Allocator hands out bundle-wide unique names. It owns exactly one
// bundler invocation's worth of state and is never shared across
// concurrent invocations or exposed as ambient/global state.
type Allocator struct {
	used map[string]uint32
}

func NewAllocator() *Allocator {
	return &Allocator{used: make(map[string]uint32)}
}

// Reserve marks a name as claimed without returning a fresh alternative.
// Used to seed reserved words and names that must never be handed out.
func (a *Allocator) Reserve(name string) {
	if _, ok := a.used[name]; !ok {
		a.used[name] = 1
	}
}

func (a *Allocator) IsUsed(name string) bool {
	_, ok := a.used[name]
	return ok
}

// Release forgets that name was ever claimed, letting a later Next(name)
// return name verbatim again. It does not touch any other name already
// handed out, even one derived from the same prefix (e.g. releasing
// "config" after a caller moved on to "config2" leaves "config2" claimed).
// Callers must only release a name once nothing else in the bundle still
// holds it.
func (a *Allocator) Release(name string) {
	delete(a.used, name)
}

// Next returns a name guaranteed not to collide with any name previously
// returned by Next or passed to Reserve: the requested name itself the
// first time, "name2", "name3", … on each subsequent collision.
func (a *Allocator) Next(name string) string {
	tries, ok := a.used[name]
	if !ok {
		a.used[name] = 1
		return name
	}

	prefix := name
	for {
		tries++
		candidate := prefix + strconv.Itoa(int(tries))
		if _, taken := a.used[candidate]; !taken {
			a.used[prefix] = tries
			a.used[candidate] = 1
			return candidate
		}
	}
}
