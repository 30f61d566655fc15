package buffer

import "bufcache/clock"

// defaultClock adapts the package-level clock.Now tick source to the
// TickSource interface so NewCache has a sensible default without forcing
// every caller to wire one in explicitly.
type defaultClock struct{}

func (defaultClock) Now() uint64 { return clock.Now() }
