package reactive

import "sync/atomic"

// effectIDs numbers effects across all runtimes so that ids in logs,
// trace attributes and misuse warnings never collide.
var effectIDs atomic.Uint64

func nextID() uint64 {
	return effectIDs.Add(1)
}
