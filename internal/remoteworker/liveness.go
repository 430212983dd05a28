package remoteworker

import "sync/atomic"

// LivenessRange is an atomically-readable [min, max] pair shared between
// the image cache and the Remote Worker. It is a hint, not a correctness
// boundary: the only guarantee that matters is that a completion for an
// out-of-range index is dropped on arrival, which the cache itself enforces
// via its pending set. Relaxed ordering (plain atomic loads/stores) is
// sufficient.
type LivenessRange struct {
	min atomic.Uint64
	max atomic.Uint64
}

// NewLivenessRange returns a range that contains every index, so a worker
// created before the first window is published never spuriously cancels.
func NewLivenessRange() *LivenessRange {
	lr := &LivenessRange{}
	lr.Set(0, ^uint64(0))
	return lr
}

// Set publishes a new [min, max] range.
func (lr *LivenessRange) Set(min, max uint64) {
	lr.min.Store(min)
	lr.max.Store(max)
}

// Contains reports whether idx falls within the most recently published
// range, inclusive.
func (lr *LivenessRange) Contains(idx uint64) bool {
	return idx >= lr.min.Load() && idx <= lr.max.Load()
}
