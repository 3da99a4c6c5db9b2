package scan

import "sync/atomic"

// Opponent count bounds. The API accepts 1 to 9 opponents.
const (
	MinOpponents = 1
	MaxOpponents = 9
)

// Opponents is the one value shared between the scan loop and the input
// listener. Updates go through CAS so concurrent adjustment can never push
// the value out of bounds or lose an update.
type Opponents struct {
	v atomic.Int64
}

// NewOpponents starts the counter at n, clamped into bounds.
func NewOpponents(n int) *Opponents {
	o := &Opponents{}
	o.v.Store(int64(clampOpponents(n)))
	return o
}

// Inc raises the count by one, saturating at MaxOpponents.
func (o *Opponents) Inc() int {
	return o.adjust(1)
}

// Dec lowers the count by one, saturating at MinOpponents.
func (o *Opponents) Dec() int {
	return o.adjust(-1)
}

// Load returns the current count.
func (o *Opponents) Load() int {
	return int(o.v.Load())
}

func (o *Opponents) adjust(delta int64) int {
	for {
		cur := o.v.Load()
		next := cur + delta
		if next < MinOpponents || next > MaxOpponents {
			return int(cur)
		}
		if o.v.CompareAndSwap(cur, next) {
			return int(next)
		}
	}
}

func clampOpponents(n int) int {
	if n < MinOpponents {
		return MinOpponents
	}
	if n > MaxOpponents {
		return MaxOpponents
	}
	return n
}
