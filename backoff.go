package mpmc

import "runtime"

// spinLimit bounds the number of doublings backoff applies before it
// considers itself "completed" and callers should fall back to
// parking instead of spinning.
const spinLimit = 6

// backoff performs exponential back-off in spin loops, the same shape
// used at every retry site in the array and list channels: start
// cheap, get more patient, then hand off to the scheduler.
type backoff struct {
	step uint32
}

func (b *backoff) spinLight() {
	step := b.step
	if step > spinLimit {
		step = spinLimit
	}
	for i := uint32(0); i < 1<<step; i++ {
		// the standard library has no portable PAUSE intrinsic; an
		// empty loop iteration is the best available stand-in.
	}
	b.step++
}

func (b *backoff) spinHeavy() {
	if b.step <= spinLimit {
		for i := uint32(0); i < 1<<b.step; i++ {
		}
	} else {
		runtime.Gosched()
	}
	b.step++
}

func (b *backoff) isCompleted() bool {
	return b.step > spinLimit
}
