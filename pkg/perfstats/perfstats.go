package perfstats

import (
	"sync/atomic"
	"time"
)

// Fold a new sample into an exponential moving average.
// We don't bother with CompareAndSwap correctness here, because this is just
// sampled stats, and it's OK to miss one or two samples.
func UpdateMovingAverage(avg *int64, sample int64) {
	old := atomic.LoadInt64(avg)
	if old == 0 {
		atomic.StoreInt64(avg, sample)
	} else {
		atomic.StoreInt64(avg, (old*15+sample)/16)
	}
}

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}
