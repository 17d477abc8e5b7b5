package camera

import (
	"math"
	"slices"
	"time"
)

// Given a set of consecutive frame intervals, estimate the average frames per second.
// We use the median interval, because delivery over UDP or a directory watch is
// jittery, and the mean gets dragged around by stalls.
// The value is a float64 because a source can be configured for less than 1 FPS
// (eg a timelapse producer dropping a frame into the directory every few seconds).
func EstimateFPS(frameIntervals []time.Duration) float64 {
	if len(frameIntervals) == 0 {
		return 10
	}
	sorted := make([]time.Duration, len(frameIntervals))
	copy(sorted, frameIntervals)
	slices.Sort(sorted)
	mid := sorted[len(sorted)/2]
	if mid == 0 {
		return 10
	}
	fps := float64(time.Second) / float64(mid)
	if fps >= 0.9 {
		return math.Round(fps)
	}
	// Below 1 FPS, round the seconds-per-frame instead
	secondsPerFrame := 1.0 / fps
	spfR := math.Round(secondsPerFrame)
	return 1 / spfR
}
