// Package vad segments a continuous audio stream into discrete
// utterances. A per-frame energy classifier feeds a hysteresis state
// machine that decides when speech starts and ends.
package vad

import "math"

// DefaultRMSThreshold is the energy level separating voiced from unvoiced
// frames on a [-1, 1] normalized signal.
const DefaultRMSThreshold = 0.01

// RMS returns the root-mean-square amplitude of the frame. An empty frame
// has RMS 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// IsVoiced classifies one frame as voiced when its RMS exceeds the
// threshold. Purely numeric, no side effects.
func IsVoiced(samples []float32, threshold float64) bool {
	return RMS(samples) > threshold
}
