package vad

// Accumulator collects raw frames between a speech onset and the
// following speech end, producing one contiguous signal per turn.
type Accumulator struct {
	frames  [][]float32
	samples int
}

// Append adds one frame, preserving arrival order.
func (a *Accumulator) Append(frame []float32) {
	a.frames = append(a.frames, frame)
	a.samples += len(frame)
}

// Len returns the total number of buffered samples.
func (a *Accumulator) Len() int {
	return a.samples
}

// DrainAndClear concatenates all buffered frames and resets the
// accumulator. Draining an empty accumulator yields a zero-length signal,
// not an error; downstream transcription treats that as an empty
// transcript.
func (a *Accumulator) DrainAndClear() []float32 {
	signal := make([]float32, 0, a.samples)
	for _, frame := range a.frames {
		signal = append(signal, frame...)
	}
	a.frames = nil
	a.samples = 0
	return signal
}
