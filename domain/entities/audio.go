package entities

// AudioFrame is one fixed-format chunk of PCM samples normalized to
// [-1, 1], tagged with the sample rate the client declared. Immutable
// once received.
type AudioFrame struct {
	SampleRate int
	Samples    []float32
}
