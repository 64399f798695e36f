package audio

import "time"

// Pipeline audio format: the capture pipeline runs at 16 kHz mono 16-bit PCM
// with 50 ms frames, which is what the transcription engines expect.
const (
	// SampleRate is the pipeline sample rate in Hz.
	SampleRate = 16000

	// Channels is the pipeline channel count (mono).
	Channels = 1

	// FrameDuration is the fixed duration of one pipeline frame.
	FrameDuration = 50 * time.Millisecond

	// FrameSamples is the number of int16 samples in one pipeline frame.
	FrameSamples = SampleRate * 50 / 1000 // 800

	// FrameBytes is the byte length of one pipeline frame (16-bit PCM).
	FrameBytes = FrameSamples * 2
)

// Frame is a single frame of audio captured from a [Source]. Frames are the
// atomic unit of audio transport through the pipeline and are immutable once
// produced: consumers must not modify Data.
type Frame struct {
	// Data is raw little-endian 16-bit mono PCM at [SampleRate].
	Data []byte

	// Seq is the capture sequence number, monotonically increasing for the
	// lifetime of one source start. Consumers use it to detect gaps.
	Seq uint64

	// CapturedAt is the wall-clock time the frame was captured.
	CapturedAt time.Time
}

// Duration returns the play time of the frame's PCM data at the pipeline
// sample rate.
func (f Frame) Duration() time.Duration {
	samples := len(f.Data) / 2
	return time.Duration(samples) * time.Second / time.Duration(SampleRate)
}
