package session

import (
	"context"
	"errors"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
)

// errStreamEnded reports that the frame channel closed mid-capture, which
// means the source died underneath the session.
var errStreamEnded = errors.New("session: frame stream ended")

// captureConfig tunes one voice-activity-gated command capture.
type captureConfig struct {
	// VoiceThreshold is the normalized RMS energy above which a frame
	// counts as voice.
	VoiceThreshold float64

	// HistoryFrames is the noise-floor history length.
	HistoryFrames int

	// SilenceFrames is how many consecutive silence frames after voice
	// finalize the utterance.
	SilenceFrames int

	// Timeout abandons the capture when no voice is ever detected.
	Timeout time.Duration

	// MaxUtterance force-finalizes an utterance that will not end.
	MaxUtterance time.Duration
}

// captureResult is the product of one command capture.
type captureResult struct {
	// PCM is the utterance audio: the voice frames plus the trailing
	// silence window. Empty when VoiceStarted is false.
	PCM []byte

	// VoiceStarted reports whether any voice frame arrived before the
	// capture timeout.
	VoiceStarted bool

	// Duration is the wall-clock span from first voice frame to
	// finalization.
	Duration time.Duration
}

// runCommandCapture consumes frames until the utterance finalizes (enough
// trailing silence, or the max-utterance ceiling), the capture times out
// with no voice, or ctx is cancelled. It owns no shared state: the energy
// history and utterance buffer live and die with this call.
//
// A closed frame channel returns errStreamEnded; the caller maps that to the
// source's device error.
func runCommandCapture(ctx context.Context, frames <-chan audio.Frame, cfg captureConfig) (captureResult, error) {
	meter := newEnergyMeter(cfg.VoiceThreshold, cfg.HistoryFrames)

	var (
		utterance    []byte
		voiceStarted bool
		voiceAt      time.Time
		silenceRun   int
	)

	timeout := time.NewTimer(cfg.Timeout)
	defer timeout.Stop()

	// Armed on the first voice frame.
	var ceiling <-chan time.Time

	finalize := func() (captureResult, error) {
		return captureResult{
			PCM:          utterance,
			VoiceStarted: true,
			Duration:     time.Since(voiceAt),
		}, nil
	}

	for {
		select {
		case <-ctx.Done():
			return captureResult{}, ctx.Err()

		case <-timeout.C:
			if !voiceStarted {
				// Nobody spoke; abandon without transcription.
				return captureResult{}, nil
			}
			// Voice is in flight; only the max-utterance ceiling ends it.

		case <-ceiling:
			return finalize()

		case frame, ok := <-frames:
			if !ok {
				return captureResult{}, errStreamEnded
			}

			if meter.classify(frame) {
				if !voiceStarted {
					voiceStarted = true
					voiceAt = time.Now()
					ceilingTimer := time.NewTimer(cfg.MaxUtterance)
					defer ceilingTimer.Stop()
					ceiling = ceilingTimer.C
				}
				silenceRun = 0
				utterance = append(utterance, frame.Data...)
				continue
			}

			if !voiceStarted {
				continue
			}
			silenceRun++
			if silenceRun <= cfg.SilenceFrames {
				utterance = append(utterance, frame.Data...)
			}
			if silenceRun >= cfg.SilenceFrames {
				return finalize()
			}
		}
	}
}
