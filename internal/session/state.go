// Package session contains the assistant's session core: the single-writer
// state machine that arbitrates microphone ownership between wake-word
// listening and command capture, runs the voice-activity-gated utterance
// capture, drives transcription, reply generation, and spoken playback, and
// publishes status and interaction events to external collaborators.
//
// All state transitions happen on the [Orchestrator.Run] goroutine; events
// from independently scheduled tasks (frames, detections, timeouts, playback
// completion) are folded into that loop rather than mutating shared state.
package session

// State is the orchestrator's operating mode. The [Orchestrator] is the sole
// writer; everything else only reads it.
type State int

const (
	// StateNotInitialized is the zero value before Run is called.
	StateNotInitialized State = iota

	// StateInitializing covers provider setup (wake engine, microphone).
	StateInitializing

	// StateReady means initialization succeeded and listening is about to
	// start.
	StateReady

	// StateListening means the wake-word detector owns the microphone.
	StateListening

	// StateCommandCapture means command capture owns the microphone and the
	// voice-activity gate is accumulating an utterance.
	StateCommandCapture

	// StateProcessing means a transcribed command is being answered.
	StateProcessing

	// StateSpeaking means the reply is being synthesized and played.
	StateSpeaking

	// StateError means a resource failure stopped voice interaction. The
	// orchestrator retries initialization once on its own; after that it
	// stays here until [Orchestrator.Restart].
	StateError

	// StateStopped is terminal; reached on shutdown.
	StateStopped
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateNotInitialized:
		return "not-initialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateListening:
		return "listening"
	case StateCommandCapture:
		return "command-capture"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
