package session

import "time"

// Outcome classifies how an interaction ended.
type Outcome int

const (
	// OutcomeSuccess means a command was answered and spoken.
	OutcomeSuccess Outcome = iota

	// OutcomeEmpty means no usable speech was captured: the capture timed
	// out with no voice, or transcription produced no text.
	OutcomeEmpty

	// OutcomeFailed means reply generation or speech output failed; the
	// user heard the apology (or nothing, if playback itself failed).
	OutcomeFailed
)

// String returns the human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InteractionRecord describes one completed wake-to-reply exchange. The core
// keeps no copy; it only pushes records to subscribers.
type InteractionRecord struct {
	// Command is the transcribed command text; empty for Empty outcomes.
	Command string

	// Response is the spoken reply, which is the fixed apology when reply
	// generation failed.
	Response string

	// Outcome classifies the exchange.
	Outcome Outcome

	// WakeConfidence is the detection score that opened the exchange.
	WakeConfidence float64

	// StartedAt is when the wake word fired; EndedAt is when playback (or
	// the abandoning transition) finished.
	StartedAt time.Time
	EndedAt   time.Time
}

// StatusChange describes one state transition.
type StatusChange struct {
	Previous State
	New      State
	At       time.Time
}

// FatalError describes an unrecoverable internal failure, such as an
// invariant violation in microphone ownership.
type FatalError struct {
	// Component names the subsystem that failed.
	Component string

	// Message is a human-readable description.
	Message string

	// RestartRequired reports whether the subsystem must be restarted
	// before voice interaction can resume.
	RestartRequired bool
}

// Hooks are the push-only event subscriptions the core exposes. All hooks
// are invoked synchronously from the orchestrator goroutine and must return
// quickly; a subscriber that needs to do real work should hand the event off
// to its own goroutine. Nil hooks are skipped.
type Hooks struct {
	OnStatusChanged        func(StatusChange)
	OnInteractionCompleted func(InteractionRecord)
	OnFatalError           func(FatalError)
}
