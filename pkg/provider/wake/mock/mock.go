// Package mock provides in-memory mock implementations of the [wake.Engine]
// and [wake.Session] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts, and they expose exported fields
// controlling return values.
//
// Typical usage:
//
//	sess := &mock.Session{}
//	engine := &mock.Engine{OpenResult: sess}
//	s, _ := engine.Open(ctx, wake.Config{Phrase: "assistant"})
//	sess.Trigger(wake.Detection{Phrase: "assistant", Confidence: 0.9})
//	det, ok := s.Feed(frame) // ok == true
package mock

import (
	"context"
	"sync"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/wake"
)

// OpenCall records the arguments of a single [Engine.Open] invocation.
type OpenCall struct {
	// Config is the config passed to Open.
	Config wake.Config
}

// Engine is a mock implementation of [wake.Engine].
type Engine struct {
	mu sync.Mutex

	// OpenResult is the [wake.Session] returned by Open.
	OpenResult wake.Session

	// OpenError is the error returned by Open.
	OpenError error

	// OpenCalls records all Open invocations.
	OpenCalls []OpenCall
}

var _ wake.Engine = (*Engine)(nil)

// Open implements [wake.Engine]. Records the call and returns
// OpenResult / OpenError.
func (e *Engine) Open(_ context.Context, cfg wake.Config) (wake.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.OpenCalls = append(e.OpenCalls, OpenCall{Config: cfg})
	return e.OpenResult, e.OpenError
}

// Session is a mock implementation of [wake.Session]. Detections are staged
// with [Session.Trigger] and delivered by the next Feed call, mirroring the
// debounce contract of the real engines.
type Session struct {
	mu sync.Mutex

	// CloseError is returned by Close.
	CloseError error

	// FedFrames records every frame passed to Feed.
	FedFrames []audio.Frame

	// CallCountReset records how many times Reset was called.
	CallCountReset int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	pending *wake.Detection
	fired   bool
}

var _ wake.Session = (*Session)(nil)

// Trigger stages a detection to be returned by the next Feed call.
// Use this in tests to simulate the wake phrase being spoken.
func (s *Session) Trigger(det wake.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &det
}

// Feed implements [wake.Session]. Records the frame and returns a staged
// detection once, then debounces until Reset.
func (s *Session) Feed(frame audio.Frame) (wake.Detection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FedFrames = append(s.FedFrames, frame)
	if s.fired || s.pending == nil {
		return wake.Detection{}, false
	}
	det := *s.pending
	s.pending = nil
	s.fired = true
	return det, true
}

// Reset implements [wake.Session]. Re-arms the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountReset++
	s.fired = false
	s.pending = nil
}

// Close implements [wake.Session]. Records the call and returns CloseError.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseError
}
