// Package mock provides an in-memory mock implementation of the [audio.Source]
// interface for use in unit tests.
//
// The mock is safe for concurrent use. It records every method call so that
// tests can assert on call counts, and it exposes exported fields that the
// test can set to control return values.
//
// Typical usage:
//
//	frames := make(chan audio.Frame, 16)
//	src := &mock.Source{StartResult: frames}
//	got, err := src.Start(ctx)
//	frames <- audio.Frame{Data: pcm, Seq: 1}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
)

// Source is a mock implementation of [audio.Source].
// Set the exported Result/Error fields before use; inspect the Call* fields after.
type Source struct {
	mu sync.Mutex

	// StartResult is the frame channel returned by Start.
	// If left nil, Start creates and returns a fresh unbuffered channel.
	StartResult chan audio.Frame

	// StartError is returned by Start. When non-nil, StartResult is not returned.
	StartError error

	// StopError is returned by Stop.
	StopError error

	// ErrResult is returned by Err.
	ErrResult error

	// CloseOnStop makes Stop close the StartResult channel, mirroring how a
	// real source signals end of stream.
	CloseOnStop bool

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountErr records how many times Err was called.
	CallCountErr int
}

var _ audio.Source = (*Source)(nil)

// Start implements [audio.Source]. Records the call and returns
// StartResult / StartError.
func (s *Source) Start(_ context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return nil, s.StartError
	}
	if s.StartResult == nil {
		s.StartResult = make(chan audio.Frame)
	}
	return s.StartResult, nil
}

// Stop implements [audio.Source]. Records the call and returns StopError.
// When CloseOnStop is set, Stop closes the frame channel and clears it so
// that a later Start hands out a fresh one, matching a restartable source.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	if s.CloseOnStop && s.StartResult != nil {
		close(s.StartResult)
		s.StartResult = nil
	}
	return s.StopError
}

// Err implements [audio.Source]. Records the call and returns ErrResult.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountErr++
	return s.ErrResult
}

// Emit sends a frame on the channel returned by Start. If Start has not been
// called yet (or the previous channel was closed by Stop), Emit waits briefly
// for the next Start so tests can feed a source that is being restarted; it
// panics if no Start arrives within two seconds.
func (s *Source) Emit(f audio.Frame) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		ch := s.StartResult
		s.mu.Unlock()
		if ch != nil {
			ch <- f
			return
		}
		if time.Now().After(deadline) {
			panic("mock: Emit with no started source")
		}
		time.Sleep(time.Millisecond)
	}
}
