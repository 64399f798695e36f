package session

import (
	"math"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
)

// energyMeter classifies frames as voice or silence by normalized RMS
// energy. It keeps a rolling history of recent silence energies as a noise
// floor, so a noisy room raises the effective threshold instead of turning
// every frame into voice.
//
// An energyMeter belongs to exactly one capture session and is discarded
// with it.
type energyMeter struct {
	threshold float64

	history []float64
	next    int
	count   int
}

func newEnergyMeter(threshold float64, historyLen int) *energyMeter {
	return &energyMeter{
		threshold: threshold,
		history:   make([]float64, historyLen),
	}
}

// classify reports whether the frame contains voice. Silence frames feed the
// noise-floor history; voice frames do not, otherwise sustained speech would
// drag the floor up and cut itself off.
func (m *energyMeter) classify(frame audio.Frame) bool {
	rms := frameRMS(frame.Data)
	if rms >= m.effectiveThreshold() {
		return true
	}
	m.record(rms)
	return false
}

// effectiveThreshold is the configured threshold lifted to sit above the
// measured noise floor.
func (m *energyMeter) effectiveThreshold() float64 {
	floor := m.noiseFloor()
	if adapted := floor * 1.5; adapted > m.threshold {
		return adapted
	}
	return m.threshold
}

func (m *energyMeter) noiseFloor() float64 {
	if m.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < m.count; i++ {
		sum += m.history[i]
	}
	return sum / float64(m.count)
}

func (m *energyMeter) record(rms float64) {
	if len(m.history) == 0 {
		return
	}
	m.history[m.next] = rms
	m.next = (m.next + 1) % len(m.history)
	if m.count < len(m.history) {
		m.count++
	}
}

// frameRMS computes the root-mean-square of 16-bit little-endian PCM,
// normalized to [0, 1].
func frameRMS(data []byte) float64 {
	samples := audio.BytesToInt16s(data)
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		n := float64(s) / 32768.0
		sum += n * n
	}
	return math.Sqrt(sum / float64(len(samples)))
}
