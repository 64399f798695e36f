package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestPcmToFloat32(t *testing.T) {
	pcm := make([]byte, 8)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(pcm[4:], uint16(int16(-16384)))
	binary.LittleEndian.PutUint16(pcm[6:], uint16(int16(-32768)))

	got := pcmToFloat32(pcm)
	want := []float32{0, 0.5, -0.5, -1.0}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPcmToFloat32_OddLength(t *testing.T) {
	pcm := []byte{0x00, 0x40, 0xFF} // one sample plus a trailing byte
	got := pcmToFloat32(pcm)
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
}

func TestPcmToFloat32_Empty(t *testing.T) {
	if got := pcmToFloat32(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %d samples", len(got))
	}
}
