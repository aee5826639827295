package orchestration

import (
	"encoding/binary"
	"testing"
)

func pcmFrame(sample int16, count int) []byte {
	frame := make([]byte, count*2)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
	}
	return frame
}

func TestLevelMeterSilenceStaysAtZero(t *testing.T) {
	meter := newLevelMeter()
	for i := 0; i < 10; i++ {
		if level := meter.Sample(pcmFrame(0, 160)); level > 0.001 {
			t.Fatalf("expected silence to stay near zero, got %f", level)
		}
	}
}

func TestLevelMeterLoudFramesApproachFullScale(t *testing.T) {
	meter := newLevelMeter()
	var level float64
	for i := 0; i < 50; i++ {
		level = meter.Sample(pcmFrame(32000, 160))
	}
	if level < 0.9 {
		t.Fatalf("expected loud input to approach 1, got %f", level)
	}
}

func TestLevelMeterSmoothsTransitions(t *testing.T) {
	meter := newLevelMeter()
	for i := 0; i < 50; i++ {
		meter.Sample(pcmFrame(32000, 160))
	}
	before := meter.Level()

	after := meter.Sample(pcmFrame(0, 160))
	if after >= before {
		t.Fatalf("expected level to fall on silence, got %f -> %f", before, after)
	}
	if after < 0.1 {
		t.Fatalf("expected smoothing to prevent an instant drop, got %f", after)
	}
}

func TestLevelMeterIgnoresEmptyFrames(t *testing.T) {
	meter := newLevelMeter()
	meter.Sample(pcmFrame(16000, 160))
	before := meter.Level()
	if after := meter.Sample(nil); after != before {
		t.Fatalf("expected empty frame to leave level unchanged, got %f -> %f", before, after)
	}
}
