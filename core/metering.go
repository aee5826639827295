package orchestration

import (
	"encoding/binary"
	"math"
)

const (
	// meterFloorDB is the loudness treated as silence; quieter frames clamp
	// to level 0.
	meterFloorDB = -60.0
	// meterSmoothing controls how fast the reported level tracks the raw
	// frame loudness. Lower values smooth more.
	meterSmoothing = 0.35
)

// levelMeter turns raw 16-bit PCM frames into a smoothed loudness level in
// [0, 1], suitable for driving an input meter.
type levelMeter struct {
	level float64
}

func newLevelMeter() *levelMeter {
	return &levelMeter{}
}

// Sample folds one audio frame into the meter and returns the updated level.
// Frames are interpreted as little-endian 16-bit mono PCM.
func (m *levelMeter) Sample(frame []byte) float64 {
	sampleCount := len(frame) / 2
	if sampleCount == 0 {
		return m.level
	}

	var sum float64
	for i := 0; i+1 < len(frame); i += 2 {
		sample := float64(int16(binary.LittleEndian.Uint16(frame[i:]))) / 32768.0
		sum += sample * sample
	}
	rms := math.Sqrt(sum / float64(sampleCount))

	db := meterFloorDB
	if rms > 0 {
		db = 20 * math.Log10(rms)
	}
	db = math.Min(0, math.Max(meterFloorDB, db))
	normalized := (db - meterFloorDB) / -meterFloorDB

	m.level += meterSmoothing * (normalized - m.level)
	return m.level
}

// Level returns the current smoothed loudness without folding in a frame.
func (m *levelMeter) Level() float64 {
	return m.level
}
