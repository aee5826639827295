package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type playbackDevice struct {
	device *malgo.Device

	mu sync.Mutex

	// bufMu guards pending separately from mu so the device data callback
	// never contends with start/stop.
	bufMu   sync.Mutex
	pending []byte
}

func (d *playbackDevice) init(audioContext *malgo.AllocatedContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	format := malgo.FormatS16
	frameBytes := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(sampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(sampleRate / 10) // ~100ms
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			n := int(frameCount) * frameBytes
			if n > len(out) {
				n = len(out)
			}
			d.fill(out[:n])
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	d.device = device
	return nil
}

// fill copies pending audio into the device buffer. Underruns leave the
// remainder zeroed, which plays as silence.
func (d *playbackDevice) fill(out []byte) {
	d.bufMu.Lock()
	defer d.bufMu.Unlock()

	if len(d.pending) == 0 {
		return
	}

	n := copy(out, d.pending)
	if n >= len(d.pending) {
		d.pending = nil
		return
	}
	d.pending = d.pending[n:]
}

func (d *playbackDevice) start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if d.device.IsStarted() {
		return nil
	}

	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (d *playbackDevice) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if !d.device.IsStarted() {
		return nil
	}

	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	d.clear()
	return nil
}

func (d *playbackDevice) write(audio []byte) error {
	d.mu.Lock()
	device := d.device
	d.mu.Unlock()

	if device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if !device.IsStarted() {
		return fmt.Errorf("playback device not started")
	}

	d.bufMu.Lock()
	d.pending = append(d.pending, audio...)
	d.bufMu.Unlock()
	return nil
}

func (d *playbackDevice) clear() {
	d.bufMu.Lock()
	d.pending = nil
	d.bufMu.Unlock()
}

func (d *playbackDevice) uninit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	d.clear()
}
