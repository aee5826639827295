package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type captureDevice struct {
	device *malgo.Device

	mu      sync.Mutex
	onAudio func(audio []byte)
}

func (d *captureDevice) init(audioContext *malgo.AllocatedContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	format := malgo.FormatS16
	frameBytes := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	// 30ms periods keep transcription latency low without starving the
	// device thread.
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, frames []byte, frameCount uint32) {
			n := int(frameCount) * frameBytes
			if n == 0 || len(frames) < n {
				return
			}
			d.mu.Lock()
			onAudio := d.onAudio
			d.mu.Unlock()
			if onAudio != nil {
				onAudio(frames[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	d.device = device
	return nil
}

func (d *captureDevice) start(onAudio func(audio []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if d.device.IsStarted() {
		return nil
	}

	d.onAudio = onAudio
	if err := d.device.Start(); err != nil {
		d.onAudio = nil
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

func (d *captureDevice) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if !d.device.IsStarted() {
		return nil
	}

	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	d.onAudio = nil
	return nil
}

func (d *captureDevice) uninit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	d.onAudio = nil
}
