package orchestration

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/koscakluka/vox-core/core/audio"
)

// audioInput normalizes capture behavior across input clients. Clients with
// explicit capture controls are started and stopped on demand; stream-only
// clients run for the life of the session and frames are gated instead.
type audioInput struct {
	client audioInputBase
	// captureControls is non-nil when the client can start and stop capture
	// on demand.
	captureControls AudioInputControls

	connected   atomic.Bool
	isCapturing atomic.Bool

	// openMic keeps capture running continuously between turns.
	openMic atomic.Bool
	// shouldCapture is set while a push-to-talk capture is held open.
	shouldCapture atomic.Bool

	onInputAudio    func(audio []byte)
	onCaptureFailed func(err error)
}

func newAudioInput(client audioInputBase, onInputAudio func(audio []byte), onCaptureFailed func(err error)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func([]byte) {}
	}
	if onCaptureFailed == nil {
		onCaptureFailed = func(error) {}
	}

	input := audioInput{onInputAudio: onInputAudio, onCaptureFailed: onCaptureFailed}
	input.Set(client)
	return &input
}

// Set replaces the configured input client. Nil and typed-nil clients leave
// the facade unconfigured.
func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.client = nil
	a.captureControls = nil
	a.connected.Store(false)
	a.isCapturing.Store(false)

	if isNilClient(client) {
		return
	}

	a.client = client
	a.connected.Store(true)
	if controls, ok := client.(AudioInputControls); ok {
		a.captureControls = controls
	}
}

func (a *audioInput) IsConfigured() bool            { return a != nil && a.connected.Load() }
func (a *audioInput) SupportsCaptureControls() bool { return a != nil && a.captureControls != nil }
func (a *audioInput) IsOpenMic() bool               { return a != nil && a.openMic.Load() }
func (a *audioInput) IsCapturing() bool             { return a != nil && a.isCapturing.Load() }
func (a *audioInput) ShouldCapture() bool           { return a != nil && a.shouldCapture.Load() }

func (a *audioInput) EnableOpenMic(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.openMic.Store(true)
	return a.Capture(ctx)
}

func (a *audioInput) DisableOpenMic(context.Context) error {
	if a == nil {
		return nil
	}
	a.openMic.Store(false)
	return a.StopCapture()
}

func (a *audioInput) RequestCapture(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.shouldCapture.Store(true)
	return a.Capture(ctx)
}

func (a *audioInput) ReleaseCapture(context.Context) error {
	if a == nil {
		return nil
	}
	a.shouldCapture.Store(false)
	return a.StopCapture()
}

// Start opens capture at session start when open mic is on; push-to-talk
// sessions wait for an explicit RequestCapture.
func (a *audioInput) Start(ctx context.Context) {
	if a.IsConfigured() && a.IsOpenMic() {
		a.Capture(ctx)
	}
}

func (a *audioInput) Capture(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	produce := a.frameSource()
	if produce == nil {
		a.isCapturing.Store(false)
		return nil
	}

	go func() {
		if err := produce(ctx, a.onAudio); err != nil {
			a.isCapturing.Store(false)
			a.onCaptureFailed(err)
		}
	}()

	return nil
}

// frameSource picks how frames are produced: on-demand capture when the
// client has capture controls and capture was requested, the continuous
// stream otherwise. Nil means nothing should start.
func (a *audioInput) frameSource() func(context.Context, func([]byte)) error {
	if a.captureControls != nil {
		if a.captureRequested() {
			return a.captureControls.StartCapture
		}
		return nil
	}

	if a.client != nil {
		return a.client.Stream
	}
	return nil
}

func (a *audioInput) StopCapture() error {
	// Stream-only clients keep running; frames are gated in onAudio instead.
	if !a.SupportsCaptureControls() {
		return nil
	}
	if a.captureRequested() {
		return nil
	}

	if err := a.captureControls.StopCapture(); err != nil {
		return err
	}
	a.isCapturing.Store(false)
	return nil
}

func (a *audioInput) Close() error {
	var errs error
	if a.client != nil && a.IsConfigured() {
		if a.captureControls != nil {
			if err := a.captureControls.StopCapture(); err != nil {
				errs = errors.Join(errs, err)
			}
		}
		a.client.Close()
	}
	a.isCapturing.Store(false)

	return errs
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.client == nil {
		return audio.GetDefaultEncodingInfo()
	}
	return a.client.EncodingInfo()
}

func (a *audioInput) captureRequested() bool {
	return a.IsOpenMic() || a.ShouldCapture()
}

func (a *audioInput) onAudio(audio []byte) {
	if !a.captureRequested() {
		return
	}
	a.onInputAudio(audio)
}
