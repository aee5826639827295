package orchestration

import (
	"context"

	"github.com/koscakluka/vox-core/core/audio"
)

// audioOutput wraps the optional playback sink so per-turn code never has to
// care whether one is configured. Chunks sent without a sink are dropped;
// playback lifecycle hooks are forwarded only when the client supports them.
type audioOutput struct {
	// base stores the configured playback sink.
	base audioOutputBase
	// lifecycle is set when the sink wants explicit start/stop around turns.
	lifecycle audioOutputLifecycle
}

type audioOutputLifecycle interface {
	StartPlayback(ctx context.Context) error
	StopPlayback() error
}

func newAudioOutput(client audioOutputBase) *audioOutput {
	audioOutput := audioOutput{}
	audioOutput.Set(client)
	return &audioOutput
}

// Set replaces the configured sink. Nil and typed-nil clients are treated as
// unconfigured.
func (a *audioOutput) Set(client audioOutputBase) {
	if a == nil {
		return
	}

	a.base = nil
	a.lifecycle = nil

	if isNilClient(client) {
		return
	}

	a.base = client
	if lifecycle, ok := client.(audioOutputLifecycle); ok {
		a.lifecycle = lifecycle
	}
}

func (a *audioOutput) isConfigured() bool {
	return a != nil && a.base != nil
}

func (a *audioOutput) SendAudio(audio []byte) error {
	if !a.isConfigured() {
		return nil
	}

	return a.base.SendAudio(audio)
}

func (a *audioOutput) Clear() {
	if !a.isConfigured() {
		return
	}

	a.base.ClearBuffer()
}

func (a *audioOutput) StartPlayback(ctx context.Context) error {
	if a == nil || a.lifecycle == nil {
		return nil
	}

	return a.lifecycle.StartPlayback(ctx)
}

func (a *audioOutput) StopPlayback() error {
	if a == nil || a.lifecycle == nil {
		return nil
	}

	return a.lifecycle.StopPlayback()
}

func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if !a.isConfigured() {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}

func (a *audioOutput) Close(ctx context.Context) error {
	if !a.isConfigured() {
		return nil
	}

	return closeClient(ctx, a.base, "audio output")
}
