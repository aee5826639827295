package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/vox-core/core/audio"
)

const (
	sampleRate = 16000
	channels   = 1
)

// Client owns one malgo context with a capture and a playback device hanging
// off it. Both devices are initialized up front; starting and stopping them
// is cheap, so the playback device is only held while a reply is draining.
type Client struct {
	// audioContext is retained for teardown only.
	audioContext *malgo.AllocatedContext

	playback playbackDevice
	capture  captureDevice
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if err := client.playback.init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := client.capture.init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

func (c *Client) Stream(_ context.Context, onAudio func(audio []byte)) error {
	return c.capture.start(onAudio)
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.capture.start(onAudio)
}

func (c *Client) StopCapture() error { return c.capture.stop() }

func (c *Client) StartPlayback(_ context.Context) error { return c.playback.start() }

func (c *Client) StopPlayback() error { return c.playback.stop() }

func (c *Client) SendAudio(audio []byte) error { return c.playback.write(audio) }

func (c *Client) ClearBuffer() { c.playback.clear() }

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: sampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) Close() {
	c.capture.uninit()
	c.playback.uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
