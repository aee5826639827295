package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/vox-core/core/audio"
)

// Client is a capture-only PortAudio input, usable as an alternative to the
// miniaudio client on hosts where malgo misbehaves.
type Client struct {
	stream *portaudio.Stream
	frames []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	frames := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, bufferSize, frames)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{stream: stream, frames: frames}, nil
}

// Stream reads capture frames until the context ends, converting each buffer
// to little-endian PCM bytes for onAudio.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for ctx.Err() == nil {
		if err := c.stream.Read(); err != nil {
			log.Printf("Failed to read from portaudio stream: %v", err)
			continue
		}

		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, c.frames)
		onAudio(buf.Bytes())
	}

	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) Close() {
	c.stream.Close()
	portaudio.Terminate()
}
