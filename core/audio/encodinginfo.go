// Package audio describes the PCM encodings shared by the capture,
// transcription, and playback paths.
package audio

// Formats understood across the session pipeline. Linear16 is the native
// format of the device clients; the companded formats exist for backends
// that stream telephony audio.
const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
)

// DefaultSampleRate and DefaultFormat describe 16kHz mono linear16, the
// encoding every component assumes unless a device reports otherwise.
const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

// EncodingInfo pairs a sample rate with a wire format. Components exchange
// it so audio produced on one end of the pipeline plays correctly on the
// other.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// SilenceValue is the byte that decodes to zero amplitude in this format,
// used to synthesize silence frames.
func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

// BytesPerSecond reports the raw byte rate of the encoding, used to estimate
// playback duration of buffered chunks.
func (e EncodingInfo) BytesPerSecond() int {
	byteSize := e.Format.ByteSize()
	if byteSize <= 0 {
		return 0
	}
	return e.SampleRate * byteSize
}

type encodingFormat string

func (e encodingFormat) Name() string { return string(e) }

// ByteSize reports bytes per sample, or -1 for unknown formats.
func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}
