package deepgram

import (
	"fmt"

	"github.com/koscakluka/vox-core/core/audio"
)

// encodingInfo is the subset of encoding parameters the listen endpoint
// accepts as query parameters.
type encodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

type encodingFormat string

func (e encodingFormat) Name() string { return string(e) }

const (
	encodingLinear16 encodingFormat = "linear16"
	encodingALaw     encodingFormat = "alaw"
	encodingMulaw    encodingFormat = "mulaw"
)

// convertEncoding validates the session encoding against what Deepgram's
// live API supports. Companded telephony formats are 8kHz only.
func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	converted := encodingInfo{}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.Format = encodingLinear16
	case audio.EncodingALaw:
		converted.Format = encodingALaw
	case audio.EncodingMulaw:
		converted.Format = encodingMulaw
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	if converted.Format != encodingLinear16 && converted.SampleRate != 8000 {
		return nil, fmt.Errorf("%s encoding requires an 8kHz sample rate", converted.Format.Name())
	}

	return &converted, nil
}
