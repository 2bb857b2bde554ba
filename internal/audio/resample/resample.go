// Package resample wraps libsamplerate (via gosamplerate) with the stream
// API, so conversion state carries across successive 20ms frames and the
// output stays continuous at frame boundaries.
package resample

import (
	"fmt"

	"github.com/dh1tw/gosamplerate"

	"audiosocket-relay/internal/audio/convert"
)

// Enough for one nominal frame upsampled to 48kHz stereo with headroom.
const bufferLen = 8192

// Converter is a stateful sample-rate converter for one audio direction.
// It must not be shared between directions or connections.
type Converter struct {
	src      gosamplerate.Src
	channels int
}

// New creates a converter for interleaved PCM with the given channel count.
func New(channels int) (*Converter, error) {
	src, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST, channels, bufferLen)
	if err != nil {
		return nil, fmt.Errorf("create sample rate converter: %w", err)
	}
	return &Converter{src: src, channels: channels}, nil
}

// Process converts one 16-bit little-endian PCM frame from fromRate to
// toRate. Equal rates pass through untouched. The libsamplerate stream state
// advances with every call.
func (c *Converter) Process(pcm []byte, fromRate, toRate uint32) ([]byte, error) {
	if fromRate == toRate {
		return pcm, nil
	}
	in := convert.Int16ToFloat32(convert.BytesToInt16(pcm))
	ratio := float64(toRate) / float64(fromRate)
	out, err := c.src.Process(in, ratio, false)
	if err != nil {
		return nil, fmt.Errorf("resample %dHz to %dHz: %w", fromRate, toRate, err)
	}
	return convert.Int16ToBytes(convert.Float32ToInt16(out)), nil
}

// Reset clears the stream state, e.g. when audio becomes discontinuous.
func (c *Converter) Reset() error {
	return c.src.Reset()
}

// Close releases the underlying libsamplerate state.
func (c *Converter) Close() error {
	return gosamplerate.Delete(c.src)
}
