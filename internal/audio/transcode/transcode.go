// Package transcode implements the optional per-direction audio conversion
// between the wire format (8kHz 16-bit mono linear PCM) and an
// application-chosen format. Each direction owns one Transcoder; the
// conversion order within a direction is fixed.
package transcode

import (
	"fmt"

	"audiosocket-relay/internal/audio/convert"
	"audiosocket-relay/internal/audio/g711"
	"audiosocket-relay/internal/audio/resample"
)

// Wire format constants for the AudioSocket audio payload.
const (
	WireRate     uint32 = 8000
	WireChannels uint16 = 1
)

// Format describes the application side of one direction. The zero value
// (normalized to 8kHz mono linear) means passthrough.
type Format struct {
	SampleRate uint32
	Channels   uint16
	MuLaw      bool
}

func (f Format) normalized() Format {
	if f.SampleRate == 0 {
		f.SampleRate = WireRate
	}
	if f.Channels == 0 {
		f.Channels = WireChannels
	}
	return f
}

func (f Format) validate() error {
	if f.Channels > 2 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	return nil
}

// Transcoder converts audio for one direction of one connection. toWire
// selects the direction: application format to wire (write path) or wire to
// application format (read path).
type Transcoder struct {
	format    Format
	toWire    bool
	resampler *resample.Converter
}

// NewInput builds the write-path transcoder, converting application audio in
// f to the wire format.
func NewInput(f Format) (*Transcoder, error) {
	return newTranscoder(f, true)
}

// NewOutput builds the read-path transcoder, converting wire audio to f.
func NewOutput(f Format) (*Transcoder, error) {
	return newTranscoder(f, false)
}

func newTranscoder(f Format, toWire bool) (*Transcoder, error) {
	f = f.normalized()
	if err := f.validate(); err != nil {
		return nil, err
	}
	t := &Transcoder{format: f, toWire: toWire}
	if f.SampleRate != WireRate {
		// The write path resamples before the downmix, so it runs at the
		// application's channel count. The read path resamples before the
		// stereo duplication and stays mono.
		channels := int(WireChannels)
		if toWire {
			channels = int(f.Channels)
		}
		r, err := resample.New(channels)
		if err != nil {
			return nil, err
		}
		t.resampler = r
	}
	return t, nil
}

// Process runs the fixed conversion chain on one frame of audio.
//
// Write path: μ-law decode, resample to 8kHz, downmix to mono.
// Read path: μ-law decode, resample from 8kHz, duplicate to stereo.
func (t *Transcoder) Process(audio []byte) ([]byte, error) {
	if t.format.MuLaw {
		audio = g711.MuLawToLinear(audio)
	}
	if t.resampler != nil {
		var err error
		if t.toWire {
			audio, err = t.resampler.Process(audio, t.format.SampleRate, WireRate)
		} else {
			audio, err = t.resampler.Process(audio, WireRate, t.format.SampleRate)
		}
		if err != nil {
			return nil, err
		}
	}
	if t.format.Channels == 2 {
		if t.toWire {
			audio = convert.StereoToMono(audio)
		} else {
			audio = convert.MonoToStereo(audio)
		}
	}
	return audio, nil
}

// Close releases resampler state, if any.
func (t *Transcoder) Close() error {
	if t.resampler == nil {
		return nil
	}
	return t.resampler.Close()
}
