package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind is the first byte of every AudioSocket frame.
type Kind byte

// Frame kinds sent by Asterisk. KindHangup is also what we send to request a
// teardown from our side.
const (
	KindHangup  Kind = 0x00
	KindUUID    Kind = 0x01
	KindSilence Kind = 0x02
	KindAudio   Kind = 0x10
	KindError   Kind = 0xff
)

const (
	// HeaderSize is the protocol floor: kind byte plus 16-bit length.
	HeaderSize = 3

	// NominalAudioSize is 20ms of 8kHz 16-bit mono PCM. Asterisk expects
	// exactly this much audio per outbound frame; anything else plays back
	// distorted.
	NominalAudioSize = 320
)

// ErrShortFrame is returned when fewer than HeaderSize bytes are delivered.
var ErrShortFrame = errors.New("frame shorter than 3-byte header")

var kindNames = map[Kind]string{
	KindHangup:  "hangup",
	KindUUID:    "uuid",
	KindSilence: "silence",
	KindAudio:   "audio",
	KindError:   "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(k))
}

// Frame is one decoded AudioSocket message. Length is the value carried in
// the header; Payload is whatever followed the header in the delivered
// segment. The two are not cross-checked, matching the wire behavior of
// Asterisk which sends one frame per segment.
type Frame struct {
	Kind    Kind
	Length  uint16
	Payload []byte
}

// Decode splits a received segment into kind, length and payload. It fails
// only when the segment cannot hold a header.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(data))
	}
	return Frame{
		Kind:    Kind(data[0]),
		Length:  binary.BigEndian.Uint16(data[1:HeaderSize]),
		Payload: data[HeaderSize:],
	}, nil
}

// Encode builds a wire frame from a kind and payload.
func Encode(kind Kind, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = byte(kind)
	binary.BigEndian.PutUint16(buf[1:HeaderSize], uint16(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// EncodeAudio builds an outbound audio frame with exactly NominalAudioSize
// payload bytes: oversized input is truncated, undersized input is
// zero-padded. EncodeAudio(nil) is a silence frame.
func EncodeAudio(audio []byte) []byte {
	buf := make([]byte, HeaderSize+NominalAudioSize)
	buf[0] = byte(KindAudio)
	binary.BigEndian.PutUint16(buf[1:HeaderSize], NominalAudioSize)
	if len(audio) > NominalAudioSize {
		audio = audio[:NominalAudioSize]
	}
	copy(buf[HeaderSize:], audio)
	return buf
}

// EncodeHangup builds the historical hangup sentinel: three zero bytes, i.e.
// kind KindHangup with zero length and no payload.
func EncodeHangup() []byte {
	return make([]byte, HeaderSize)
}

// SilencePayload returns a fresh NominalAudioSize slice of zero samples.
func SilencePayload() []byte {
	return make([]byte, NominalAudioSize)
}

// ErrorCode is the single-byte payload of a KindError frame.
type ErrorCode byte

const (
	ErrCodeNone   ErrorCode = 0x00
	ErrCodeHangup ErrorCode = 0x01
	ErrCodeFrame  ErrorCode = 0x02
	ErrCodeMemory ErrorCode = 0x04
)

var errorCodeNames = map[ErrorCode]string{
	ErrCodeNone:   "no error code present",
	ErrCodeHangup: "the called party hung up",
	ErrCodeFrame:  "failed to forward frame",
	ErrCodeMemory: "memory allocation error",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code 0x%02x", byte(c))
}

// DecodeErrorCode extracts the error classification from a KindError payload.
// An empty payload maps to ErrCodeNone.
func DecodeErrorCode(payload []byte) ErrorCode {
	if len(payload) == 0 {
		return ErrCodeNone
	}
	return ErrorCode(payload[0])
}
