// Package g711 converts between G.711 μ-law telephony encoding and 16-bit
// little-endian linear PCM.
package g711

import "audiosocket-relay/internal/audio/convert"

const (
	muBias = 0x84
	muClip = 32635
)

// DecodeSample expands one μ-law byte to a linear sample.
func DecodeSample(mu byte) int16 {
	mu = ^mu
	sign := mu & 0x80
	exponent := (mu >> 4) & 0x07
	mantissa := mu & 0x0F
	segmentEnd := int16(muBias) << exponent
	step := int16(1) << (exponent + 3)
	value := segmentEnd + (int16(mantissa) * step)
	value -= muBias
	if sign != 0 {
		return -value
	}
	return value
}

// EncodeSample compresses one linear sample to μ-law.
func EncodeSample(sample int16) byte {
	sign := (sample >> 8) & 0x80
	if sign != 0 {
		sample = -sample
	}
	if sample > muClip {
		sample = muClip
	}
	sample += muBias
	exponent := uint8(7)
	mask := int16(0x4000)
	for (sample&mask) == 0 && exponent > 0 {
		mask >>= 1
		exponent--
	}
	mantissa := (sample >> (exponent + 3)) & 0x0F
	return ^(uint8(sign) | (exponent << 4) | uint8(mantissa))
}

// MuLawToLinear expands μ-law bytes to 16-bit PCM. The result is twice the
// input length.
func MuLawToLinear(mu []byte) []byte {
	out := make([]int16, len(mu))
	for i, b := range mu {
		out[i] = DecodeSample(b)
	}
	return convert.Int16ToBytes(out)
}

// LinearToMuLaw compresses 16-bit PCM to μ-law bytes, one byte per sample.
func LinearToMuLaw(pcm []byte) []byte {
	samples := convert.BytesToInt16(pcm)
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = EncodeSample(s)
	}
	return out
}
