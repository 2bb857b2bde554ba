// Package convert holds sample-format helpers shared by the transcoding
// pipeline: 16-bit little-endian PCM byte slices to and from int16/float32
// sample slices, plus mono/stereo channel mixing.
package convert

import "encoding/binary"

// Int16ToBytes converts int16 samples to little-endian PCM bytes.
func Int16ToBytes(src []int16) []byte {
	dst := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(dst[i*2:i*2+2], uint16(v))
	}
	return dst
}

// BytesToInt16 converts little-endian PCM bytes to int16 samples.
// A trailing odd byte is dropped.
func BytesToInt16(src []byte) []int16 {
	dst := make([]int16, len(src)/2)
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2 : i*2+2]))
	}
	return dst
}

func Int16ToFloat32(src []int16) []float32 {
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = float32(v) / 32767.0
	}
	return dst
}

func Float32ToInt16(src []float32) []int16 {
	dst := make([]int16, len(src))
	for i, v := range src {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = int16(v * 32767)
	}
	return dst
}

// MonoToStereo duplicates every mono sample into a left/right pair.
func MonoToStereo(pcm []byte) []byte {
	samples := BytesToInt16(pcm)
	dst := make([]int16, len(samples)*2)
	for i, s := range samples {
		dst[i*2] = s
		dst[i*2+1] = s
	}
	return Int16ToBytes(dst)
}

// StereoToMono downmixes interleaved stereo by averaging each pair.
func StereoToMono(pcm []byte) []byte {
	samples := BytesToInt16(pcm)
	dst := make([]int16, len(samples)/2)
	for i := range dst {
		left := int32(samples[i*2])
		right := int32(samples[i*2+1])
		dst[i] = int16((left + right) / 2)
	}
	return Int16ToBytes(dst)
}
