// Package audio converts speech synthesis output into playable clips.
package audio

import (
	"errors"
	"math"
)

// ErrOddLength is returned for PCM16 byte streams with a dangling byte.
var ErrOddLength = errors.New("pcm16 payload has odd length")

// BytesToInt16 decodes little-endian PCM16.
func BytesToInt16(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return out, nil
}

// Int16ToBytes encodes samples as little-endian PCM16.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		out[2*i] = byte(sample)
		out[2*i+1] = byte(sample >> 8)
	}
	return out
}

func int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, sample := range samples {
		out[i] = float32(sample) / float32(math.MaxInt16)
	}
	return out
}

func float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, sample := range samples {
		switch {
		case sample > 1.0:
			out[i] = math.MaxInt16
		case sample < -1.0:
			out[i] = math.MinInt16
		default:
			out[i] = int16(sample * math.MaxInt16)
		}
	}
	return out
}
