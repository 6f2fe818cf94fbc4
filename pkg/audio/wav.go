package audio

import (
	"encoding/binary"
	"errors"
)

// WAVMimeType is the media type of EncodeWAV output.
const WAVMimeType = "audio/wav"

// EncodeWAV wraps little-endian PCM16 in a RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.New("invalid wav format")
	}
	if len(pcm)%2 != 0 {
		return nil, ErrOddLength
	}
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, 44+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out, nil
}

// SpeechToWAV converts mono PCM16 at inRate to a WAV clip at outRate.
func SpeechToWAV(pcm []byte, inRate, outRate int) ([]byte, error) {
	if outRate <= 0 || outRate == inRate {
		return EncodeWAV(pcm, inRate, 1)
	}
	samples, err := BytesToInt16(pcm)
	if err != nil {
		return nil, err
	}
	resampled, err := Resample(samples, inRate, outRate)
	if err != nil {
		return nil, err
	}
	return EncodeWAV(Int16ToBytes(resampled), outRate, 1)
}
