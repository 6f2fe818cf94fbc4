package audio

import (
	"sync"

	resampler "github.com/godeps/go-audio-soxr"
)

type soxrKey struct {
	inRate  int
	outRate int
}

var soxrPools sync.Map

func soxrPool(key soxrKey) *sync.Pool {
	if pool, ok := soxrPools.Load(key); ok {
		return pool.(*sync.Pool)
	}
	actual, _ := soxrPools.LoadOrStore(key, &sync.Pool{})
	return actual.(*sync.Pool)
}

func acquireResampler(key soxrKey) (*resampler.SimpleResamplerFloat32, error) {
	if v := soxrPool(key).Get(); v != nil {
		if r, ok := v.(*resampler.SimpleResamplerFloat32); ok && r != nil {
			return r, nil
		}
	}
	return resampler.NewEngineFloat32(float64(key.inRate), float64(key.outRate), resampler.QualityHigh)
}

func releaseResampler(key soxrKey, r *resampler.SimpleResamplerFloat32) {
	r.Reset()
	soxrPool(key).Put(r)
}

// Resample converts mono PCM16 from inRate to outRate. Equal rates return
// the input unchanged.
func Resample(pcm []int16, inRate, outRate int) ([]int16, error) {
	if inRate == outRate || inRate <= 0 || outRate <= 0 || len(pcm) == 0 {
		return pcm, nil
	}
	key := soxrKey{inRate: inRate, outRate: outRate}
	r, err := acquireResampler(key)
	if err != nil {
		return nil, err
	}
	defer releaseResampler(key, r)

	out, err := r.Process(int16ToFloat32(pcm))
	if err != nil {
		return nil, err
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, err
	}
	return float32ToInt16(append(out, tail...)), nil
}
