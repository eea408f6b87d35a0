package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcmOf(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func samplesOf(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestMuLaw_Silence(t *testing.T) {
	assert.Equal(t, int16(0), mulawToLinear(0xFF))
	assert.Equal(t, byte(0xFF), linearToMulaw(0))
}

func TestMuLaw_RoundTripWithinQuantization(t *testing.T) {
	tests := []int16{0, 100, -100, 1000, -1000, 8000, -8000, 30000, -30000, 32767, -32768}

	for _, sample := range tests {
		decoded := mulawToLinear(linearToMulaw(sample))

		diff := abs32(int32(decoded) - int32(sample))
		// step size is about 1/16 of the magnitude
		limit := abs32(int32(sample))/16 + 2*mulawBias
		assert.LessOrEqualf(t, diff, limit, "sample %d decoded as %d", sample, decoded)
	}
}

func TestMuLaw_PreservesSign(t *testing.T) {
	assert.Positive(t, mulawToLinear(linearToMulaw(12000)))
	assert.Negative(t, mulawToLinear(linearToMulaw(-12000)))
}

func TestResample(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		from, to int
		wantLen  int
	}{
		{name: "8k to 24k triples", in: pcmOf(0, 300, 600, 900), from: 8000, to: 24000, wantLen: 24},
		{name: "24k to 8k thirds", in: pcmOf(1, 2, 3, 4, 5, 6), from: 24000, to: 8000, wantLen: 4},
		{name: "24k to 16k", in: pcmOf(1, 2, 3, 4, 5, 6), from: 24000, to: 16000, wantLen: 8},
		{name: "same rate copies", in: pcmOf(7, 8), from: 16000, to: 16000, wantLen: 4},
		{name: "empty input", in: nil, from: 8000, to: 24000, wantLen: 0},
		{name: "odd trailing byte ignored", in: append(pcmOf(5), 0x01), from: 8000, to: 8000, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Resample(tt.in, tt.from, tt.to), tt.wantLen)
		})
	}
}

func TestResample_InterpolatesLinearly(t *testing.T) {
	out := samplesOf(Resample(pcmOf(0, 300), 8000, 24000))

	require.Len(t, out, 6)
	assert.Equal(t, []int16{0, 100, 200, 300, 300, 300}, out)
}

func TestResample_DownsamplePicksSourceSamples(t *testing.T) {
	out := samplesOf(Resample(pcmOf(10, 20, 30, 40, 50, 60), 24000, 8000))

	assert.Equal(t, []int16{10, 40}, out)
}

func TestCarrierConversions(t *testing.T) {
	mulaw := []byte{0xFF, 0xFF, 0xFF, 0xFF}

	pcm := ConvertMuLawToPCM24kHz(mulaw)
	assert.Len(t, pcm, len(mulaw)*3*2)
	for _, s := range samplesOf(pcm) {
		assert.Equal(t, int16(0), s)
	}

	back := ConvertPCM24kHzToMuLaw8kHz(pcm)
	assert.Equal(t, mulaw, back)

	assert.Len(t, ConvertPCM24kHzTo16kHz(pcm), len(pcm)*2/3)
}

func TestBase64Helpers(t *testing.T) {
	encoded := BytesToBase64([]byte{0x00, 0x01, 0xFE})
	decoded, err := Base64ToBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xFE}, decoded)

	_, err = Base64ToBytes("%%%")
	assert.Error(t, err)
}
