// Package audio converts between the sample formats the carriers and the
// realtime models speak: G.711 µ-law at 8 kHz and 16-bit little-endian
// mono PCM at 8, 16 or 24 kHz.
package audio

import (
	"encoding/base64"
	"encoding/binary"
)

// Sample rates used on the wire.
const (
	RateTelephony = 8000
	RateGemini    = 16000
	RateRealtime  = 24000
)

// ConvertMuLawToPCM24kHz turns a Twilio media payload into realtime model input.
func ConvertMuLawToPCM24kHz(mulaw []byte) []byte {
	return Resample(MuLawToPCM16(mulaw), RateTelephony, RateRealtime)
}

// ConvertPCM24kHzToMuLaw8kHz turns realtime model output into a Twilio media payload.
func ConvertPCM24kHzToMuLaw8kHz(pcm24k []byte) []byte {
	return PCM16ToMuLaw(Resample(pcm24k, RateRealtime, RateTelephony))
}

// ConvertPCM24kHzTo16kHz turns 24 kHz call audio into Gemini Live input.
func ConvertPCM24kHzTo16kHz(pcm24k []byte) []byte {
	return Resample(pcm24k, RateRealtime, RateGemini)
}

// MuLawToPCM16 decodes µ-law bytes to 16-bit PCM at the same rate.
func MuLawToPCM16(mulaw []byte) []byte {
	pcm := make([]byte, len(mulaw)*2)
	for i, b := range mulaw {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(mulawToLinear(b)))
	}
	return pcm
}

// PCM16ToMuLaw encodes 16-bit PCM to µ-law at the same rate. A trailing odd
// byte is ignored.
func PCM16ToMuLaw(pcm []byte) []byte {
	mulaw := make([]byte, len(pcm)/2)
	for i := range mulaw {
		mulaw[i] = linearToMulaw(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return mulaw
}

// Resample converts 16-bit PCM between sample rates with linear interpolation.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	samples := len(pcm) / 2
	if samples == 0 || fromRate <= 0 || toRate <= 0 {
		return []byte{}
	}
	if fromRate == toRate {
		out := make([]byte, samples*2)
		copy(out, pcm)
		return out
	}

	outSamples := int(int64(samples) * int64(toRate) / int64(fromRate))
	out := make([]byte, outSamples*2)
	for i := 0; i < outSamples; i++ {
		// position in the source, as an integer part and a remainder over toRate
		num := int64(i) * int64(fromRate)
		idx := int(num / int64(toRate))
		frac := num % int64(toRate)

		current := int64(sampleAt(pcm, idx))
		next := current
		if idx+1 < samples {
			next = int64(sampleAt(pcm, idx+1))
		}
		value := current + (next-current)*frac/int64(toRate)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(value)))
	}
	return out
}

func sampleAt(pcm []byte, idx int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[idx*2:]))
}

func Base64ToBytes(base64String string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64String)
}

func BytesToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

const (
	mulawBias = 0x84
	mulawClip = 32635
)

func mulawToLinear(mulawByte byte) int16 {
	mulawByte = ^mulawByte

	sign := mulawByte & 0x80
	exponent := (mulawByte >> 4) & 0x07
	mantissa := mulawByte & 0x0F

	sample := ((int32(mantissa) << 3) + mulawBias) << exponent
	sample -= mulawBias

	if sign != 0 {
		return int16(-sample)
	}
	return int16(sample)
}

func linearToMulaw(sample int16) byte {
	s := int32(sample)
	sign := byte(0)
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	// exponent is the position of the highest set bit above bit 7
	exponent := byte(7)
	for mask := int32(0x4000); exponent > 0 && s&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((s >> (exponent + 3)) & 0x0F)

	return ^(sign | exponent<<4 | mantissa)
}
