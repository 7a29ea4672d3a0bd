// Package g711 implements ITU-T G.711 mu-law companding, the 8-bit
// logarithmic telephony encoding used by the provider's media stream.
// Both directions are total functions: every byte is a valid mu-law code
// and every PCM16 sample has an encoding.
package g711

const (
	bias = 0x84
	clip = 32635
)

// ulawToLinear maps each mu-law code to its PCM16 value.
var ulawToLinear [256]int16

func init() {
	for i := 0; i < 256; i++ {
		u := ^byte(i)
		exponent := (u >> 4) & 0x07
		mantissa := u & 0x0F
		magnitude := ((int32(mantissa) << 3) + bias) << exponent
		magnitude -= bias
		if u&0x80 != 0 {
			magnitude = -magnitude
		}
		ulawToLinear[i] = int16(magnitude)
	}
}

// DecodeULaw expands mu-law bytes to PCM16 samples. Output length equals
// input length.
func DecodeULaw(in []byte) []int16 {
	out := make([]int16, len(in))
	DecodeULawTo(out, in)
	return out
}

// DecodeULawTo expands mu-law bytes into out, which must be at least
// len(in) samples long.
func DecodeULawTo(out []int16, in []byte) {
	for i, b := range in {
		out[i] = ulawToLinear[b]
	}
}

// EncodeULaw compresses PCM16 samples to mu-law bytes. Lossy: the result
// quantizes to 8 bits, but re-encoding a decoded mu-law byte always
// yields the original byte.
func EncodeULaw(in []int16) []byte {
	out := make([]byte, len(in))
	EncodeULawTo(out, in)
	return out
}

// EncodeULawTo compresses PCM16 samples into out, which must be at least
// len(in) bytes long.
func EncodeULawTo(out []byte, in []int16) {
	for i, s := range in {
		out[i] = encodeSample(s)
	}
}

func encodeSample(s int16) byte {
	// Work in int32: negating math.MinInt16 overflows int16.
	v := int32(s)
	var sign byte
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > clip {
		v = clip
	}
	v += bias

	// Exponent is the position of the highest set bit above bit 7.
	exponent := byte(7)
	for mask := int32(0x4000); mask != 0 && v&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(v>>(exponent+3)) & 0x0F

	return ^(sign | exponent<<4 | mantissa)
}
