package frame

import "errors"

// ErrUnsupportedBitDepth is returned for bit depths other than 16 and 24.
var ErrUnsupportedBitDepth = errors.New("frame: unsupported bit depth")

// BytesPerSample returns the packed width of one sample at bitDepth.
func BytesPerSample(bitDepth int) (int, error) {
	switch bitDepth {
	case 16:
		return 2, nil
	case 24:
		return 3, nil
	default:
		return 0, ErrUnsupportedBitDepth
	}
}

// PackSamples packs samples as little-endian integers of bitDepth bits.
//
// At 16 bits each sample is truncated to its low 2 bytes, at 24 bits to its
// low 3 bytes.
func PackSamples(samples []int32, bitDepth int) ([]byte, error) {
	width, err := BytesPerSample(bitDepth)
	if err != nil {
		return nil, err
	}
	return AppendSamples(make([]byte, 0, len(samples)*width), samples, bitDepth)
}

// AppendSamples is PackSamples appending to dst.
func AppendSamples(dst []byte, samples []int32, bitDepth int) ([]byte, error) {
	switch bitDepth {
	case 16:
		for _, s := range samples {
			dst = append(dst, byte(s), byte(s>>8))
		}
	case 24:
		for _, s := range samples {
			dst = append(dst, byte(s), byte(s>>8), byte(s>>16))
		}
	default:
		return nil, ErrUnsupportedBitDepth
	}
	return dst, nil
}

// UnpackSamples reverses PackSamples, sign-extending every sample.
// A trailing partial sample is an error.
func UnpackSamples(block []byte, bitDepth int) ([]int32, error) {
	width, err := BytesPerSample(bitDepth)
	if err != nil {
		return nil, err
	}
	if len(block)%width != 0 {
		return nil, ErrInvalidFrame
	}

	samples := make([]int32, len(block)/width)
	for i := range samples {
		b := block[i*width:]
		switch width {
		case 2:
			samples[i] = int32(int16(uint16(b[0]) | uint16(b[1])<<8))
		case 3:
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			samples[i] = v << 8 >> 8
		}
	}
	return samples, nil
}
