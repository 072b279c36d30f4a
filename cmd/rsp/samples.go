package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pior/rsp/frame"
)

// readSamples reads raw little-endian signed integer samples.
func readSamples(r io.Reader, format string) ([]int32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch format {
	case "s16le":
		return unpack(data, 16, format)
	case "s24le":
		return unpack(data, 24, format)
	case "s32le":
		if len(data)%4 != 0 {
			return nil, fmt.Errorf("input of %d bytes is not a whole number of %s samples", len(data), format)
		}
		samples := make([]int32, len(data)/4)
		for i := range samples {
			samples[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("unknown sample format %q", format)
	}
}

func unpack(data []byte, bitDepth int, format string) ([]int32, error) {
	samples, err := frame.UnpackSamples(data, bitDepth)
	if err != nil {
		return nil, fmt.Errorf("input of %d bytes is not a whole number of %s samples", len(data), format)
	}
	return samples, nil
}
