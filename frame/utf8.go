package frame

import (
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
)

// decodeUTF8Int reads the UTF-8-style variable-length integer that opens
// the tail of a frame header: a leading byte whose run of leading one
// bits gives the total byte count, followed by one fewer "10xxxxxx"
// continuation bytes than that count. maxBits caps the decoded value (31 for frame_index,
// 36 for sample_offset), matching the two distinct caps the format uses
// for fixed- versus variable-blocksize streams.
func decodeUTF8Int(r *bits.Reader, maxBits uint) (uint64, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	leadingOnes := 0
	for leadingOnes < 8 && first&(0x80>>uint(leadingOnes)) != 0 {
		leadingOnes++
	}

	switch leadingOnes {
	case 0:
		return uint64(first), nil
	case 1, 8:
		return 0, ferr.Newf(ferr.InvalidData, "invalid utf-8 coded integer leading byte %#02x", first)
	}

	numContinuation := leadingOnes - 1
	// The leading byte's value bits are whatever remains after the
	// leadingOnes marker bits and the following 0 separator bit.
	value := uint64(first) & (0xFF >> uint(leadingOnes+1))
	for i := 0; i < numContinuation; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b&0xC0 != 0x80 {
			return 0, ferr.Newf(ferr.InvalidData, "invalid utf-8 coded integer continuation byte %#02x", b)
		}
		value = value<<6 | uint64(b&0x3F)
	}

	if maxBits < 64 && value >= uint64(1)<<maxBits {
		return 0, ferr.Newf(ferr.InvalidData, "utf-8 coded integer %d exceeds %d-bit cap", value, maxBits)
	}
	return value, nil
}
