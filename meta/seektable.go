package meta

import (
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
)

// PlaceholderSample marks a seek point reserved for future insertion; it
// is retained in Points but skipped by BestSeek.
const PlaceholderSample = 0xFFFFFFFFFFFFFFFF

// SeekPoint locates one frame's start within the stream.
type SeekPoint struct {
	// SampleIndex is the sample number of the first sample in the target
	// frame, or PlaceholderSample.
	SampleIndex uint64
	// ByteOffset is relative to the first byte of the first frame header
	// (i.e. to the end of metadata).
	ByteOffset uint64
	// FrameSamples is the number of samples in the target frame.
	FrameSamples uint16
}

// SeekTable is an optional index of seek points, each 18 bytes on the
// wire: sample index, byte offset, frame sample count.
type SeekTable struct {
	Points []SeekPoint
}

const seekPointSize = 18

// ReadSeekTable parses a SEEKTABLE body of the given length, which must
// be a multiple of 18 bytes.
func ReadSeekTable(r *bits.Reader, length uint32) (*SeekTable, error) {
	if length%seekPointSize != 0 {
		return nil, ferr.Newf(ferr.InvalidData, "seek table length %d is not a multiple of %d", length, seekPointSize)
	}
	count := int(length / seekPointSize)
	st := &SeekTable{Points: make([]SeekPoint, count)}
	for i := 0; i < count; i++ {
		sampleIdx, err := r.ReadUint(32)
		if err != nil {
			return nil, err
		}
		sampleIdxLo, err := r.ReadUint(32)
		if err != nil {
			return nil, err
		}
		offsetHi, err := r.ReadUint(32)
		if err != nil {
			return nil, err
		}
		offsetLo, err := r.ReadUint(32)
		if err != nil {
			return nil, err
		}
		nsamples, err := r.ReadUint(16)
		if err != nil {
			return nil, err
		}
		st.Points[i] = SeekPoint{
			SampleIndex:  uint64(sampleIdx)<<32 | uint64(sampleIdxLo),
			ByteOffset:   uint64(offsetHi)<<32 | uint64(offsetLo),
			FrameSamples: uint16(nsamples),
		}
	}
	return st, nil
}

// BestSeek returns the (sample index, byte offset) of the seek point with
// the greatest sample index not exceeding target, ignoring placeholder
// points, or (0, 0) if none qualify.
func (st *SeekTable) BestSeek(target uint64) (sampleIndex, byteOffset uint64) {
	for _, p := range st.Points {
		if p.SampleIndex == PlaceholderSample {
			continue
		}
		if p.SampleIndex <= target && p.SampleIndex >= sampleIndex {
			sampleIndex = p.SampleIndex
			byteOffset = p.ByteOffset
		}
	}
	return sampleIndex, byteOffset
}
