package meta

import (
	"github.com/coreflac/flac/frame"
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
)

// StreamInfo holds the one mandatory, stream-wide metadata block. It is
// immutable once parsed and validated.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	ChannelCount  uint8
	BitsPerSample uint8
	SampleCount   uint64
	MD5sum        [16]byte
}

// ReadStreamInfo parses the 34-byte STREAMINFO body and validates it
// against the invariants of the format (not against any later frame —
// see CheckFrame for that).
func ReadStreamInfo(r *bits.Reader) (*StreamInfo, error) {
	si := &StreamInfo{}

	minBlock, err := r.ReadUint(16)
	if err != nil {
		return nil, err
	}
	si.MinBlockSize = uint16(minBlock)

	maxBlock, err := r.ReadUint(16)
	if err != nil {
		return nil, err
	}
	si.MaxBlockSize = uint16(maxBlock)

	minFrame, err := r.ReadUint(24)
	if err != nil {
		return nil, err
	}
	si.MinFrameSize = minFrame

	maxFrame, err := r.ReadUint(24)
	if err != nil {
		return nil, err
	}
	si.MaxFrameSize = maxFrame

	sampleRate, err := r.ReadUint(20)
	if err != nil {
		return nil, err
	}
	si.SampleRate = sampleRate

	chans, err := r.ReadUint(3)
	if err != nil {
		return nil, err
	}
	si.ChannelCount = uint8(chans) + 1

	bps, err := r.ReadUint(5)
	if err != nil {
		return nil, err
	}
	si.BitsPerSample = uint8(bps) + 1

	sampleCountHi, err := r.ReadUint(4)
	if err != nil {
		return nil, err
	}
	sampleCountLo, err := r.ReadUint(32)
	if err != nil {
		return nil, err
	}
	si.SampleCount = uint64(sampleCountHi)<<32 | uint64(sampleCountLo)

	if err := r.ReadExact(si.MD5sum[:]); err != nil {
		return nil, err
	}

	if err := si.Validate(); err != nil {
		return nil, err
	}
	return si, nil
}

// Validate enforces the structural invariants of §3: block-size and
// sample-rate ranges, frame-size ordering, and channel/bit-depth bounds.
func (si *StreamInfo) Validate() error {
	if si.MinBlockSize < 16 || si.MinBlockSize > si.MaxBlockSize {
		return ferr.Newf(ferr.InvariantViolation, "invalid block size range [%d, %d]", si.MinBlockSize, si.MaxBlockSize)
	}
	if si.MaxBlockSize > 65535 {
		return ferr.Newf(ferr.InvariantViolation, "max block size %d exceeds 65535", si.MaxBlockSize)
	}
	if si.MinFrameSize != 0 && si.MaxFrameSize != 0 && si.MinFrameSize > si.MaxFrameSize {
		return ferr.Newf(ferr.InvariantViolation, "min frame size %d exceeds max frame size %d", si.MinFrameSize, si.MaxFrameSize)
	}
	if si.SampleRate == 0 || si.SampleRate > 655350 {
		return ferr.Newf(ferr.InvariantViolation, "sample rate %d out of range (1..655350)", si.SampleRate)
	}
	if si.ChannelCount < 1 || si.ChannelCount > 8 {
		return ferr.Newf(ferr.InvariantViolation, "channel count %d out of range (1..8)", si.ChannelCount)
	}
	if si.BitsPerSample < 4 || si.BitsPerSample > 32 {
		return ferr.Newf(ferr.InvariantViolation, "bits per sample %d out of range (4..32)", si.BitsPerSample)
	}
	return nil
}

// CheckFrame cross-validates a parsed frame header, and the encoded byte
// length of the frame that produced it, against this stream's declared
// properties. A header's sample-rate/bit-depth fields, when non-zero,
// must match (frame.ReadHeader already stores the stream's values for
// fields the header inherits) — a mismatch means the stream lied about
// itself, not that one side wins.
//
// frameSize is the caller's byte-position delta across the decode (start
// of the frame sync code through the end of the frame footer's CRC-16,
// inclusive). MinFrameSize/MaxFrameSize of 0 means "unknown" per the
// format and are skipped, matching the same convention StreamInfo.
// Validate already applies to the declared range itself.
func (si *StreamInfo) CheckFrame(hdr *frame.Header, frameSize uint64) error {
	wantChannels := uint8(hdr.ChannelOrder.ChannelCount())
	if wantChannels != si.ChannelCount {
		return ferr.Newf(ferr.InvariantViolation, "frame declares %d channels, stream info declares %d", wantChannels, si.ChannelCount)
	}
	if hdr.SampleRate != 0 && hdr.SampleRate != si.SampleRate {
		return ferr.Newf(ferr.InvariantViolation, "frame sample rate %d disagrees with stream info %d", hdr.SampleRate, si.SampleRate)
	}
	if hdr.BitsPerSample != 0 && hdr.BitsPerSample != si.BitsPerSample {
		return ferr.Newf(ferr.InvariantViolation, "frame bit depth %d disagrees with stream info %d", hdr.BitsPerSample, si.BitsPerSample)
	}
	if hdr.BlockSize > si.MaxBlockSize {
		return ferr.Newf(ferr.InvariantViolation, "frame block size %d exceeds stream info max %d", hdr.BlockSize, si.MaxBlockSize)
	}
	if si.SampleCount != 0 && uint64(hdr.BlockSize) > si.SampleCount {
		return ferr.Newf(ferr.InvariantViolation, "frame block size %d exceeds total sample count %d", hdr.BlockSize, si.SampleCount)
	}
	if si.MinFrameSize != 0 && frameSize < uint64(si.MinFrameSize) {
		return ferr.Newf(ferr.InvariantViolation, "frame size %d is below stream info min %d", frameSize, si.MinFrameSize)
	}
	if si.MaxFrameSize != 0 && frameSize > uint64(si.MaxFrameSize) {
		return ferr.Newf(ferr.InvariantViolation, "frame size %d exceeds stream info max %d", frameSize, si.MaxFrameSize)
	}
	return nil
}
