// Package frame parses FLAC audio frames: the header, the per-channel
// subframes, and the channel-decorrelation inversion that turns decoded
// subframe samples back into left/right PCM.
package frame

import (
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
)

// ChannelOrder specifies how a frame's subframes map onto output channels.
type ChannelOrder uint8

// Channel assignments. 0..=7 are independent-channel counts; the last
// three are joint-stereo decorrelation modes.
const (
	ChannelMono        ChannelOrder = 0
	ChannelLR          ChannelOrder = 1
	ChannelLRC         ChannelOrder = 2
	ChannelLRLsRs      ChannelOrder = 3
	ChannelLRCLsRs     ChannelOrder = 4
	ChannelLRCLfeLsRs  ChannelOrder = 5
	Channel7           ChannelOrder = 6
	Channel8           ChannelOrder = 7
	ChannelLeftSide    ChannelOrder = 8
	ChannelRightSide   ChannelOrder = 9
	ChannelMidSide     ChannelOrder = 10
)

var channelCountTable = [11]uint8{1, 2, 3, 4, 5, 6, 7, 8, 2, 2, 2}

// ChannelCount returns the number of output channels this assignment
// produces.
func (o ChannelOrder) ChannelCount() uint8 {
	return channelCountTable[o]
}

// IsJointStereo reports whether this assignment stores two channels as a
// (primary, difference) pair rather than independently.
func (o ChannelOrder) IsJointStereo() bool {
	return o == ChannelLeftSide || o == ChannelRightSide || o == ChannelMidSide
}

// SyncCode is the 14-bit pattern that opens every frame header.
const SyncCode = 0x3FFE

// Header is a parsed frame header: everything needed to decode the
// subframes that follow it, before any sample data has been read.
type Header struct {
	// HasVariableBlockSize is true for variable-blocksize streams, where
	// each frame header carries an absolute sample offset rather than a
	// frame index.
	HasVariableBlockSize bool
	// BlockSize is the number of inter-channel samples in this frame.
	BlockSize uint16
	// SampleRate is the frame's sample rate in Hz. When the header's
	// sample rate code is 0 ("inherit"), ReadHeader stores the stream's rate.
	SampleRate uint32
	// ChannelOrder is the channel assignment/decorrelation mode.
	ChannelOrder ChannelOrder
	// BitsPerSample is the frame's bit depth. When the header's bit depth
	// code is 0 ("inherit"), ReadHeader stores the stream's bit depth.
	BitsPerSample uint8
	// FrameIndex is valid when HasVariableBlockSize is false.
	FrameIndex uint32
	// SampleOffset is valid when HasVariableBlockSize is true.
	SampleOffset uint64
}

var blockSizeTable = [6]uint16{0, 192, 576, 1152, 2304, 4608}
var sampleRateTable = [12]uint32{
	0, 88200, 176400, 192000, 8000, 16000, 22050, 24000, 32000, 44100, 48000, 96000,
}
var bitsPerSampleTable = [8]uint8{0, 8, 12, 0, 16, 20, 24, 0}

// ReadHeader parses a frame header starting at the current, byte-aligned
// reader position. streamSampleRate and streamBitsPerSample are the
// STREAMINFO defaults substituted when the header declares "inherit"
// (code 0) for either field.
func ReadHeader(r *bits.Reader, streamSampleRate uint32, streamBitsPerSample uint8) (*Header, error) {
	r.ResetCRCs()

	sync, err := r.ReadUint(14)
	if err != nil {
		return nil, err
	}
	if sync != SyncCode {
		return nil, ferr.Newf(ferr.InvalidData, "sync: expected %#x, got %#x", SyncCode, sync)
	}
	reserved, err := r.ReadUint(1)
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, ferr.New(ferr.InvalidData, "reserved frame header bit must be 0")
	}
	variable, err := r.ReadUint(1)
	if err != nil {
		return nil, err
	}
	blockSizeCode, err := r.ReadUint(4)
	if err != nil {
		return nil, err
	}
	sampleRateCode, err := r.ReadUint(4)
	if err != nil {
		return nil, err
	}
	chanCode, err := r.ReadUint(4)
	if err != nil {
		return nil, err
	}
	bpsCode, err := r.ReadUint(3)
	if err != nil {
		return nil, err
	}
	reserved, err = r.ReadUint(1)
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, ferr.New(ferr.InvalidData, "reserved frame header bit must be 0")
	}

	hdr := &Header{HasVariableBlockSize: variable != 0}

	if chanCode > 10 {
		return nil, ferr.Newf(ferr.InvalidData, "reserved channel assignment %04b", chanCode)
	}
	hdr.ChannelOrder = ChannelOrder(chanCode)

	switch bpsCode {
	case 0:
		hdr.BitsPerSample = streamBitsPerSample
	case 3, 7:
		return nil, ferr.Newf(ferr.InvalidData, "reserved bit depth code %03b", bpsCode)
	default:
		hdr.BitsPerSample = bitsPerSampleTable[bpsCode]
	}

	if hdr.HasVariableBlockSize {
		v, err := decodeUTF8Int(r, 36)
		if err != nil {
			return nil, err
		}
		hdr.SampleOffset = v
	} else {
		v, err := decodeUTF8Int(r, 31)
		if err != nil {
			return nil, err
		}
		hdr.FrameIndex = uint32(v)
	}

	switch {
	case blockSizeCode == 0:
		return nil, ferr.New(ferr.InvalidData, "reserved block size code 0000")
	case blockSizeCode == 6:
		x, err := r.ReadUint(8)
		if err != nil {
			return nil, err
		}
		hdr.BlockSize = uint16(x) + 1
	case blockSizeCode == 7:
		x, err := r.ReadUint(16)
		if err != nil {
			return nil, err
		}
		hdr.BlockSize = uint16(x) + 1
	case blockSizeCode >= 1 && blockSizeCode <= 5:
		hdr.BlockSize = blockSizeTable[blockSizeCode]
	default: // 8..15
		hdr.BlockSize = 256 << (blockSizeCode - 8)
	}

	switch {
	case sampleRateCode == 0:
		hdr.SampleRate = streamSampleRate
	case sampleRateCode >= 1 && sampleRateCode <= 11:
		hdr.SampleRate = sampleRateTable[sampleRateCode]
	case sampleRateCode == 12:
		x, err := r.ReadUint(8)
		if err != nil {
			return nil, err
		}
		hdr.SampleRate = x * 1000
	case sampleRateCode == 13:
		x, err := r.ReadUint(16)
		if err != nil {
			return nil, err
		}
		hdr.SampleRate = x
	case sampleRateCode == 14:
		x, err := r.ReadUint(16)
		if err != nil {
			return nil, err
		}
		hdr.SampleRate = x * 10
	default: // 15
		return nil, ferr.New(ferr.InvalidData, "invalid sample rate code 1111")
	}

	computed := r.CRC8()
	streamVal, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if streamVal != computed {
		return nil, ferr.Newf(ferr.InvalidData, "crc8: header checksum mismatch (computed %#02x, stream has %#02x)", computed, streamVal)
	}

	return hdr, nil
}
