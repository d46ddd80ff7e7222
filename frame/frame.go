package frame

import (
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
	"github.com/coreflac/flac/internal/tracelog"
)

// Decoder drives subframe decoding for every channel of successive
// frames, reusing two channel-sized scratch buffers across calls so a
// long stream decodes without per-block allocation.
type Decoder struct {
	maxBlockSize int
	temp0, temp1 []int64
}

// NewDecoder prepares scratch buffers sized to maxBlockSize samples. A
// maxBlockSize of 0 (STREAMINFO declares it unknown) falls back to the
// largest block size the format allows.
func NewDecoder(maxBlockSize uint16) *Decoder {
	n := int(maxBlockSize)
	if n == 0 {
		n = 65536
	}
	return &Decoder{
		maxBlockSize: n,
		temp0:        make([]int64, n),
		temp1:        make([]int64, n),
	}
}

// Decode reads one frame, using the stream's declared sample rate and bit
// depth for header fields that inherit them, and writes its decoded
// samples into out[channel][offset:offset+BlockSize] for every channel.
// It does not cross-check the header against STREAMINFO; the caller does
// that with meta.StreamInfo.CheckFrame. The frame's
// encoded byte length (start to end inclusive of both CRCs) is not
// tracked here, since this package has no notion of a stream-absolute
// position; the caller computes it from bits.Reader.Position() before
// and after Decode and cross-checks it itself.
func (d *Decoder) Decode(r *bits.Reader, streamSampleRate uint32, streamBitsPerSample uint8, out [][]int64, offset int) (*Header, error) {
	hdr, err := ReadHeader(r, streamSampleRate, streamBitsPerSample)
	if err != nil {
		return nil, err
	}
	if tracelog.Enabled() {
		tracelog.Logger.Debug().
			Uint32("frame_index", hdr.FrameIndex).
			Uint16("block_size", hdr.BlockSize).
			Uint8("channel_order", uint8(hdr.ChannelOrder)).
			Uint8("bits_per_sample", hdr.BitsPerSample).
			Msg("decoding frame")
	}

	n := int(hdr.BlockSize)
	if n > d.maxBlockSize {
		return nil, ferr.Newf(ferr.InvariantViolation, "block size %d exceeds scratch capacity %d", n, d.maxBlockSize)
	}
	bps := hdr.BitsPerSample

	switch hdr.ChannelOrder {
	case ChannelLeftSide:
		if err := ReadSubframe(r, hdr.BlockSize, bps, d.temp0[:n]); err != nil {
			return nil, err
		}
		if err := ReadSubframe(r, hdr.BlockSize, bps+1, d.temp1[:n]); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			left, side := d.temp0[i], d.temp1[i]
			out[0][offset+i] = left
			out[1][offset+i] = left - side
		}
	case ChannelRightSide:
		if err := ReadSubframe(r, hdr.BlockSize, bps+1, d.temp0[:n]); err != nil {
			return nil, err
		}
		if err := ReadSubframe(r, hdr.BlockSize, bps, d.temp1[:n]); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			side, right := d.temp0[i], d.temp1[i]
			out[0][offset+i] = right + side
			out[1][offset+i] = right
		}
	case ChannelMidSide:
		if err := ReadSubframe(r, hdr.BlockSize, bps, d.temp0[:n]); err != nil {
			return nil, err
		}
		if err := ReadSubframe(r, hdr.BlockSize, bps+1, d.temp1[:n]); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			mid, side := d.temp0[i], d.temp1[i]
			// mid = (L+R)>>1 discards the low bit of L+R; that bit always
			// equals side&1, since L+R and L-R share parity. Go's >> on a
			// signed integer is an arithmetic (sign-extending) shift, so
			// this recovers L+R exactly without any unsigned detour.
			sum := mid<<1 | (side & 1)
			right := (sum - side) >> 1
			out[0][offset+i] = right + side
			out[1][offset+i] = right
		}
	default:
		numCh := int(hdr.ChannelOrder.ChannelCount())
		for ch := 0; ch < numCh; ch++ {
			if err := ReadSubframe(r, hdr.BlockSize, bps, out[ch][offset:offset+n]); err != nil {
				return nil, err
			}
		}
	}

	_, bitPos := r.Position()
	if bitPos != 0 {
		pad, err := r.ReadUint(8 - bitPos)
		if err != nil {
			return nil, err
		}
		if pad != 0 {
			return nil, ferr.New(ferr.InvalidData, "frame footer padding must be 0")
		}
	}

	computed := r.CRC16()
	hi, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	lo, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	streamVal := uint16(hi)<<8 | uint16(lo)
	if streamVal != computed {
		return nil, ferr.Newf(ferr.InvalidData, "crc16: frame checksum mismatch (computed %#04x, stream has %#04x)", computed, streamVal)
	}

	return hdr, nil
}
