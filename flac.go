// Package flac decodes FLAC (Free Lossless Audio Codec) streams: magic
// and metadata ingestion, sequential audio-block decoding, and
// sample-accurate seeking, built on the internal/bits bitstream layer
// and the frame/meta parsers.
package flac

import (
	"io"

	"github.com/coreflac/flac/frame"
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
	"github.com/coreflac/flac/meta"
)

// Magic is the 4-byte signature that opens every FLAC stream.
const Magic = "fLaC"

// Decoder drives sequential and random-access decoding of one FLAC
// stream. It owns the ByteSource and BitReader exclusively; StreamInfo
// and SeekTable, once parsed during NewDecoder, are read-only for the
// rest of the Decoder's lifetime.
type Decoder struct {
	src bits.ByteSource
	r   *bits.Reader

	// StreamInfo is the stream's mandatory metadata block.
	StreamInfo *meta.StreamInfo
	// SeekTable is the optional seek-point index, or nil if the stream
	// carries none.
	SeekTable *meta.SeekTable

	metadataEndPos uint64
	frameDec       *frame.Decoder

	closer io.Closer
}

// Open opens the named file and returns a Decoder ready to read audio.
// Close releases the file.
func Open(path string) (*Decoder, error) {
	fs, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	d, err := NewDecoder(fs)
	if err != nil {
		fs.Close()
		return nil, err
	}
	d.closer = fs
	return d, nil
}

// NewDecoder reads the magic and the metadata blocks from src and
// returns a Decoder positioned at the first audio frame. src is read
// starting at its current position.
func NewDecoder(src bits.ByteSource) (*Decoder, error) {
	r := bits.NewReader(src)

	var magicBuf [4]byte
	if err := r.ReadExact(magicBuf[:]); err != nil {
		return nil, err
	}
	if string(magicBuf[:]) != Magic {
		return nil, ferr.Newf(ferr.InvalidData, "bad magic %q, want %q", magicBuf[:], Magic)
	}

	d := &Decoder{src: src, r: r}
	first := true
	for {
		block, err := meta.ReadBlock(r)
		if err != nil {
			return nil, err
		}
		if first && block.Header.Type != meta.TypeStreamInfo {
			return nil, ferr.Newf(ferr.InvariantViolation, "first metadata block must be STREAMINFO, got type %d", block.Header.Type)
		}
		first = false

		switch body := block.Body.(type) {
		case *meta.StreamInfo:
			if d.StreamInfo != nil {
				return nil, ferr.New(ferr.InvariantViolation, "duplicate STREAMINFO block")
			}
			d.StreamInfo = body
		case *meta.SeekTable:
			if d.SeekTable != nil {
				return nil, ferr.New(ferr.InvariantViolation, "duplicate SEEKTABLE block")
			}
			d.SeekTable = body
		}

		if block.Header.IsLast {
			break
		}
	}
	if d.StreamInfo == nil {
		return nil, ferr.New(ferr.InvariantViolation, "stream has no STREAMINFO block")
	}

	bytePos, _ := r.Position()
	d.metadataEndPos = bytePos
	d.frameDec = frame.NewDecoder(d.StreamInfo.MaxBlockSize)
	return d, nil
}

// Close releases the underlying file, if this Decoder was created by
// Open. A Decoder built directly over a caller-owned ByteSource via
// NewDecoder owns nothing to release.
func (d *Decoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// ChannelCount is a convenience accessor for StreamInfo's channel count,
// i.e. how many rows a ReadAudioBlock/Seek destination must provide.
func (d *Decoder) ChannelCount() int {
	return int(d.StreamInfo.ChannelCount)
}

// ReadAudioBlock decodes the next frame's samples into
// out[channel][off:off+n] for each channel, and returns n, the number
// of inter-channel samples decoded. It returns (0, nil) at the true end
// of stream, i.e. when the reader is already sitting at a byte-aligned
// position at or past the source's length.
func (d *Decoder) ReadAudioBlock(out [][]int64, off int) (int, error) {
	_, n, err := d.decodeFrame(out, off)
	return n, err
}

// decodeFrame decodes one frame into out[:][off:off+n] and returns its
// header along with n, or (nil, 0, nil) at end of stream.
func (d *Decoder) decodeFrame(out [][]int64, off int) (*frame.Header, int, error) {
	bytePos, _ := d.r.Position()
	if bytePos >= d.src.Length() {
		return nil, 0, nil
	}
	hdr, err := d.frameDec.Decode(d.r, d.StreamInfo.SampleRate, d.StreamInfo.BitsPerSample, out, off)
	if err != nil {
		return nil, 0, err
	}
	afterPos, _ := d.r.Position()
	frameSize := afterPos - bytePos
	if err := d.StreamInfo.CheckFrame(hdr, frameSize); err != nil {
		return nil, 0, err
	}
	return hdr, int(hdr.BlockSize), nil
}

// frameSamplePos returns a frame header's absolute first-sample index:
// its own sample_offset for variable-blocksize streams, or
// frame_index*maxBlockSize for fixed-blocksize streams (see
// DESIGN.md's Open Question resolution for why the latter, rather than
// a running sum of actual block sizes, is used).
func frameSamplePos(hdr *frame.Header, maxBlockSize uint16) uint64 {
	if hdr.HasVariableBlockSize {
		return hdr.SampleOffset
	}
	return uint64(hdr.FrameIndex) * uint64(maxBlockSize)
}
