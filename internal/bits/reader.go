// Package bits implements the FLAC bitstream's low-level input layer: a
// byte-random-access source contract, a big-endian bit reader with
// simultaneous CRC-8/CRC-16 accumulation, and the Rice/Golomb batch decoder
// built on the lookup tables in rice.go.
//
// The teacher (github.com/mewkiz/flac) modeled this layer as a handful of
// ad-hoc helpers wrapping github.com/icza/bitio and github.com/eaburns/bit
// at different points in its history; this package keeps bitio's bit-mask
// and sign-extension vocabulary (IntN, zigzag) but owns its own byte buffer
// so the Rice batch path can peek 13 bits ahead without going through an
// io.Reader per bit, and so CRC accumulation can be applied lazily at
// exactly the byte granularity spec.md §4.2.3 requires.
package bits

import (
	"github.com/coreflac/flac/internal/ferr"
	"github.com/mewkiz/pkg/hashutil/crc16"
	"github.com/mewkiz/pkg/hashutil/crc8"
)

// ByteSource is a random-access byte source: a file- or memory-backed blob
// that supports length queries, absolute seeks, and synchronous reads.
// A read never reports success with zero bytes; EOF is reported by
// setting ok to false.
type ByteSource interface {
	// Length reports the total number of bytes available.
	Length() uint64
	// Position reports the current absolute read offset.
	Position() uint64
	// Seek repositions the next read to the given absolute offset. Seeking
	// past the end is allowed; subsequent reads report EOF.
	Seek(pos uint64)
	// Read fills buf with up to len(buf) bytes starting at the current
	// position, advancing it by the number of bytes read. ok is false only
	// at EOF (n is always 0 in that case); a successful read always
	// returns n > 0.
	Read(buf []byte) (n int, ok bool)
}

const byteBufSize = 4096

// Reader is the big-endian bit-level reader composed over a ByteSource. It
// owns exactly one 4 KiB byte buffer and one 64-bit bit buffer; see
// spec.md §4.2 for the state this mirrors field-for-field.
type Reader struct {
	src ByteSource

	buf      [byteBufSize]byte
	bufLen   int
	bufPos   int
	bufStart uint64 // absolute stream offset of buf[0]

	bitBuf uint64
	bitLen uint8

	crc8  uint8
	crc16 uint16
	crcAt uint64 // absolute offset up to which CRCs have been applied
}

// NewReader wraps src. The reader starts at src's current position.
func NewReader(src ByteSource) *Reader {
	pos := src.Position()
	return &Reader{src: src, bufStart: pos, crcAt: pos}
}

// Position returns the byte offset of the next bit to read, and that bit's
// offset (0..7) within the byte, 0 meaning byte-aligned.
func (r *Reader) Position() (bytePos uint64, bitPos uint8) {
	consumedBytes := uint64(r.bitLen+7) / 8
	bytePos = r.bufStart + uint64(r.bufPos) - consumedBytes
	bitPos = uint8(8-r.bitLen%8) % 8
	return bytePos, bitPos
}

// Seek discards both buffers and resets both CRCs, then repositions the
// underlying source. Matches spec.md §4.2's seek contract: a seek always
// starts a fresh CRC coverage window.
func (r *Reader) Seek(pos uint64) {
	r.src.Seek(pos)
	r.bufLen = 0
	r.bufPos = 0
	r.bufStart = pos
	r.bitBuf = 0
	r.bitLen = 0
	r.crc8 = 0
	r.crc16 = 0
	r.crcAt = pos
}

// commitCRC folds buf[crcAt-bufStart : uptoIdx] into the running CRC
// accumulators and advances crcAt. Called both when an explicit CRC is
// requested (uptoIdx stops short of any bytes pulled into bitBuf but not
// yet consumed) and when the byte buffer is about to be refilled (uptoIdx
// reaches everything currently in buf, since those bytes would otherwise
// become unrecoverable once overwritten).
func (r *Reader) commitCRC(uptoIdx int) {
	start := int(r.crcAt - r.bufStart)
	if uptoIdx > start {
		chunk := r.buf[start:uptoIdx]
		r.crc8 = crc8.Update(r.crc8, crc8.ATMTable, chunk)
		r.crc16 = crc16.Update(r.crc16, crc16.IBMTable, chunk)
		r.crcAt = r.bufStart + uint64(uptoIdx)
	}
}

// commitConsumed folds in only the bytes that have actually been consumed
// by a read so far (excluding any whole bytes sitting pulled-ahead in
// bitBuf but not yet returned to a caller), per spec.md §4.2.3's exclusion
// rule for trailing buffered, unread bytes.
func (r *Reader) commitConsumed() {
	consumedBytes := int(r.bitLen+7) / 8
	r.commitCRC(r.bufPos - consumedBytes)
}

// ResetCRCs commits any pending consumed bytes, then zeroes both
// accumulators so the next CRC8/CRC16 call covers only what follows.
func (r *Reader) ResetCRCs() {
	r.commitConsumed()
	r.crc8 = 0
	r.crc16 = 0
}

// CRC8 returns the running CRC-8 over all bytes consumed since the last
// reset. Byte-aligned callers only (see spec.md §4.2).
func (r *Reader) CRC8() uint8 {
	r.commitConsumed()
	return r.crc8
}

// CRC16 returns the running CRC-16 over all bytes consumed since the last
// reset. Byte-aligned callers only.
func (r *Reader) CRC16() uint16 {
	r.commitConsumed()
	return r.crc16
}

// refill pulls more bytes from the source into buf, committing CRCs over
// the outgoing contents first (they are about to become unrecoverable).
func (r *Reader) refill() error {
	r.commitCRC(r.bufLen)
	n, ok := r.src.Read(r.buf[:])
	if !ok {
		return ferr.New(ferr.UnexpectedEOF, "byte source exhausted")
	}
	r.bufStart += uint64(r.bufLen)
	r.bufLen = n
	r.bufPos = 0
	return nil
}

// nextByte returns the next raw byte from the stream, refilling buf from
// the source if necessary.
func (r *Reader) nextByte() (byte, error) {
	if r.bufPos == r.bufLen {
		if err := r.refill(); err != nil {
			return 0, err
		}
	}
	b := r.buf[r.bufPos]
	r.bufPos++
	return b, nil
}

// fill ensures at least n bits are buffered, pulling whole bytes from the
// source as needed. Bits are appended to the low end of bitBuf, per
// spec.md §4.2.1's bit-buffer discipline.
func (r *Reader) fill(n uint8) error {
	for r.bitLen < n {
		b, err := r.nextByte()
		if err != nil {
			return err
		}
		r.bitBuf = r.bitBuf<<8 | uint64(b)
		r.bitLen += 8
	}
	return nil
}

// topUpFromBuffer pulls bytes into bitBuf only from the already-buffered
// byte window, never touching the source. Used by the Rice batch fast
// path, which must stop batching the moment only the source could supply
// more bytes (spec.md §4.2.2).
func (r *Reader) topUpFromBuffer(target uint8) {
	for r.bitLen < target && r.bufPos < r.bufLen && r.bitLen <= 56 {
		b := r.buf[r.bufPos]
		r.bufPos++
		r.bitBuf = r.bitBuf<<8 | uint64(b)
		r.bitLen += 8
	}
}

// ReadUint reads the next n bits (0..32), most-significant bit first.
func (r *Reader) ReadUint(n uint8) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := r.fill(n); err != nil {
		return 0, err
	}
	shift := r.bitLen - n
	mask := uint64(1)<<n - 1 // safe for n==32: 1<<32 does not overflow uint64
	v := (r.bitBuf >> shift) & mask
	r.bitLen = shift
	return uint32(v), nil
}

// ReadSigned reads the next n bits and sign-extends them from an n-bit
// two's-complement value. n == 0 always yields 0 (a zero-width field has
// no sign bit to extend).
func (r *Reader) ReadSigned(n uint8) (int32, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	return int32(IntN(uint64(v), uint(n))), nil
}

// ReadSigned64 is ReadSigned widened to int64, used for subframe samples at
// bit depths up to 33 bits (32-bit depth plus one side-channel headroom
// bit) where int32 would overflow.
func (r *Reader) ReadSigned64(n uint8) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	return IntN(uint64(v), uint(n)), nil
}

// ReadByte reads one byte-aligned byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.bitLen%8 != 0 {
		return 0, ferr.New(ferr.InvariantViolation, "ReadByte called while not byte-aligned")
	}
	v, err := r.ReadUint(8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// ReadExact fills buf with byte-aligned bytes.
func (r *Reader) ReadExact(buf []byte) error {
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// ReadUnary decodes an unary-coded non-negative integer: the number of 0
// bits before the first 1 bit. limit bounds the quotient to guard against
// corrupt streams that never terminate the unary run: the returned value
// is always strictly less than limit, so callers that size limit to keep
// q<<k|rem inside a safe bit width can rely on the bound holding even at
// the boundary, not just past it.
func (r *Reader) ReadUnary(limit uint64) (uint64, error) {
	var q uint64
	for {
		b, err := r.ReadUint(1)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			return q, nil
		}
		q++
		if q >= limit {
			return 0, ferr.New(ferr.InvalidData, "residual too large")
		}
	}
}

// ReadRiceBatch decodes end-start signed Rice residuals with parameter
// param into out[start:end], using the batch lookup tables in rice.go
// whenever four residuals' worth of lookahead (4*13 bits) is already
// sitting in the byte buffer, and falling back to the scalar decoder
// (unary prefix + k-bit remainder) otherwise. param must be 0..30.
func (r *Reader) ReadRiceBatch(param uint8, out []int64, start, end int) error {
	if param > maxRiceParam {
		return ferr.Newf(ferr.InvalidData, "invalid rice parameter %d", param)
	}
	tbl := &riceTables[param]
	i := start
	for i < end {
		if end-i >= 4 {
			r.topUpFromBuffer(4 * riceLookaheadBits)
			if r.bitLen >= 4*riceLookaheadBits {
				saveBuf, saveLen := r.bitBuf, r.bitLen
				var vals [4]int64
				hit := true
				for j := 0; j < 4; j++ {
					window := (r.bitBuf >> (r.bitLen - riceLookaheadBits)) & (riceLookaheadSize - 1)
					c := tbl.consumed[window]
					if c == 0 {
						hit = false
						break
					}
					vals[j] = tbl.value[window]
					r.bitLen -= c
				}
				if hit {
					out[i], out[i+1], out[i+2], out[i+3] = vals[0], vals[1], vals[2], vals[3]
					i += 4
					continue
				}
				r.bitBuf, r.bitLen = saveBuf, saveLen
			}
		}
		v, err := r.decodeRiceScalar(uint(param))
		if err != nil {
			return err
		}
		out[i] = v
		i++
	}
	return nil
}

// decodeRiceScalar decodes a single Rice-coded residual bit by bit. It is
// the universal fallback: correct for every k, just slower than the
// lookup-table batch path.
func (r *Reader) decodeRiceScalar(k uint) (int64, error) {
	limit := uint64(1) << (53 - k)
	q, err := r.ReadUnary(limit)
	if err != nil {
		return 0, err
	}
	var rem uint32
	if k > 0 {
		rem, err = r.ReadUint(uint8(k))
		if err != nil {
			return 0, err
		}
	}
	combined := q<<k | uint64(rem)
	return DecodeZigZag64(combined), nil
}

// Discard reads and ignores the given number of byte-aligned bytes,
// without materializing them in caller-visible memory. Used for metadata
// blocks whose bodies are opaque to this module (anything but STREAMINFO
// and SEEKTABLE), per spec.md §1.
func (r *Reader) Discard(n uint64) error {
	var scratch [byteBufSize]byte
	for n > 0 {
		chunk := uint64(len(scratch))
		if n < chunk {
			chunk = n
		}
		if err := r.ReadExact(scratch[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
