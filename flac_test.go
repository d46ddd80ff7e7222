package flac_test

import (
	"bytes"
	"testing"

	"github.com/icza/bitio"

	"github.com/coreflac/flac"
)

// bitWriter is a minimal MSB-first bit packer used only to hand-construct
// FLAC frames for these tests; it mirrors internal/bits.Reader's bit
// order but writes instead of reads. It wraps bitio.Writer the same way
// the teacher's own internal/bits test fixtures build bitstreams to feed
// to the decoder under test.
type bitWriter struct {
	buf *bytes.Buffer
	bw  *bitio.Writer
}

func newBitWriter() *bitWriter {
	buf := new(bytes.Buffer)
	return &bitWriter{buf: buf, bw: bitio.NewWriter(buf)}
}

func (w *bitWriter) put(v uint64, n uint) {
	if n == 0 {
		return
	}
	if err := w.bw.WriteBits(v&(1<<n-1), uint8(n)); err != nil {
		panic(err)
	}
}

func (w *bitWriter) putSigned(v int64, n uint) {
	w.put(uint64(v)&(1<<n-1), n)
}

func (w *bitWriter) align() {
	if _, err := w.bw.Align(); err != nil {
		panic(err)
	}
}

// bytes flushes any trailing partial byte and returns the full buffer.
func (w *bitWriter) bytes() []byte {
	if err := w.bw.Close(); err != nil {
		panic(err)
	}
	return w.buf.Bytes()
}

// crc8 computes the FLAC header checksum (poly 0x107, truncated 0x07).
func crc8(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// crc16 computes the FLAC frame-footer checksum (poly 0x18005, truncated
// 0x8005).
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// subframeHeader writes one subframe's 8-bit header: padding bit,
// 6-bit type, 1-bit wastebits flag (always 0 here; none of these tests
// need wasted bits).
func subframeHeader(w *bitWriter, typ uint8) {
	w.put(0, 1)
	w.put(uint64(typ), 6)
	w.put(0, 1)
}

// frameHeaderParams bundles the fields buildFrame needs to assemble one
// frame header; zero values mean "inherit"/"code 0" where applicable.
type frameHeaderParams struct {
	frameIndex     uint32
	blockSizeCode  uint8
	blockSizeExtra uint32 // value written raw if code is 6 (8 bits) or 7 (16 bits)
	sampleRateCode uint8
	chanCode       uint8
	bpsCode        uint8
}

func writeFrameHeader(w *bitWriter, p frameHeaderParams) {
	w.put(0x3FFE, 14)
	w.put(0, 1) // reserved
	w.put(0, 1) // blocking strategy: fixed
	w.put(uint64(p.blockSizeCode), 4)
	w.put(uint64(p.sampleRateCode), 4)
	w.put(uint64(p.chanCode), 4)
	w.put(uint64(p.bpsCode), 3)
	w.put(0, 1) // reserved

	// UTF-8 coded frame index; every test uses values < 128, i.e. a
	// single byte equal to the value itself (0 leading one bits).
	w.put(uint64(p.frameIndex), 8)

	switch p.blockSizeCode {
	case 6:
		w.put(uint64(p.blockSizeExtra), 8)
	case 7:
		w.put(uint64(p.blockSizeExtra), 16)
	}
}

// buildFrame assembles one complete, checksummed frame: header (with a
// correct CRC-8), the subframe bits written by writeSubframes, footer
// padding, and a correct CRC-16.
func buildFrame(p frameHeaderParams, writeSubframes func(w *bitWriter)) []byte {
	w := newBitWriter()
	writeFrameHeader(w, p)
	w.align()
	headerSum := crc8(w.buf.Bytes())
	w.put(uint64(headerSum), 8)

	writeSubframes(w)
	w.align()

	footerSum := crc16(w.buf.Bytes())
	w.put(uint64(footerSum>>8), 8)
	w.put(uint64(footerSum&0xFF), 8)
	return w.bytes()
}

// streamInfoBlock builds a complete, last, STREAMINFO metadata block
// (4-byte block header plus 34-byte body).
func streamInfoBlock(minBlock, maxBlock uint16, sampleRate uint32, channels, bps uint8, totalSamples uint64) []byte {
	w := newBitWriter()
	w.put(1, 1) // is_last
	w.put(0, 7) // type 0: STREAMINFO
	w.put(34, 24)
	w.align()

	w.put(uint64(minBlock), 16)
	w.put(uint64(maxBlock), 16)
	w.put(0, 24) // min_frame_size unknown
	w.put(0, 24) // max_frame_size unknown
	w.put(uint64(sampleRate), 20)
	w.put(uint64(channels-1), 3)
	w.put(uint64(bps-1), 5)
	w.put(totalSamples, 36)
	for i := 0; i < 16; i++ {
		w.put(0, 8) // md5 unverified
	}
	w.align()
	return w.bytes()
}

func buildStream(streamInfo []byte, frames ...[]byte) []byte {
	data := append([]byte(nil), []byte(flac.Magic)...)
	data = append(data, streamInfo...)
	for _, f := range frames {
		data = append(data, f...)
	}
	return data
}

func decodeAll(t *testing.T, data []byte) (*flac.Decoder, [][]int64, int) {
	t.Helper()
	d, err := flac.NewDecoder(flac.NewMemorySource(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	out := make([][]int64, d.ChannelCount())
	for ch := range out {
		out[ch] = make([]int64, d.StreamInfo.MaxBlockSize)
	}
	var total int
	samples := make([][]int64, d.ChannelCount())
	for {
		n, err := d.ReadAudioBlock(out, 0)
		if err != nil {
			t.Fatalf("ReadAudioBlock: %v", err)
		}
		if n == 0 {
			break
		}
		for ch := range out {
			samples[ch] = append(samples[ch], out[ch][:n]...)
		}
		total += n
	}
	return d, samples, total
}

// Scenario 1 (spec.md §8): minimal mono CONSTANT frame.
func TestDecodeMinimalMonoConstant(t *testing.T) {
	si := streamInfoBlock(16, 16, 8000, 1, 8, 16)
	frame := buildFrame(frameHeaderParams{
		frameIndex:     0,
		blockSizeCode:  6, // escape: 8 bits + 1
		blockSizeExtra: 15,
		sampleRateCode: 4, // 8000 Hz
		chanCode:       0, // mono
		bpsCode:        1, // 8 bits
	}, func(w *bitWriter) {
		subframeHeader(w, 0) // CONSTANT
		w.putSigned(0x7F, 8)
	})

	data := buildStream(si, frame)
	_, samples, total := decodeAll(t, data)
	if total != 16 {
		t.Fatalf("total samples = %d, want 16", total)
	}
	for i, v := range samples[0] {
		if v != 127 {
			t.Fatalf("sample %d = %d, want 127", i, v)
		}
	}
}

// Scenario 2 (spec.md §8): corrupting the sync code is rejected.
func TestDecodeSyncError(t *testing.T) {
	si := streamInfoBlock(16, 16, 8000, 1, 8, 16)
	frame := buildFrame(frameHeaderParams{
		blockSizeCode:  6,
		blockSizeExtra: 15,
		sampleRateCode: 4,
		chanCode:       0,
		bpsCode:        1,
	}, func(w *bitWriter) {
		subframeHeader(w, 0)
		w.putSigned(0x7F, 8)
	})
	frame[0] = 0x00 // corrupt the sync code's leading byte

	data := buildStream(si, frame)
	d, err := flac.NewDecoder(flac.NewMemorySource(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	out := make([][]int64, 1)
	out[0] = make([]int64, 16)
	_, err = d.ReadAudioBlock(out, 0)
	if err == nil {
		t.Fatal("expected an error for corrupted sync code")
	}
	if !flac.IsKind(err, flac.InvalidData) {
		t.Fatalf("error kind = %v, want InvalidData", err)
	}
}

// Scenario 3 (spec.md §8): a flipped CRC-8 bit is rejected.
func TestDecodeCRC8Mismatch(t *testing.T) {
	si := streamInfoBlock(16, 16, 8000, 1, 8, 16)
	frame := buildFrame(frameHeaderParams{
		blockSizeCode:  6,
		blockSizeExtra: 15,
		sampleRateCode: 4,
		chanCode:       0,
		bpsCode:        1,
	}, func(w *bitWriter) {
		subframeHeader(w, 0)
		w.putSigned(0x7F, 8)
	})
	frame[6] ^= 0x01 // the CRC-8 byte is the 7th header byte (index 6)

	data := buildStream(si, frame)
	d, err := flac.NewDecoder(flac.NewMemorySource(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	out := make([][]int64, 1)
	out[0] = make([]int64, 16)
	_, err = d.ReadAudioBlock(out, 0)
	if err == nil {
		t.Fatal("expected a CRC-8 mismatch error")
	}
	if !flac.IsKind(err, flac.InvalidData) {
		t.Fatalf("error kind = %v, want InvalidData", err)
	}
}

// Scenario 4 (spec.md §8): mid/side joint stereo round trip.
func TestDecodeMidSideRoundTrip(t *testing.T) {
	mid := []int64{75, 175, 275, 375}
	side := []int64{50, 50, 50, 50}
	wantL := []int64{100, 200, 300, 400}
	wantR := []int64{50, 150, 250, 350}

	si := streamInfoBlock(16, 16, 44100, 2, 16, 4)
	frame := buildFrame(frameHeaderParams{
		blockSizeCode:  6,
		blockSizeExtra: 3,
		sampleRateCode: 0, // inherit
		chanCode:       10, // mid/side
		bpsCode:        0,  // inherit
	}, func(w *bitWriter) {
		subframeHeader(w, 1) // VERBATIM, mid at 16 bits
		for _, v := range mid {
			w.putSigned(v, 16)
		}
		subframeHeader(w, 1) // VERBATIM, side at 17 bits
		for _, v := range side {
			w.putSigned(v, 17)
		}
	})

	data := buildStream(si, frame)
	_, samples, total := decodeAll(t, data)
	if total != 4 {
		t.Fatalf("total samples = %d, want 4", total)
	}
	for i := range wantL {
		if samples[0][i] != wantL[i] || samples[1][i] != wantR[i] {
			t.Fatalf("sample %d = (%d, %d), want (%d, %d)", i, samples[0][i], samples[1][i], wantL[i], wantR[i])
		}
	}
}

// Scenario 5 (spec.md §8): sample-accurate seek without a seek table.
func TestSeekWithoutSeekTable(t *testing.T) {
	const blockSize = 4096
	const numBlocks = 10
	si := streamInfoBlock(blockSize, blockSize, 8000, 1, 16, blockSize*numBlocks)

	var frames [][]byte
	for i := 0; i < numBlocks; i++ {
		i := i
		frames = append(frames, buildFrame(frameHeaderParams{
			frameIndex:     uint32(i),
			blockSizeCode:  12, // 256<<(12-8) == 4096
			sampleRateCode: 0,
			chanCode:       0,
			bpsCode:        0,
		}, func(w *bitWriter) {
			subframeHeader(w, 0) // CONSTANT value == block index
			w.putSigned(int64(i), 16)
		}))
	}

	data := buildStream(si, frames...)
	_, reference, total := decodeAll(t, data)
	if total != blockSize*numBlocks {
		t.Fatalf("total samples = %d, want %d", total, blockSize*numBlocks)
	}

	d, err := flac.NewDecoder(flac.NewMemorySource(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	out := make([][]int64, 1)
	out[0] = make([]int64, blockSize)

	const target = 17000
	n, err := d.Seek(target, out, 0)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	wantCount := blockSize - (target % blockSize)
	if n != wantCount {
		t.Fatalf("Seek returned %d samples, want %d", n, wantCount)
	}
	for i := 0; i < n; i++ {
		if out[0][i] != reference[0][target+i] {
			t.Fatalf("sample %d after seek = %d, want %d", i, out[0][i], reference[0][target+i])
		}
	}
}

// Scenario 6 (spec.md §8): a Rice-escape (raw) residual partition.
func TestDecodeRiceEscapePartition(t *testing.T) {
	const n = 256
	raw := make([]int64, n)
	v := int64(-60)
	for i := range raw {
		raw[i] = v
		v++
		if v >= 64 {
			v = -64
		}
	}

	si := streamInfoBlock(256, 256, 8000, 1, 16, 256)
	frame := buildFrame(frameHeaderParams{
		blockSizeCode:  7, // escape: 16 bits + 1
		blockSizeExtra: n - 1,
		sampleRateCode: 0,
		chanCode:       0,
		bpsCode:        0,
	}, func(w *bitWriter) {
		subframeHeader(w, 8) // FIXED order 0
		w.put(0, 2)          // residual coding method 0: 4-bit param width
		w.put(0, 4)          // partition order 0: a single partition
		w.put(0xF, 4)        // param == escape for a 4-bit field
		w.put(7, 5)          // raw sample width: 7 bits
		for _, r := range raw {
			w.putSigned(r, 7)
		}
	})

	data := buildStream(si, frame)
	_, samples, total := decodeAll(t, data)
	if total != n {
		t.Fatalf("total samples = %d, want %d", total, n)
	}
	for i := range raw {
		if samples[0][i] != raw[i] {
			t.Fatalf("sample %d = %d, want %d", i, samples[0][i], raw[i])
		}
	}
}
