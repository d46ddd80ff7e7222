package meta

import (
	"testing"

	"github.com/coreflac/flac/internal/bits"
)

// memSource is a minimal in-memory bits.ByteSource for exercising parsers
// directly, without going through the root package's file/memory
// implementations.
type memSource struct {
	data []byte
	pos  uint64
}

func (m *memSource) Length() uint64   { return uint64(len(m.data)) }
func (m *memSource) Position() uint64 { return m.pos }
func (m *memSource) Seek(pos uint64)  { m.pos = pos }
func (m *memSource) Read(buf []byte) (int, bool) {
	if m.pos >= uint64(len(m.data)) {
		return 0, false
	}
	n := copy(buf, m.data[m.pos:])
	m.pos += uint64(n)
	return n, true
}

func newReader(data []byte) *bits.Reader {
	return bits.NewReader(&memSource{data: data})
}

func TestReadStreamInfo(t *testing.T) {
	// min_block=4096 max_block=4096 min_frame=0 max_frame=0 rate=44100
	// channels=2(code 1) bps=16(code 15) samplecount=0 md5=zero
	body := []byte{
		0x10, 0x00, // min block size 4096
		0x10, 0x00, // max block size 4096
		0x00, 0x00, 0x00, // min frame size 0
		0x00, 0x00, 0x00, // max frame size 0
		// sample_rate(20) channels(3) bps(5) sample_count(36)
		// rate=44100=0x0AC44, channels code=1 (2ch), bps code=15 (16bps)
		0x0A, 0xC4, 0x42, 0xF0, 0x00, 0x00, 0x00, 0x00,
	}
	body = append(body, make([]byte, 16)...) // md5

	r := newReader(body)
	si, err := ReadStreamInfo(r)
	if err != nil {
		t.Fatalf("ReadStreamInfo: %v", err)
	}
	if si.MinBlockSize != 4096 || si.MaxBlockSize != 4096 {
		t.Errorf("block size = %d/%d, want 4096/4096", si.MinBlockSize, si.MaxBlockSize)
	}
	if si.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", si.SampleRate)
	}
	if si.ChannelCount != 2 {
		t.Errorf("channel count = %d, want 2", si.ChannelCount)
	}
	if si.BitsPerSample != 16 {
		t.Errorf("bits per sample = %d, want 16", si.BitsPerSample)
	}
}

func TestStreamInfoValidateRejectsBadBlockSize(t *testing.T) {
	si := &StreamInfo{
		MinBlockSize: 8, MaxBlockSize: 16,
		SampleRate: 44100, ChannelCount: 2, BitsPerSample: 16,
	}
	if err := si.Validate(); err == nil {
		t.Fatal("expected error for min block size below 16")
	}
}

func TestSeekTableBestSeek(t *testing.T) {
	st := &SeekTable{Points: []SeekPoint{
		{SampleIndex: 0, ByteOffset: 0, FrameSamples: 4096},
		{SampleIndex: 4096, ByteOffset: 1000, FrameSamples: 4096},
		{SampleIndex: 8192, ByteOffset: 2000, FrameSamples: 4096},
		{SampleIndex: PlaceholderSample, ByteOffset: 0, FrameSamples: 0},
	}}

	sample, offset := st.BestSeek(5000)
	if sample != 4096 || offset != 1000 {
		t.Errorf("BestSeek(5000) = (%d, %d), want (4096, 1000)", sample, offset)
	}

	sample, offset = st.BestSeek(100000)
	if sample != 8192 || offset != 2000 {
		t.Errorf("BestSeek(100000) = (%d, %d), want (8192, 2000)", sample, offset)
	}
}
