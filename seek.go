package flac

import (
	"github.com/coreflac/flac/frame"
	"github.com/coreflac/flac/internal/ferr"
)

// seekTableMaxGap bounds how far a seek table's nearest point may sit
// below the target sample before falling back to a sync scan; past it,
// decoding forward from the seek point would cost more than searching.
const seekTableMaxGap = 300_000

// syncScanWindow is the byte window size at which seekBySyncScan stops
// bisecting and does a final linear nextFrame from the lower bound.
const syncScanWindow = 100_000

// Seek locates the frame containing target, decodes it, and copies the
// samples from target through the end of that frame into
// out[channel][off:off+count], returning count. A subsequent
// ReadAudioBlock continues with the frame immediately following.
func (d *Decoder) Seek(target uint64, out [][]int64, off int) (int, error) {
	var samplePos, bytePos uint64
	haveSeekTable := d.SeekTable != nil
	if haveSeekTable {
		samplePos, bytePos = d.SeekTable.BestSeek(target)
	}

	if !haveSeekTable || target-samplePos > seekTableMaxGap {
		scanPos, err := d.seekBySyncScan(target)
		if err != nil {
			return 0, err
		}
		bytePos = scanPos - d.metadataEndPos
	}

	d.r.Seek(d.metadataEndPos + bytePos)

	for {
		hdr, n, err := d.decodeFrame(out, off)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ferr.New(ferr.InvariantViolation, "seek target beyond end of stream")
		}
		framePos := frameSamplePos(hdr, d.StreamInfo.MaxBlockSize)
		if target >= framePos && target < framePos+uint64(n) {
			start := int(target - framePos)
			count := n - start
			for ch := range out {
				copy(out[ch][off:off+count], out[ch][off+start:off+n])
			}
			return count, nil
		}
	}
}

// seekBySyncScan binary-searches [metadataEndPos, source length) for the
// frame covering target, using nextFrame to interpret each probed
// position, and returns the absolute byte offset of a frame at or before
// it, from which Seek decodes forward.
func (d *Decoder) seekBySyncScan(target uint64) (uint64, error) {
	lo, hi := d.metadataEndPos, d.src.Length()
	for hi-lo > syncScanWindow {
		mid := lo + (hi-lo)/2
		hdr, pos, err := d.nextFrame(mid)
		if err != nil {
			return 0, err
		}
		if hdr == nil {
			hi = mid
			continue
		}
		if frameSamplePos(hdr, d.StreamInfo.MaxBlockSize) > target {
			hi = mid
		} else {
			lo = pos
		}
	}

	hdr, pos, err := d.nextFrame(lo)
	if err != nil {
		return 0, err
	}
	if hdr == nil {
		return 0, ferr.New(ferr.InvalidData, "no frame found during sync scan")
	}
	return pos, nil
}

// nextFrame scans forward from pos for a frame-header sync pattern (a
// 0xFF byte followed by a byte whose top 6 bits match the sync code's
// continuation), attempting a header parse at each candidate. A header
// that fails with InvalidData is a false positive — the scan resumes
// one byte past the 0xFF rather than trusting it. Returns (nil, 0, nil)
// only once the source is exhausted.
func (d *Decoder) nextFrame(pos uint64) (*frame.Header, uint64, error) {
	d.r.Seek(pos)
	for {
		bytePos, _ := d.r.Position()
		if bytePos >= d.src.Length() {
			return nil, 0, nil
		}

		b0, err := d.r.ReadByte()
		if err != nil {
			if ferr.Is(err, ferr.UnexpectedEOF) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
		if b0 != 0xFF {
			continue
		}
		candidatePos, _ := d.r.Position()
		candidatePos--

		b1, err := d.r.ReadByte()
		if err != nil {
			if ferr.Is(err, ferr.UnexpectedEOF) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
		if b1&0xFC != 0xF8 {
			d.r.Seek(candidatePos + 1)
			continue
		}

		d.r.Seek(candidatePos)
		hdr, err := frame.ReadHeader(d.r, d.StreamInfo.SampleRate, d.StreamInfo.BitsPerSample)
		if err != nil {
			if ferr.Is(err, ferr.InvalidData) {
				d.r.Seek(candidatePos + 1)
				continue
			}
			if ferr.Is(err, ferr.UnexpectedEOF) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
		return hdr, candidatePos, nil
	}
}
