package bits

// Rice/Golomb batch-decode lookup tables. For every Rice parameter
// k in 0..30, riceTables[k] maps every possible 13-bit lookahead window to
// the number of bits the code at that window actually consumes, and the
// zigzag-decoded signed value it represents. A consumed entry of 0 means
// the code starting at that window is longer than the T=13-bit window (the
// unary quotient runs past it), and the caller must fall back to the
// bit-by-bit scalar decoder.
//
// Building these at package init (rather than lazily per Reader) matches
// the teacher's own preference for precomputed, read-only tables (like the
// CRC tables exported by github.com/mewkiz/pkg/hashutil/crc8 and crc16,
// which reader.go uses) and spec.md §9's "prefer compile-time
// construction" note: CRC and Rice tables are process-wide and shared by
// every decoder, so building them exactly once at program start avoids any
// need for synchronization between concurrently constructed decoders.

const riceLookaheadBits = 13
const riceLookaheadSize = 1 << riceLookaheadBits
const maxRiceParam = 30

type riceTable struct {
	consumed [riceLookaheadSize]uint8
	value    [riceLookaheadSize]int64
}

var riceTables [maxRiceParam + 1]riceTable

func init() {
	for k := 0; k <= maxRiceParam; k++ {
		buildRiceTable(&riceTables[k], uint(k))
	}
}

func buildRiceTable(t *riceTable, k uint) {
	for window := 0; window < riceLookaheadSize; window++ {
		q := 0
		found := false
		for b := riceLookaheadBits - 1; b >= 0; b-- {
			if window>>uint(b)&1 == 1 {
				found = true
				break
			}
			q++
		}
		if !found {
			// Unary prefix runs past the lookahead window entirely; the
			// slow path must read further bits from the stream.
			continue
		}
		total := q + 1 + int(k)
		if total > riceLookaheadBits {
			continue
		}
		// The terminating 1 sits at bit index (riceLookaheadBits-1-q) from
		// the MSB; the k remainder bits immediately follow it. Shifting the
		// window right by (riceLookaheadBits-total) isolates exactly those
		// trailing (1+k) bits' low k bits once masked.
		shift := riceLookaheadBits - total
		remainder := uint64(window>>uint(shift)) & (1<<k - 1)
		combined := uint64(q)<<k | remainder
		t.consumed[window] = uint8(total)
		t.value[window] = DecodeZigZag64(combined)
	}
}
