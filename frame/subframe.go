package frame

import (
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
)

// PredMethod identifies how a subframe's samples were predicted/encoded.
type PredMethod uint8

const (
	PredConstant PredMethod = iota
	PredVerbatim
	PredFixed
	PredLPC
)

// SubHeader is a parsed subframe header.
type SubHeader struct {
	PredMethod PredMethod
	// Order is the fixed-predictor order (0..4) or LPC order (1..32).
	Order uint8
	// WastedBits is the number of low-order zero bits stripped from every
	// sample before encoding; restored by a left shift after decode.
	WastedBits uint8
}

// fixedCoeffs maps fixed-predictor order to the coefficients applied to
// the order previous reconstructed samples, most-recent first.
var fixedCoeffs = [5][]int64{
	{},
	{1},
	{2, -1},
	{3, -3, 1},
	{4, -6, 4, -1},
}

// ReadSubframe decodes one channel's subframe at declared bit depth bps
// (already widened by the one extra bit of side-channel headroom where
// applicable) into out[:blockSize].
func ReadSubframe(r *bits.Reader, blockSize uint16, bps uint8, out []int64) error {
	sh, err := readSubHeader(r, bps)
	if err != nil {
		return err
	}
	effBps := bps - sh.WastedBits
	n := int(blockSize)

	switch sh.PredMethod {
	case PredConstant:
		v, err := r.ReadSigned64(effBps)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			out[i] = v
		}
	case PredVerbatim:
		for i := 0; i < n; i++ {
			v, err := r.ReadSigned64(effBps)
			if err != nil {
				return err
			}
			out[i] = v
		}
	case PredFixed:
		if err := readFixed(r, blockSize, effBps, int(sh.Order), out); err != nil {
			return err
		}
	case PredLPC:
		if err := readLPC(r, blockSize, effBps, int(sh.Order), out); err != nil {
			return err
		}
	}

	if sh.WastedBits > 0 {
		for i := 0; i < n; i++ {
			out[i] <<= sh.WastedBits
		}
	}
	return nil
}

func readSubHeader(r *bits.Reader, bps uint8) (*SubHeader, error) {
	pad, err := r.ReadUint(1)
	if err != nil {
		return nil, err
	}
	if pad != 0 {
		return nil, ferr.New(ferr.InvalidData, "subframe padding bit must be 0")
	}

	typ, err := r.ReadUint(6)
	if err != nil {
		return nil, err
	}

	sh := &SubHeader{}
	switch {
	case typ == 0:
		sh.PredMethod = PredConstant
	case typ == 1:
		sh.PredMethod = PredVerbatim
	case typ >= 8 && typ <= 12:
		sh.PredMethod = PredFixed
		sh.Order = uint8(typ - 8)
	case typ >= 32 && typ <= 63:
		sh.PredMethod = PredLPC
		sh.Order = uint8(typ-31)
	default:
		return nil, ferr.Newf(ferr.InvalidData, "reserved subframe type %06b", typ)
	}

	hasWasted, err := r.ReadUint(1)
	if err != nil {
		return nil, err
	}
	if hasWasted != 0 {
		n, err := r.ReadUnary(64)
		if err != nil {
			return nil, err
		}
		sh.WastedBits = uint8(n) + 1
		if sh.WastedBits > bps {
			return nil, ferr.Newf(ferr.InvalidData, "wastebits %d exceeds bit depth %d", sh.WastedBits, bps)
		}
	}
	return sh, nil
}

func checkDepth(v int64, bps uint8) error {
	lo := -(int64(1) << (bps - 1))
	hi := int64(1) << (bps - 1)
	if v < lo || v >= hi {
		return ferr.Newf(ferr.InvalidData, "sample %d out of range for %d-bit depth", v, bps)
	}
	return nil
}

func readFixed(r *bits.Reader, blockSize uint16, bps uint8, order int, out []int64) error {
	for i := 0; i < order; i++ {
		v, err := r.ReadSigned64(bps)
		if err != nil {
			return err
		}
		out[i] = v
	}
	residuals := out[order:blockSize]
	if err := readResidual(r, blockSize, order, residuals); err != nil {
		return err
	}
	coeffs := fixedCoeffs[order]
	for i := order; i < int(blockSize); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += c * out[i-1-j]
		}
		v := residuals[i-order] + sum
		if err := checkDepth(v, bps); err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func readLPC(r *bits.Reader, blockSize uint16, bps uint8, order int, out []int64) error {
	for i := 0; i < order; i++ {
		v, err := r.ReadSigned64(bps)
		if err != nil {
			return err
		}
		out[i] = v
	}

	precCode, err := r.ReadUint(4)
	if err != nil {
		return err
	}
	if precCode == 0xF {
		return ferr.New(ferr.InvalidData, "reserved lpc coefficient precision 1111")
	}
	precision := uint8(precCode) + 1

	shiftRaw, err := r.ReadSigned(5)
	if err != nil {
		return err
	}
	if shiftRaw < 0 {
		return ferr.Newf(ferr.InvalidData, "negative lpc shift %d", shiftRaw)
	}
	shift := uint(shiftRaw)

	coeffs := make([]int64, order)
	for i := range coeffs {
		v, err := r.ReadSigned64(precision)
		if err != nil {
			return err
		}
		coeffs[i] = v
	}

	residuals := out[order:blockSize]
	if err := readResidual(r, blockSize, order, residuals); err != nil {
		return err
	}

	for i := order; i < int(blockSize); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += c * out[i-1-j]
		}
		v := residuals[i-order] + sum>>shift
		if err := checkDepth(v, bps); err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// readResidual reads the residual coding method, partition order, and
// every partition's Rice-or-escape-coded residuals into out, which must
// be exactly blockSize-predOrder elements long.
func readResidual(r *bits.Reader, blockSize uint16, predOrder int, out []int64) error {
	method, err := r.ReadUint(2)
	if err != nil {
		return err
	}
	var paramBits uint8
	switch method {
	case 0:
		paramBits = 4
	case 1:
		paramBits = 5
	default:
		return ferr.Newf(ferr.InvalidData, "reserved residual coding method %02b", method)
	}
	escape := uint32(1)<<paramBits - 1

	partOrderRaw, err := r.ReadUint(4)
	if err != nil {
		return err
	}
	partCount := 1 << partOrderRaw
	if int(blockSize)%partCount != 0 {
		return ferr.Newf(ferr.InvalidData, "partition count %d does not divide block size %d", partCount, blockSize)
	}

	pos := 0
	for p := 0; p < partCount; p++ {
		partLen := int(blockSize) / partCount
		if p == 0 {
			partLen -= predOrder
		}
		param, err := r.ReadUint(paramBits)
		if err != nil {
			return err
		}
		if param == escape {
			rawBits, err := r.ReadUint(5)
			if err != nil {
				return err
			}
			for i := 0; i < partLen; i++ {
				v, err := r.ReadSigned64(uint8(rawBits))
				if err != nil {
					return err
				}
				out[pos+i] = v
			}
		} else {
			if err := r.ReadRiceBatch(uint8(param), out, pos, pos+partLen); err != nil {
				return err
			}
		}
		pos += partLen
	}
	return nil
}
