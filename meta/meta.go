// Package meta parses FLAC metadata blocks. Only STREAMINFO and SEEKTABLE
// are interpreted; every other block type is skipped, its body discarded
// unread, since tag and cue-sheet interpretation is outside this
// decoder's scope.
package meta

import (
	"github.com/coreflac/flac/internal/bits"
	"github.com/coreflac/flac/internal/ferr"
	"github.com/coreflac/flac/internal/tracelog"
)

// BlockType identifies a metadata block's body format.
type BlockType uint8

// Metadata block types, per the FLAC format's block header.
const (
	TypeStreamInfo    BlockType = 0
	TypePadding       BlockType = 1
	TypeApplication   BlockType = 2
	TypeSeekTable     BlockType = 3
	TypeVorbisComment BlockType = 4
	TypeCueSheet      BlockType = 5
	TypePicture       BlockType = 6
)

// BlockHeader precedes every metadata block's body.
type BlockHeader struct {
	// IsLast is true when this is the final metadata block before the
	// first audio frame.
	IsLast bool
	// Type is the block's body format.
	Type BlockType
	// Length is the body length in bytes, not counting this header.
	Length uint32
}

// ReadBlockHeader parses one 4-byte metadata block header.
func ReadBlockHeader(r *bits.Reader) (*BlockHeader, error) {
	isLast, err := r.ReadUint(1)
	if err != nil {
		return nil, err
	}
	typ, err := r.ReadUint(7)
	if err != nil {
		return nil, err
	}
	if typ == 127 {
		return nil, ferr.New(ferr.InvalidData, "invalid metadata block type 127")
	}
	length, err := r.ReadUint(24)
	if err != nil {
		return nil, err
	}
	return &BlockHeader{
		IsLast: isLast != 0,
		Type:   BlockType(typ),
		Length: length,
	}, nil
}

// Block is a fully read metadata block: its header, plus a body that is
// *StreamInfo or *SeekTable. Every other block type is discarded opaquely
// and carries a nil Body — its bytes are never materialized, since
// nothing in this decoder interprets them.
type Block struct {
	Header *BlockHeader
	Body   interface{}
}

// ReadBlock reads a block header and dispatches to the matching body
// parser, discarding unrecognized block types opaquely.
func ReadBlock(r *bits.Reader) (*Block, error) {
	hdr, err := ReadBlockHeader(r)
	if err != nil {
		return nil, err
	}
	if tracelog.Enabled() {
		tracelog.Logger.Debug().
			Uint8("type", uint8(hdr.Type)).
			Uint32("length", hdr.Length).
			Bool("is_last", hdr.IsLast).
			Msg("reading metadata block")
	}
	block := &Block{Header: hdr}
	switch hdr.Type {
	case TypeStreamInfo:
		si, err := ReadStreamInfo(r)
		if err != nil {
			return nil, err
		}
		block.Body = si
	case TypeSeekTable:
		st, err := ReadSeekTable(r, hdr.Length)
		if err != nil {
			return nil, err
		}
		block.Body = st
	default:
		if err := r.Discard(uint64(hdr.Length)); err != nil {
			return nil, err
		}
	}
	return block, nil
}
