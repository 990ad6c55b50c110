package edgedupe

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	countSize = 4 // uint32 value count prefix
	unitSize  = 4 // one coordinate: uint16 x + uint16 y
)

// Coord is an edge pixel position on the canonical image.
type Coord struct {
	X, Y uint16
}

// Signature is a framed edge signature: a little-endian uint32 holding twice
// the number of coordinates, followed by little-endian uint16 x, y pairs.
// Treat it as immutable.
type Signature []byte

// Encode packs coords into a Signature.
func Encode(coords []Coord) Signature {
	buf := make([]byte, countSize+unitSize*len(coords))
	binary.LittleEndian.PutUint32(buf, uint32(2*len(coords)))
	off := countSize
	for _, c := range coords {
		binary.LittleEndian.PutUint16(buf[off:], c.X)
		binary.LittleEndian.PutUint16(buf[off+2:], c.Y)
		off += unitSize
	}
	return buf
}

// Len returns the number of coordinates in the signature.
func (s Signature) Len() int {
	if len(s) < countSize {
		return 0
	}
	return (len(s) - countSize) / unitSize
}

// Payload returns the coordinate bytes without the count prefix.
func (s Signature) Payload() []byte {
	if len(s) < countSize {
		return nil
	}
	return s[countSize:]
}

// Bytes returns a copy of the framed signature.
func (s Signature) Bytes() []byte {
	return append([]byte(nil), s...)
}

// Coords unpacks the coordinate sequence.
func (s Signature) Coords() ([]Coord, error) {
	frames, err := DecodeAll(s)
	if err != nil {
		return nil, err
	}
	if len(frames) != 1 {
		return nil, fmt.Errorf("%w: expected one frame, found %d", ErrCorruptArchive, len(frames))
	}

	payload := s.Payload()
	coords := make([]Coord, 0, len(payload)/unitSize)
	for off := 0; off+unitSize <= len(payload); off += unitSize {
		coords = append(coords, Coord{
			X: binary.LittleEndian.Uint16(payload[off:]),
			Y: binary.LittleEndian.Uint16(payload[off+2:]),
		})
	}
	return coords, nil
}

// DecodeAll splits a concatenation of framed signatures back into its
// frames, oldest first. Each returned Signature is a copy that keeps its
// count prefix, so buf is not retained. A frame cut short by the end of buf yields ErrCorruptArchive.
func DecodeAll(buf []byte) ([]Signature, error) {
	var out []Signature
	pos := 0
	for pos < len(buf) {
		if len(buf)-pos < countSize {
			return nil, fmt.Errorf("%w: %d trailing bytes at offset %d, need a %d-byte count",
				ErrCorruptArchive, len(buf)-pos, pos, countSize)
		}
		count := uint64(binary.LittleEndian.Uint32(buf[pos:]))
		if count%2 != 0 {
			return nil, fmt.Errorf("%w: odd value count %d at offset %d", ErrCorruptArchive, count, pos)
		}
		end := uint64(pos) + countSize + count*2
		if end > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: frame at offset %d declares %d bytes, only %d remain",
				ErrCorruptArchive, pos, count*2, len(buf)-pos-countSize)
		}
		out = append(out, Signature(bytes.Clone(buf[pos:end])))
		pos = int(end)
	}
	return out, nil
}
