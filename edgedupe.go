// Package edgedupe detects near-duplicate images by comparing compact
// edge signatures. A raw image is reduced to the ordered coordinates of its
// edge pixels, packed into a length-prefixed binary Signature and matched
// against a bounded, persisted Index of previously seen signatures. A SeenSet
// of SHA-256 digests sits in front of it as an exact-duplicate fast path.
package edgedupe

import (
	"errors"
	"fmt"
)

// Decision is the outcome of a duplicate check.
type Decision int

const (
	Unique    Decision = iota // not seen before; recorded
	Duplicate                 // matches a stored entry; not recorded
)

func (d Decision) String() string {
	switch d {
	case Duplicate:
		return "duplicate"
	default:
		return "unique"
	}
}

// Reason names the layer that produced a Decision.
type Reason int

const (
	ReasonNone  Reason = iota // unique on every layer
	ReasonHash                // exact SHA-256 match
	ReasonEdges               // edge signature match
)

func (r Reason) String() string {
	switch r {
	case ReasonHash:
		return "hash"
	case ReasonEdges:
		return "edges"
	default:
		return "none"
	}
}

var (
	// ErrDecode reports image bytes that are not a recognized raster format.
	ErrDecode = errors.New("edgedupe: cannot decode image")

	// ErrConfiguration reports an out-of-range tuning parameter.
	ErrConfiguration = errors.New("edgedupe: invalid configuration")

	// ErrCorruptArchive reports a truncated or malformed signature archive.
	ErrCorruptArchive = errors.New("edgedupe: corrupt signature archive")
)

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
