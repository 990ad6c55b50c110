package edgedupe

import (
	"log/slog"
	"time"
)

// Verdict describes how Pipeline.Process classified one image.
type Verdict struct {
	Decision Decision
	Reason   Reason
	Edges    int // number of edge coordinates; 0 when extraction was skipped
	Width    int // original image width
	Height   int // original image height
	Format   string
	Elapsed  time.Duration
}

// Pipeline chains the exact-hash check, edge extraction and the signature
// index for one image at a time.
type Pipeline struct {
	extractor *Extractor
	index     *Index
	seen      *SeenSet
}

// NewPipeline wires the three stages together.
func NewPipeline(extractor *Extractor, index *Index, seen *SeenSet) *Pipeline {
	return &Pipeline{extractor: extractor, index: index, seen: seen}
}

// Index returns the signature index.
func (p *Pipeline) Index() *Index { return p.index }

// Seen returns the exact-hash set.
func (p *Pipeline) Seen() *SeenSet { return p.seen }

// Process classifies data. A digest already in the SeenSet short-circuits
// to Duplicate before any decoding. Undecodable data returns an error
// wrapping ErrDecode and leaves both stores untouched; the caller should
// skip the image, not forward it.
func (p *Pipeline) Process(data []byte) (Verdict, error) {
	start := time.Now()

	digest := HashBytes(data)
	if p.seen.HasHash(digest) {
		return Verdict{Decision: Duplicate, Reason: ReasonHash, Elapsed: time.Since(start)}, nil
	}

	edges, err := p.extractor.Extract(data)
	if err != nil {
		return Verdict{Elapsed: time.Since(start)}, err
	}
	p.seen.RecordHash(digest)

	v := Verdict{
		Edges:  len(edges.Coords),
		Width:  edges.OriginalWidth,
		Height: edges.OriginalHeight,
		Format: edges.Format,
	}
	if edges.Empty() {
		slog.Info("edgedupe: no edges found, treating as unique", "format", edges.Format,
			"width", edges.OriginalWidth, "height", edges.OriginalHeight)
	}

	v.Decision = p.index.Check(edges.Signature())
	if v.Decision == Duplicate {
		v.Reason = ReasonEdges
	}
	v.Elapsed = time.Since(start)
	return v, nil
}
