package edgedupe

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/corona10/goimagehash"
)

// nearMatchRadius is how far around a missed coordinate the comparison
// image is searched for an edge pixel.
const nearMatchRadius = 3

// Comparison is the result of comparing two images directly.
type Comparison struct {
	Percent int  // share of sampled source edges found in the comparison image
	Match   bool // Percent >= MatchPercent
	Sampled int  // number of source edges sampled

	// DHashDistance is the Hamming distance between the difference hashes
	// of the two original images, or -1 if hashing failed.
	DHashDistance int

	Elapsed time.Duration
}

func (c Comparison) String() string {
	return fmt.Sprintf("Time taken %.2f seconds, with a %d%% match.", c.Elapsed.Seconds(), c.Percent)
}

// Comparer compares two images pixel-wise on their edge maps. Unlike Index
// it needs both images decoded, so it serves one-off checks rather than the
// archive.
type Comparer struct {
	cfg Config
}

// NewComparer returns a Comparer for cfg.
func NewComparer(cfg Config) (*Comparer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Comparer{cfg: cfg}, nil
}

// CompareBytes decodes both images and compares them.
func (c *Comparer) CompareBytes(src, cmp []byte) (Comparison, error) {
	a, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return Comparison{}, fmt.Errorf("%w: source: %v", ErrDecode, err)
	}
	b, _, err := image.Decode(bytes.NewReader(cmp))
	if err != nil {
		return Comparison{}, fmt.Errorf("%w: comparison: %v", ErrDecode, err)
	}
	return c.Compare(a, b), nil
}

// Compare samples the edges of src and checks each sampled position in the
// edge map of cmp, accepting a hit within nearMatchRadius pixels.
func (c *Comparer) Compare(src, cmp image.Image) Comparison {
	start := time.Now()
	res := Comparison{DHashDistance: dhashDistance(src, cmp)}

	srcEdges := findEdges(canonical(src, c.cfg.SampleWidth, c.cfg.SampleHeight))
	cmpEdges := findEdges(canonical(cmp, c.cfg.SampleWidth, c.cfg.SampleHeight))
	coords := scanEdges(srcEdges, c.cfg.LineDetect)

	step := max(1, 100/c.cfg.SamplePercent)
	hits := 0
	for i := 0; i < len(coords); i += step {
		res.Sampled++
		if c.edgeAt(cmpEdges, int(coords[i].X), int(coords[i].Y)) {
			hits++
		}
	}
	if res.Sampled > 0 {
		res.Percent = hits * 100 / res.Sampled
	}
	res.Match = res.Sampled > 0 && res.Percent >= c.cfg.MatchPercent
	res.Elapsed = time.Since(start)
	return res
}

// edgeAt reports an edge pixel at (x, y) or within nearMatchRadius of it.
func (c *Comparer) edgeAt(img *image.Gray, x, y int) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if x < w && y < h && int(img.Pix[y*img.Stride+x]) >= c.cfg.LineDetect {
		return true
	}
	for dy := -nearMatchRadius; dy <= nearMatchRadius; dy++ {
		ry := y + dy
		if ry < 0 || ry >= h {
			continue
		}
		for dx := -nearMatchRadius; dx <= nearMatchRadius; dx++ {
			rx := x + dx
			if rx < 0 || rx >= w {
				continue
			}
			if int(img.Pix[ry*img.Stride+rx]) >= c.cfg.LineDetect {
				return true
			}
		}
	}
	return false
}

// dhashDistance compares perceptual difference hashes. Failures yield -1:
// the edge comparison stands on its own.
func dhashDistance(a, b image.Image) int {
	ha, err := goimagehash.DifferenceHash(a)
	if err != nil {
		return -1
	}
	hb, err := goimagehash.DifferenceHash(b)
	if err != nil {
		return -1
	}
	dist, err := ha.Distance(hb)
	if err != nil {
		return -1
	}
	return dist
}
