package edgedupe

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Edges is the result of edge extraction.
type Edges struct {
	Width, Height                 int // canonical (post-resize) dimensions
	OriginalWidth, OriginalHeight int // decoded image dimensions, for reporting
	Format                        string
	Coords                        []Coord // raster order
}

// Empty reports whether no edge pixel reached the threshold.
func (e *Edges) Empty() bool { return len(e.Coords) == 0 }

// Signature packs the coordinates.
func (e *Edges) Signature() Signature { return Encode(e.Coords) }

// Extractor turns images into ordered edge coordinates.
type Extractor struct {
	cfg Config
}

// NewExtractor returns an Extractor for cfg.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg}, nil
}

// Config returns the extractor's tuning.
func (x *Extractor) Config() Config { return x.cfg }

// Extract decodes data and returns its edges. Undecodable data yields an
// error wrapping ErrDecode. An image without edges is not an error: check
// Edges.Empty.
func (x *Extractor) Extract(data []byte) (*Edges, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	edges := x.ExtractImage(img)
	edges.Format = format
	return edges, nil
}

// ExtractImage runs grayscale, resize, edge filter and threshold scan on img.
// Resizing happens before filtering: resampling a filtered image blends the
// detected edges back into the background.
func (x *Extractor) ExtractImage(img image.Image) *Edges {
	b := img.Bounds()
	filtered := x.edgeMap(img)

	return &Edges{
		Width:          x.cfg.SampleWidth,
		Height:         x.cfg.SampleHeight,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		Coords:         scanEdges(filtered, x.cfg.LineDetect),
	}
}

// edgeMap returns the filtered canonical-resolution image.
func (x *Extractor) edgeMap(img image.Image) *image.Gray {
	return findEdges(canonical(img, x.cfg.SampleWidth, x.cfg.SampleHeight))
}

// canonical converts img to grayscale and resizes it with a bicubic filter.
func canonical(img image.Image, width, height int) *image.Gray {
	resized := resize.Resize(uint(width), uint(height), grayscale(img), resize.Bicubic)
	return grayscale(resized)
}

// grayscale converts img to 8-bit luma (ITU-R 601). A *image.Gray anchored
// at the origin is returned as is.
func grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// findEdges applies the 3x3 find-edges kernel (8 at the centre, -1 around
// it) and clamps to 0-255. Border pixels have no full neighbourhood and
// stay 0.
func findEdges(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum := 0
			for dy := -1; dy <= 1; dy++ {
				row := (y+dy)*src.Stride + x
				for dx := -1; dx <= 1; dx++ {
					v := int(src.Pix[row+dx])
					if dx == 0 && dy == 0 {
						sum += 8 * v
					} else {
						sum -= v
					}
				}
			}
			switch {
			case sum < 0:
				sum = 0
			case sum > 255:
				sum = 255
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum)
		}
	}
	return dst
}

// scanEdges walks img in raster order and collects pixels >= threshold.
// The row index divides by height rather than width; the two agree for the
// default square resolution and stored archives depend on this formula.
func scanEdges(img *image.Gray, threshold int) []Coord {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var coords []Coord
	for i := 0; i < w*h; i++ {
		px := img.Pix[(i/w)*img.Stride+i%w]
		if int(px) >= threshold {
			coords = append(coords, Coord{X: uint16(i % w), Y: uint16(i / h)})
		}
	}
	return coords
}
