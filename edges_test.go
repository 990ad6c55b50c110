package edgedupe

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"
)

// solidImage returns an opaque single-colour RGBA image.
func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 100, G: 149, B: 237, A: 255}}, image.Point{}, draw.Src)
	return img
}

// rectImage returns a white w x h image with a black filled rectangle.
func rectImage(w, h int, r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, r, image.Black, image.Point{}, draw.Src)
	return img
}

func makePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// makeJPEG returns a quality 95 JPEG encoding of img.
func makeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	return makeJPEGQuality(t, img, 95)
}

func makeJPEGQuality(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	x, err := NewExtractor(DefaultConfig())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return x
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()
	x := newTestExtractor(t)
	data := makePNG(t, rectImage(120, 90, image.Rect(20, 20, 60, 50)))

	a, err := x.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := x.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if a.Empty() {
		t.Fatal("expected edges around the rectangle")
	}
	if !bytes.Equal(a.Signature(), b.Signature()) {
		t.Error("two extractions of the same bytes produced different signatures")
	}
	if a.Format != "png" {
		t.Errorf("Format = %q, want png", a.Format)
	}
	if a.OriginalWidth != 120 || a.OriginalHeight != 90 {
		t.Errorf("original size = %dx%d, want 120x90", a.OriginalWidth, a.OriginalHeight)
	}
	if a.Width != DefaultSampleWidth || a.Height != DefaultSampleHeight {
		t.Errorf("canonical size = %dx%d", a.Width, a.Height)
	}
}

func TestExtract_SolidImageHasNoEdges(t *testing.T) {
	t.Parallel()
	x := newTestExtractor(t)

	edges, err := x.Extract(makePNG(t, solidImage(64, 64)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !edges.Empty() {
		t.Errorf("solid image produced %d edges", len(edges.Coords))
	}
	if got := edges.Signature(); !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Errorf("empty signature = %v, want 4 zero bytes", got)
	}
}

func TestExtract_CoordsInRasterOrder(t *testing.T) {
	t.Parallel()
	x := newTestExtractor(t)

	edges, err := x.Extract(makeJPEG(t, rectImage(200, 200, image.Rect(50, 50, 150, 150))))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if edges.Empty() {
		t.Fatal("expected edges")
	}
	prev := -1
	for _, c := range edges.Coords {
		if int(c.X) >= DefaultSampleWidth || int(c.Y) >= DefaultSampleHeight {
			t.Fatalf("coordinate %+v outside canonical image", c)
		}
		pos := int(c.Y)*DefaultSampleWidth + int(c.X)
		if pos <= prev {
			t.Fatalf("coordinate %+v out of raster order", c)
		}
		prev = pos
	}
}

func TestExtract_Undecodable(t *testing.T) {
	t.Parallel()
	x := newTestExtractor(t)

	for _, data := range [][]byte{nil, []byte("not an image at all")} {
		_, err := x.Extract(data)
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Extract(%q) error = %v, want ErrDecode", data, err)
		}
	}
}

func TestExtract_LineDetectThreshold(t *testing.T) {
	t.Parallel()

	img := rectImage(100, 100, image.Rect(30, 30, 70, 70))
	loose := newTestExtractor(t)
	cfg, err := DefaultConfig().WithLineDetect(255)
	if err != nil {
		t.Fatal(err)
	}
	strict, err := NewExtractor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	a := loose.ExtractImage(img)
	b := strict.ExtractImage(img)
	if len(b.Coords) > len(a.Coords) {
		t.Errorf("threshold 255 kept %d edges, threshold 128 kept %d", len(b.Coords), len(a.Coords))
	}
}

func TestFindEdges_Kernel(t *testing.T) {
	t.Parallel()

	src := image.NewGray(image.Rect(0, 0, 5, 5))
	src.SetGray(2, 2, color.Gray{Y: 20})
	dst := findEdges(src)

	tests := []struct {
		x, y int
		want uint8
	}{
		{2, 2, 160}, // 8 * 20
		{1, 1, 0},   // -20 clamps to 0
		{0, 0, 0},   // border
	}
	for _, tc := range tests {
		if got := dst.GrayAt(tc.x, tc.y).Y; got != tc.want {
			t.Errorf("edge(%d,%d) = %d, want %d", tc.x, tc.y, got, tc.want)
		}
	}

	src.SetGray(2, 2, color.Gray{Y: 200})
	if got := findEdges(src).GrayAt(2, 2).Y; got != 255 {
		t.Errorf("edge(2,2) = %d, want clamp to 255", got)
	}
}
