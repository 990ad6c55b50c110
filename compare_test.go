package edgedupe

import (
	"errors"
	"image"
	"strings"
	"testing"
)

func newTestComparer(t *testing.T) *Comparer {
	t.Helper()
	c, err := NewComparer(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCompare_SameImage(t *testing.T) {
	t.Parallel()
	c := newTestComparer(t)
	img := rectImage(100, 100, image.Rect(20, 20, 70, 60))

	res := c.Compare(img, img)
	if res.Percent != 100 || !res.Match {
		t.Errorf("Compare(same) = %+v, want 100%% match", res)
	}
	if res.Sampled == 0 {
		t.Error("no edges sampled")
	}
	if res.DHashDistance != 0 {
		t.Errorf("DHashDistance = %d, want 0", res.DHashDistance)
	}
	if !strings.Contains(res.String(), "with a 100% match") {
		t.Errorf("String() = %q", res.String())
	}
}

func TestCompare_DifferentImages(t *testing.T) {
	t.Parallel()
	c := newTestComparer(t)

	a := rectImage(100, 100, image.Rect(5, 5, 30, 30))
	b := rectImage(100, 100, image.Rect(65, 65, 95, 95))
	if res := c.Compare(a, b); res.Match {
		t.Errorf("Compare(distinct) = %+v, want no match", res)
	}
}

func TestCompare_NoEdges(t *testing.T) {
	t.Parallel()
	c := newTestComparer(t)

	res := c.Compare(solidImage(40, 40), rectImage(40, 40, image.Rect(5, 5, 20, 20)))
	if res.Match || res.Sampled != 0 || res.Percent != 0 {
		t.Errorf("Compare(solid, rect) = %+v, want empty non-match", res)
	}
}

func TestCompareBytes(t *testing.T) {
	t.Parallel()
	c := newTestComparer(t)
	img := rectImage(80, 80, image.Rect(10, 10, 50, 50))

	res, err := c.CompareBytes(makePNG(t, img), makeJPEG(t, img))
	if err != nil {
		t.Fatalf("CompareBytes: %v", err)
	}
	if !res.Match {
		t.Errorf("png vs jpeg of the same image = %+v, want match", res)
	}

	if _, err := c.CompareBytes([]byte("junk"), makePNG(t, img)); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", err)
	}
}
