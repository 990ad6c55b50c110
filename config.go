package edgedupe

import "fmt"

const (
	DefaultMatchPercent  = 90
	DefaultLineDetect    = 128
	DefaultSamplePercent = 10
	DefaultSampleWidth   = 500
	DefaultSampleHeight  = 500

	// DefaultStride is the partial-scan step in raw signature bytes,
	// roughly every 10th coordinate.
	DefaultStride = 40

	maxDimension = 1<<16 - 1 // coordinates are stored as uint16
)

// Config holds the tuning parameters shared by Extractor, Index and Comparer.
// It is a value type: setters return a modified copy.
type Config struct {
	MatchPercent  int // 0-100, share of units that must match
	LineDetect    int // 0-255, minimum edge intensity
	SamplePercent int // 1-100, divisor for the partial-scan budget
	SampleWidth   int // canonical width images are resized to
	SampleHeight  int // canonical height images are resized to
	Stride        int // partial-scan step in bytes, multiple of 4
}

// DefaultConfig returns the stock tuning: 90% match, line detect 128,
// sample divisor 10, 500x500 canonical resolution, 40-byte stride.
func DefaultConfig() Config {
	return Config{
		MatchPercent:  DefaultMatchPercent,
		LineDetect:    DefaultLineDetect,
		SamplePercent: DefaultSamplePercent,
		SampleWidth:   DefaultSampleWidth,
		SampleHeight:  DefaultSampleHeight,
		Stride:        DefaultStride,
	}
}

// Validate checks every field against its allowed range.
func (c Config) Validate() error {
	if c.MatchPercent < 0 || c.MatchPercent > 100 {
		return configErr("match_percent must be between 0 and 100 (got %d)", c.MatchPercent)
	}
	if c.LineDetect < 0 || c.LineDetect > 255 {
		return configErr("line_detect must be between 0 and 255 (got %d)", c.LineDetect)
	}
	// SamplePercent divides the signature length, so zero is not allowed.
	if c.SamplePercent < 1 || c.SamplePercent > 100 {
		return configErr("sample_percent must be between 1 and 100 (got %d)", c.SamplePercent)
	}
	if c.SampleWidth < 1 || c.SampleWidth > maxDimension {
		return configErr("sample width must be between 1 and %d (got %d)", maxDimension, c.SampleWidth)
	}
	if c.SampleHeight < 1 || c.SampleHeight > maxDimension {
		return configErr("sample height must be between 1 and %d (got %d)", maxDimension, c.SampleHeight)
	}
	if c.Stride < unitSize || c.Stride%unitSize != 0 {
		return configErr("stride must be a positive multiple of %d (got %d)", unitSize, c.Stride)
	}
	return nil
}

// WithMatchPercent returns a copy of c with MatchPercent set.
func (c Config) WithMatchPercent(percent int) (Config, error) {
	c.MatchPercent = percent
	return c, c.Validate()
}

// WithLineDetect returns a copy of c with LineDetect set.
func (c Config) WithLineDetect(value int) (Config, error) {
	c.LineDetect = value
	return c, c.Validate()
}

// WithSamplePercent returns a copy of c with SamplePercent set.
func (c Config) WithSamplePercent(percent int) (Config, error) {
	c.SamplePercent = percent
	return c, c.Validate()
}

// WithSampleDimensions returns a copy of c with the canonical resolution set.
func (c Config) WithSampleDimensions(width, height int) (Config, error) {
	c.SampleWidth = width
	c.SampleHeight = height
	return c, c.Validate()
}

// String returns a human-readable representation of the config.
func (c Config) String() string {
	return fmt.Sprintf("Config{Match: %d%%, LineDetect: %d, Sample: %d, Dimensions: %dx%d, Stride: %d}",
		c.MatchPercent, c.LineDetect, c.SamplePercent, c.SampleWidth, c.SampleHeight, c.Stride)
}
