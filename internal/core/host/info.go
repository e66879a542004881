package host

import "math"

// Unit is the unit a document dimension is reported in.
type Unit string

const (
	UnitPixels      Unit = "px"
	UnitInches      Unit = "in"
	UnitCentimeters Unit = "cm"
	UnitMillimeters Unit = "mm"
	UnitPoints      Unit = "pt"
)

// Measure is a dimension as reported by the host.
type Measure struct {
	Value float64
	Unit  Unit
}

// Info describes an open document.
type Info struct {
	Name string
	// Path is empty for documents never saved.
	Path   string
	Width  Measure
	Height Measure
	// Resolution in pixels per inch; zero means 72.
	Resolution float64
	// PixelWidth and PixelHeight are directly reported pixel sizes, zero when
	// the host does not report them.
	PixelWidth  float64
	PixelHeight float64
}

// Pixels returns the document size in whole pixels.
func (i Info) Pixels() (width, height int) {
	return toPixels(i.Width, i.Resolution, i.PixelWidth), toPixels(i.Height, i.Resolution, i.PixelHeight)
}

// toPixels converts m to pixels. When the converted value is implausibly
// smaller than the directly reported pixel size (less than half), the direct
// value is used instead.
func toPixels(m Measure, resolution, direct float64) int {
	if resolution <= 0 {
		resolution = 72
	}

	var px float64
	switch m.Unit {
	case UnitInches:
		px = m.Value * resolution
	case UnitCentimeters:
		px = m.Value / 2.54 * resolution
	case UnitMillimeters:
		px = m.Value / 25.4 * resolution
	case UnitPoints:
		px = m.Value / 72 * resolution
	default:
		px = m.Value
	}

	if direct > 0 && px < direct/2 {
		px = direct
	}
	if px < 0 {
		px = 0
	}
	return int(math.Round(px))
}
