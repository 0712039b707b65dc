package geospatial

import (
	"math"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// OriginShift is half the circumference of the spherical Mercator world in meters.
const OriginShift = 20037508.34

// Default follow-up window in pixels.
const (
	HighResWidth  = 240
	HighResHeight = 400
)

// Mercator converts a WGS 84 point to spherical Web Mercator meters.
func Mercator(geo domain.GeoPoint) (x, y float64) {
	x = geo.Lon * OriginShift / 180
	y = math.Log(math.Tan((90+geo.Lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * OriginShift / 180
	return x, y
}

// Project maps a geographic point onto the pixel grid of an image covering bbox.
// Rows grow southwards. The result is not clamped; callers check PixelCoord.In.
func Project(geo domain.GeoPoint, bbox domain.BoundingBox, size domain.ImageSize) domain.PixelCoord {
	x, y := Mercator(geo)
	px := (x - bbox.MinX) / bbox.Width() * float64(size.Width)
	py := (bbox.MaxY - y) / bbox.Height() * float64(size.Height)
	return domain.PixelCoord{X: roundHalfUp(px), Y: roundHalfUp(py)}
}

// HighResBounds returns a width x height window centred on geo at the finer of the
// two per-axis resolutions of the source image. Non-positive sizes use the defaults.
func HighResBounds(geo domain.GeoPoint, bbox domain.BoundingBox, size domain.ImageSize, width, height int) domain.HighResBounds {
	if width <= 0 {
		width = HighResWidth
	}
	if height <= 0 {
		height = HighResHeight
	}

	cx, cy := Mercator(geo)
	best := math.Min(bbox.Width()/float64(size.Width), bbox.Height()/float64(size.Height))
	halfW := float64(width) * best / 2
	halfH := float64(height) * best / 2

	return domain.HighResBounds{
		MinX:   cx - halfW,
		MaxX:   cx + halfW,
		MinY:   cy - halfH,
		MaxY:   cy + halfH,
		Width:  width,
		Height: height,
		Center: geo,
	}
}

// Unproject is the inverse of Mercator.
func Unproject(x, y float64) domain.GeoPoint {
	lon := x / OriginShift * 180
	lat := y / OriginShift * 180
	lat = 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180)) - math.Pi/2)
	return domain.GeoPoint{Lat: lat, Lon: lon}
}

// roundHalfUp rounds .5 towards +Inf, matching the rounding of the imagery tooling.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
