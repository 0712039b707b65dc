package geospatial_test

import (
	"math"
	"testing"

	"github.com/wroge/wgs84"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/pkg/geospatial"
)

var (
	borderBox  = domain.BoundingBox{MinX: -13129234, MaxY: 3958039, MaxX: -10750644, MinY: 2884188}
	borderSize = domain.ImageSize{Width: 1000, Height: 500}
)

func TestMercator_MatchesEPSGTransform(t *testing.T) {
	toWebMercator := wgs84.EPSG().Transform(4326, 3857)

	points := []domain.GeoPoint{
		{Lat: 32.5422, Lon: -117.0296}, // San Ysidro
		{Lat: 31.7587, Lon: -106.4869}, // El Paso
		{Lat: 25.9017, Lon: -97.4975},  // Brownsville
		{Lat: 0, Lon: 0},
	}
	for _, p := range points {
		x, y := geospatial.Mercator(p)
		wx, wy, _ := toWebMercator(p.Lon, p.Lat, 0)
		if math.Abs(x-wx) > 1 || math.Abs(y-wy) > 1 {
			t.Errorf("Mercator(%v) = (%.2f, %.2f), EPSG:3857 gives (%.2f, %.2f)", p, x, y, wx, wy)
		}
	}
}

func TestProject_InsideBoxStaysInFrame(t *testing.T) {
	for fx := 0.0; fx < 0.99; fx += 0.07 {
		for fy := 0.0; fy < 0.99; fy += 0.07 {
			x := borderBox.MinX + fx*borderBox.Width()
			y := borderBox.MaxY - fy*borderBox.Height()
			geo := geospatial.Unproject(x, y)

			px := geospatial.Project(geo, borderBox, borderSize)
			if !px.In(borderSize) {
				t.Fatalf("Project(%v) = %v, outside %dx%d", geo, px, borderSize.Width, borderSize.Height)
			}
		}
	}
}

func TestProject_LastHalfPixelRoundsOutOfFrame(t *testing.T) {
	tests := []struct {
		name   string
		fx, fy float64
		want   domain.PixelCoord
	}{
		{"right edge", 0.9996, 0.5, domain.PixelCoord{X: 1000, Y: 250}},
		{"bottom edge", 0.5, 0.9996, domain.PixelCoord{X: 500, Y: 500}},
		{"just inside", 0.9994, 0.9988, domain.PixelCoord{X: 999, Y: 499}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := geospatial.Unproject(borderBox.MinX+tt.fx*borderBox.Width(), borderBox.MaxY-tt.fy*borderBox.Height())
			px := geospatial.Project(geo, borderBox, borderSize)
			if px != tt.want {
				t.Fatalf("Project(%v) = %v, want %v", geo, px, tt.want)
			}
			inside := tt.want.X < borderSize.Width && tt.want.Y < borderSize.Height
			if px.In(borderSize) != inside {
				t.Errorf("In(%v) = %v, want %v", px, px.In(borderSize), inside)
			}
		})
	}
}

func TestProject_Corners(t *testing.T) {
	topLeft := geospatial.Project(geospatial.Unproject(borderBox.MinX, borderBox.MaxY), borderBox, borderSize)
	if abs(topLeft.X) > 1 || abs(topLeft.Y) > 1 {
		t.Errorf("top-left corner = %v, want within 1px of (0,0)", topLeft)
	}

	bottomRight := geospatial.Project(geospatial.Unproject(borderBox.MaxX, borderBox.MinY), borderBox, borderSize)
	if abs(bottomRight.X-(borderSize.Width-1)) > 1 || abs(bottomRight.Y-(borderSize.Height-1)) > 1 {
		t.Errorf("bottom-right corner = %v, want within 1px of (%d,%d)", bottomRight, borderSize.Width-1, borderSize.Height-1)
	}
}

func TestProject_OutsideIsNotClamped(t *testing.T) {
	px := geospatial.Project(domain.GeoPoint{Lat: 45, Lon: -70}, borderBox, borderSize)
	if px.In(borderSize) {
		t.Fatalf("expected out-of-frame pixel, got %v", px)
	}
	if px.X <= borderSize.Width {
		t.Errorf("expected x beyond the right edge, got %d", px.X)
	}
	if px.Y >= 0 {
		t.Errorf("expected y above the top edge, got %d", px.Y)
	}
}

func TestHighResBounds(t *testing.T) {
	center := domain.GeoPoint{Lat: 31.7587, Lon: -106.4869}
	b := geospatial.HighResBounds(center, borderBox, borderSize, 0, 0)

	if b.Width != geospatial.HighResWidth || b.Height != geospatial.HighResHeight {
		t.Fatalf("expected default %dx%d, got %dx%d", geospatial.HighResWidth, geospatial.HighResHeight, b.Width, b.Height)
	}
	if b.Center != center {
		t.Errorf("center not echoed: %v", b.Center)
	}

	// 1073851 m / 500 px is finer than 2378590 m / 1000 px.
	best := math.Min(borderBox.Width()/float64(borderSize.Width), borderBox.Height()/float64(borderSize.Height))
	if math.Abs(best-borderBox.Height()/float64(borderSize.Height)) > 1e-9 {
		t.Fatalf("expected the y axis to be finer, got %f", best)
	}
	if got := (b.MaxX - b.MinX) / float64(b.Width); math.Abs(got-best) > 1e-6 {
		t.Errorf("x resolution = %f, want %f", got, best)
	}
	if got := (b.MaxY - b.MinY) / float64(b.Height); math.Abs(got-best) > 1e-6 {
		t.Errorf("y resolution = %f, want %f", got, best)
	}

	cx, cy := geospatial.Mercator(center)
	if math.Abs((b.MinX+b.MaxX)/2-cx) > 1e-6 || math.Abs((b.MinY+b.MaxY)/2-cy) > 1e-6 {
		t.Errorf("window not centred on crossing")
	}
}

func TestUnproject_RoundTrip(t *testing.T) {
	p := domain.GeoPoint{Lat: 29.5583, Lon: -104.3724}
	x, y := geospatial.Mercator(p)
	back := geospatial.Unproject(x, y)
	if math.Abs(back.Lat-p.Lat) > 1e-9 || math.Abs(back.Lon-p.Lon) > 1e-9 {
		t.Errorf("round trip drifted: %v -> %v", p, back)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
