package usecases_test

import (
	"strconv"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/usecases"
	"github.com/samirrijal/cumulus/internal/pkg/classify"
	"github.com/samirrijal/cumulus/internal/pkg/sampling"
)

func itoa(n int) string { return strconv.Itoa(n) }

var (
	testBBox = domain.BoundingBox{MinX: -13129234, MaxY: 3958039, MaxX: -10750644, MinY: 2884188}
	testSize = domain.ImageSize{Width: 100, Height: 50}
)

// At 100x50: El Paso (54,11), Laredo (86,36), Nogales (33,13), San Ysidro (4,6).
var testCrossings = []domain.Crossing{
	{Name: "El Paso", Coordinates: domain.GeoPoint{Lat: 31.7587, Lon: -106.4869}},
	{Name: "Laredo", Coordinates: domain.GeoPoint{Lat: 27.5036, Lon: -99.5075}},
	{Name: "Nogales", Coordinates: domain.GeoPoint{Lat: 31.3322, Lon: -110.9428}},
	{Name: "Montreal", Coordinates: domain.GeoPoint{Lat: 45.5, Lon: -73.6}},
	{Name: "San Ysidro", Coordinates: domain.GeoPoint{Lat: 32.5422, Lon: -117.0296}},
}

// syntheticImage lays out exactly three bytes per pixel after a start-of-scan
// marker, so the scan sampler reads the colour returned by paint.
func syntheticImage(size domain.ImageSize, paint func(x, y int) [3]byte) []byte {
	img := []byte{0xFF, 0xD8, 0xFF, 0xDA}
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			c := paint(x, y)
			img = append(img, c[0], c[1], c[2])
		}
	}
	return img
}

// borderImage is white around El Paso and San Ysidro, red-tinted around
// Nogales and dark elsewhere.
func borderImage() []byte {
	return syntheticImage(testSize, func(x, y int) [3]byte {
		switch {
		case x >= 44 && x <= 64 && y <= 21:
			return [3]byte{255, 255, 255}
		case x <= 14 && y <= 16:
			return [3]byte{230, 235, 250}
		case x >= 23 && x <= 43 && y >= 3 && y <= 23:
			return [3]byte{255, 200, 160}
		default:
			return [3]byte{20, 30, 40}
		}
	})
}

func newDetector() *usecases.DetectionService {
	return usecases.NewDetectionService(
		usecases.DetectionOptions{BBox: testBBox, Size: testSize, SampleRadius: 4, Workers: 4},
		sampling.NewScanSampler(),
		classify.New(classify.DefaultParams()),
	)
}
