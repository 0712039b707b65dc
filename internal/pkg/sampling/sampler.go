// Package sampling reads approximate RGB values around a pixel of an encoded image.
package sampling

import (
	"bytes"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// Sampler returns RGB samples from the neighbourhood of center.
// An empty result means "no data" and is not an error.
type Sampler interface {
	Sample(image []byte, center domain.PixelCoord, radius int, size domain.ImageSize) []domain.RGBSample
}

// FallbackDataStart is used when no start-of-scan marker is present.
const FallbackDataStart = 1000

// GridStep is the spacing between sampled offsets on both axes.
const GridStep = 2

var startOfScan = []byte{0xFF, 0xDA}

// ScanSampler estimates pixel positions in a JPEG stream by spreading the bytes that
// follow the start-of-scan marker evenly over the raster. It does not decode the image;
// the values are deterministic but only loosely related to the true pixel colours.
type ScanSampler struct{}

// NewScanSampler returns the byte-offset sampler.
func NewScanSampler() *ScanSampler {
	return &ScanSampler{}
}

// DataStart returns the offset of the first entropy-coded byte.
func DataStart(image []byte) int {
	if i := bytes.Index(image, startOfScan); i >= 0 {
		return i + len(startOfScan)
	}
	return FallbackDataStart
}

func (s *ScanSampler) Sample(image []byte, center domain.PixelCoord, radius int, size domain.ImageSize) []domain.RGBSample {
	start := DataStart(image)
	if start >= len(image) || size.Pixels() <= 0 || radius < 0 {
		return nil
	}

	data := image[start:]
	byteRatio := float64(len(data)) / float64(size.Pixels())

	var samples []domain.RGBSample
	for dy := -radius; dy <= radius; dy += GridStep {
		for dx := -radius; dx <= radius; dx += GridStep {
			p := domain.PixelCoord{X: center.X + dx, Y: center.Y + dy}
			if !p.In(size) {
				continue
			}

			pixelIndex := p.Y*size.Width + p.X
			pos := int(float64(pixelIndex) * byteRatio)
			if pos < len(data)-2 {
				samples = append(samples, domain.RGBSample{R: data[pos], G: data[pos+1], B: data[pos+2]})
			}
		}
	}
	return samples
}
