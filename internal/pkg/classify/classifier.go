// Package classify turns RGB samples into a cloud / clear / city-light verdict
// using static brightness thresholds.
package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// Ratio cut-offs of the standard ladder and the city-light gate.
const (
	highCloudRatio      = 0.3
	mediumCloudRatio    = 0.15
	cityLightCloudRatio = 0.2
	cityLightFloor      = 20
)

// Classifier applies ThresholdParams to a set of samples. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	params ThresholdParams
}

// New returns a classifier for p. Callers validate p beforehand.
func New(p ThresholdParams) *Classifier {
	return &Classifier{params: p}
}

// Params returns the thresholds in use.
func (c *Classifier) Params() ThresholdParams { return c.params }

// Classify returns the verdict for samples. An empty slice yields the "No pixel data" result.
func (c *Classifier) Classify(samples []domain.RGBSample) domain.Detection {
	p := c.params
	if len(samples) == 0 {
		return domain.Detection{
			DetectionType: domain.DetectionClear,
			Analysis:      domain.AnalysisNoPixelData,
			Details:       &domain.DetectionDetails{Threshold: p.Limit},
		}
	}

	var cloud, city, sumR, sumG, sumB int
	for _, s := range samples {
		r, g, b := int(s.R), int(s.G), int(s.B)
		sumR += r
		sumG += g
		sumB += b

		if r < p.Limit || g < p.Limit || b < p.Limit {
			continue
		}
		if c.isCityLight(r, g, b) {
			city++
		} else {
			cloud++
		}
	}

	n := len(samples)
	avgR := roundHalfUp(float64(sumR) / float64(n))
	avgG := roundHalfUp(float64(sumG) / float64(n))
	avgB := roundHalfUp(float64(sumB) / float64(n))

	cloudRatio := float64(cloud) / float64(n)
	cityRatio := float64(city) / float64(n)
	dimness := 100 - float64(avgR+avgG+avgB)/3/float64(p.Limit)*50

	cityDominant := cityRatio > cloudRatio && city > 0

	var hasClouds bool
	var confidence float64
	switch {
	case cityDominant:
		if cloudRatio >= cityLightCloudRatio {
			hasClouds, confidence = true, float64(p.ConfidenceLow)
		} else {
			confidence = math.Max(cityLightFloor, dimness)
		}
	case cloudRatio >= highCloudRatio:
		hasClouds, confidence = true, float64(p.ConfidenceHigh)
	case cloudRatio >= mediumCloudRatio:
		hasClouds, confidence = true, float64(p.ConfidenceMedium)
	case cloudRatio > 0:
		hasClouds, confidence = true, float64(p.ConfidenceLow)
	default:
		confidence = math.Max(0, dimness)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "RGB(%d,%d,%d) | %d/%d pixels ≥%d | %d%%",
		avgR, avgG, avgB, cloud, n, p.Limit, roundHalfUp(cloudRatio*100))
	if city > 0 {
		fmt.Fprintf(&sb, " | %d city lights (R%+d vs B)", city, avgR-avgB)
	}
	if cityDominant {
		sb.WriteString(" | city lights detected")
	}

	kind := domain.DetectionClear
	switch {
	case cityDominant:
		kind = domain.DetectionCityLight
	case hasClouds:
		kind = domain.DetectionCloudy
	}

	return domain.Detection{
		HasClouds:     hasClouds,
		NeedsHighRes:  hasClouds,
		Confidence:    roundHalfUp(confidence),
		DetectionType: kind,
		Analysis:      sb.String(),
		Details: &domain.DetectionDetails{
			CloudPixels:     cloud,
			CityLightPixels: city,
			TotalPixels:     n,
			AvgRGB:          [3]int{avgR, avgG, avgB},
			CloudRatio:      roundHalfUp(cloudRatio * 100),
			CityLightRatio:  roundHalfUp(cityRatio * 100),
			Threshold:       p.Limit,
		},
	}
}

// isCityLight assumes r, g and b already passed the brightness limit.
func (c *Classifier) isCityLight(r, g, b int) bool {
	p := c.params
	if float64(r+g+b)/3 < float64(p.CityLightMinBrightness) {
		return false
	}
	redVsBlue := r - b
	if redVsBlue >= p.RedDominanceThreshold {
		return true
	}
	margin := p.YellowMargin()
	return redVsBlue >= margin && g-b >= margin
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
