package render

import (
	"math"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// Summarize aggregates a result set. Percentages and the average are rounded
// half-up; an empty set yields all zeros.
func Summarize(results []domain.CrossingResult, highRes []domain.HighResResult) domain.Summary {
	var s domain.Summary
	s.Total = len(results)

	confidence := 0
	for _, r := range results {
		switch r.Detection.DetectionType {
		case domain.DetectionCloudy:
			s.Cloudy++
		case domain.DetectionCityLight:
			s.CityLights++
		default:
			s.Clear++
		}
		if r.Detection.NeedsHighRes {
			s.BorderCrossings++
		}
		confidence += r.Detection.Confidence
	}
	for _, h := range highRes {
		if h.Success {
			s.HighResImages++
		}
	}

	if s.Total == 0 {
		return s
	}
	s.CloudyPercentage = percent(s.Cloudy, s.Total)
	s.ClearPercentage = percent(s.Clear, s.Total)
	s.CityLightPercentage = percent(s.CityLights, s.Total)
	s.AverageConfidence = int(math.Floor(float64(confidence)/float64(s.Total) + 0.5))
	return s
}

func percent(n, total int) int {
	return int(math.Floor(float64(n)/float64(total)*100 + 0.5))
}
