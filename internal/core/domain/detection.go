package domain

import (
	"fmt"
	"time"
)

// RGBSample is one approximate pixel read from the image buffer.
type RGBSample struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// DetectionType is the visual class assigned to a crossing.
type DetectionType string

const (
	DetectionClear     DetectionType = "clear"
	DetectionCloudy    DetectionType = "cloudy"
	DetectionCityLight DetectionType = "cityLight"
)

// ParseDetectionType validates a wire value.
func ParseDetectionType(s string) (DetectionType, error) {
	switch t := DetectionType(s); t {
	case DetectionClear, DetectionCloudy, DetectionCityLight:
		return t, nil
	}
	return "", fmt.Errorf("unknown detection type %q", s)
}

// Analysis strings with fixed meaning.
const (
	AnalysisNoPixelData   = "No pixel data"
	AnalysisOutsideBounds = "Outside bounds"
)

// Detection is the classifier verdict for one crossing in one cycle.
type Detection struct {
	HasClouds     bool              `json:"hasClouds"`
	NeedsHighRes  bool              `json:"needsHighRes"`
	Confidence    int               `json:"confidence"`
	DetectionType DetectionType     `json:"detectionType"`
	Analysis      string            `json:"analysis"`
	Details       *DetectionDetails `json:"details"`
}

// DetectionDetails carries the raw counts behind a Detection.
type DetectionDetails struct {
	CloudPixels     int    `json:"cloudPixels"`
	CityLightPixels int    `json:"cityLightPixels"`
	TotalPixels     int    `json:"totalPixels"`
	AvgRGB          [3]int `json:"avgRGB"`
	CloudRatio      int    `json:"cloudRatio"`     // percent
	CityLightRatio  int    `json:"cityLightRatio"` // percent
	Threshold       int    `json:"threshold"`
}

// OutsideBounds is the result recorded for a crossing that projects outside the frame.
func OutsideBounds() Detection {
	return Detection{
		DetectionType: DetectionClear,
		Analysis:      AnalysisOutsideBounds,
	}
}

// CrossingResult attaches the derived fields of one cycle to a crossing.
type CrossingResult struct {
	BorderNumber int        `json:"borderNumber"` // 1-based position in the crossing list
	Crossing     Crossing   `json:"crossing"`
	Pixel        PixelCoord `json:"pixel"`
	InBounds     bool       `json:"inBounds"`
	Detection    Detection  `json:"detection"`
}

// HighResResult records the outcome of one high-resolution follow-up request.
type HighResResult struct {
	Success      bool           `json:"success"`
	BorderNumber int            `json:"borderNumber"`
	Crossing     string         `json:"crossing"`
	Confidence   int            `json:"confidence"`
	Filename     string         `json:"filename,omitempty"`
	Path         string         `json:"filepath,omitempty"`
	RelativePath string         `json:"relativePath,omitempty"`
	URL          string         `json:"url,omitempty"`
	Bounds       *HighResBounds `json:"bounds,omitempty"`
	Size         int            `json:"size,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Summary aggregates one cycle.
type Summary struct {
	Total               int `json:"total"`
	Cloudy              int `json:"cloudy"`
	Clear               int `json:"clear"`
	CityLights          int `json:"cityLights"`
	BorderCrossings     int `json:"borderCrossings"`
	HighResImages       int `json:"highResImages"`
	CloudyPercentage    int `json:"cloudyPercentage"`
	ClearPercentage     int `json:"clearPercentage"`
	CityLightPercentage int `json:"cityLightPercentage"`
	AverageConfidence   int `json:"averageConfidence"`
}

// MethodRGBThreshold identifies the detection method in snapshots.
const MethodRGBThreshold = "cumulus-rgb-threshold"

// Snapshot is the complete, immutable output of a detection cycle.
type Snapshot struct {
	ID             string           `json:"id"`
	Timestamp      string           `json:"timestamp"`
	Generated      time.Time        `json:"generated"`
	Method         string           `json:"method"`
	RGBThreshold   int              `json:"rgbThreshold"`
	ImageSize      ImageSize        `json:"imageSize"`
	Results        []CrossingResult `json:"results"`
	Selected       []int            `json:"selected"` // border numbers picked for follow-up
	HighResResults []HighResResult  `json:"highResResults"`
	Summary        Summary          `json:"summary"`
}

// Result returns the result for a crossing name.
func (s *Snapshot) Result(name string) (CrossingResult, bool) {
	for _, r := range s.Results {
		if r.Crossing.Name == name {
			return r, true
		}
	}
	return CrossingResult{}, false
}

// IsSelected reports whether a border number was picked for follow-up.
func (s *Snapshot) IsSelected(borderNumber int) bool {
	for _, n := range s.Selected {
		if n == borderNumber {
			return true
		}
	}
	return false
}

// CyclePlan is the state carried between the phases of a cycle.
type CyclePlan struct {
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Generated time.Time        `json:"generated"`
	ImagePath string           `json:"imagePath"`
	Results   []CrossingResult `json:"results"`
	Selected  []CrossingResult `json:"selected"`
}

// Artifacts are the rendered outputs of a cycle.
type Artifacts struct {
	OverlaySVG string `json:"overlaySvg"`
	StatusHTML string `json:"statusHtml"`
	Report     string `json:"report"`
}

// ArtifactPaths are where a cycle's outputs were written.
type ArtifactPaths struct {
	Data    string `json:"data"`
	Overlay string `json:"overlay"`
	Status  string `json:"status"`
}

// CycleSummary is a compact history row.
type CycleSummary struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	Generated time.Time `json:"generated"`
	Summary   Summary   `json:"summary"`
}

// CrossingObservation is one historical detection for a crossing.
type CrossingObservation struct {
	CycleID   string     `json:"cycle_id"`
	Generated time.Time  `json:"generated"`
	Pixel     PixelCoord `json:"pixel"`
	Detection Detection  `json:"detection"`
}

// HighResImage is a stored follow-up image.
type HighResImage struct {
	BorderNumber int       `json:"borderNumber"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	Modified     time.Time `json:"modified"`
}
