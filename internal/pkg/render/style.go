package render

import "github.com/samirrijal/cumulus/internal/core/domain"

// Palette is the fill and stroke of one marker class.
type Palette struct {
	Fill   string `mapstructure:"fill"`
	Stroke string `mapstructure:"stroke"`
}

// Style controls marker appearance.
type Style struct {
	MarkerSize int     `mapstructure:"marker_size"`
	Cloudy     Palette `mapstructure:"cloudy"`
	Clear      Palette `mapstructure:"clear"`
	CityLight  Palette `mapstructure:"city_light"`
}

// DefaultStyle is blue for clouds, green for clear and red for city lights.
func DefaultStyle() Style {
	return Style{
		MarkerSize: 10,
		Cloudy:     Palette{Fill: "#0066FF", Stroke: "#0044CC"},
		Clear:      Palette{Fill: "#00FF00", Stroke: "#00CC00"},
		CityLight:  Palette{Fill: "#FF0000", Stroke: "#CC0000"},
	}
}

// Palette returns the colours for a detection type; unknown types render as clear.
func (s Style) Palette(t domain.DetectionType) Palette {
	switch t {
	case domain.DetectionCloudy:
		return s.Cloudy
	case domain.DetectionCityLight:
		return s.CityLight
	default:
		return s.Clear
	}
}

// StatusText is the upper-case label used in tooltips and reports.
func StatusText(t domain.DetectionType) string {
	switch t {
	case domain.DetectionCloudy:
		return "CLOUDY"
	case domain.DetectionCityLight:
		return "CITY LIGHTS"
	default:
		return "CLEAR"
	}
}
