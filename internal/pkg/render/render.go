// Package render turns a detection snapshot into an SVG overlay, an HTML status
// page, a plain-text report and a GeoJSON export.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// Renderer formats snapshots. The zero value is not usable; use New.
type Renderer struct {
	style        Style
	redDominance int
}

// New returns a renderer. redDominance is only echoed in headers.
func New(style Style, redDominance int) *Renderer {
	if style.MarkerSize <= 0 {
		style.MarkerSize = DefaultStyle().MarkerSize
	}
	return &Renderer{style: style, redDominance: redDominance}
}

// Style returns the marker style in use.
func (r *Renderer) Style() Style { return r.style }

type marker struct {
	X, Y       int
	Label      int
	Fill       string
	Stroke     string
	Name       string
	Status     string
	Confidence int
	Lat, Lon   string
	Analysis   string
}

type listItem struct {
	Name       string
	State      string
	Confidence int
	Analysis   string
}

type view struct {
	Timestamp    string
	Generated    string
	ImageFile    string
	Size         domain.ImageSize
	Threshold    int
	RedDominance int
	Summary      domain.Summary
	Style        Style
	CSS          template.CSS
	Markers      []marker
	Cloudy       []listItem
	CityLights   []listItem
}

// ImageFile is the name of the base image saved for a cycle timestamp.
func ImageFile(timestamp string) string {
	return "border_" + timestamp + ".jpg"
}

// Render produces all text artifacts for s. s.Summary is used as-is.
func (r *Renderer) Render(s *domain.Snapshot) (domain.Artifacts, error) {
	v := r.view(s)

	var svg bytes.Buffer
	svg.WriteString(xmlHeader)
	if err := overlayTmpl.Execute(&svg, v); err != nil {
		return domain.Artifacts{}, fmt.Errorf("render overlay: %w", err)
	}

	var html bytes.Buffer
	if err := statusTmpl.Execute(&html, v); err != nil {
		return domain.Artifacts{}, fmt.Errorf("render status page: %w", err)
	}

	return domain.Artifacts{
		OverlaySVG: svg.String(),
		StatusHTML: html.String(),
		Report:     r.Report(s),
	}, nil
}

// Overlay renders only the SVG overlay.
func (r *Renderer) Overlay(s *domain.Snapshot) (string, error) {
	var svg bytes.Buffer
	svg.WriteString(xmlHeader)
	if err := overlayTmpl.Execute(&svg, r.view(s)); err != nil {
		return "", fmt.Errorf("render overlay: %w", err)
	}
	return svg.String(), nil
}

func (r *Renderer) view(s *domain.Snapshot) view {
	v := view{
		Timestamp:    s.Timestamp,
		Generated:    s.Generated.UTC().Format(time.RFC1123),
		ImageFile:    ImageFile(s.Timestamp),
		Size:         s.ImageSize,
		Threshold:    s.RGBThreshold,
		RedDominance: r.redDominance,
		Summary:      s.Summary,
		Style:        r.style,
		CSS:          r.css(),
	}

	for i, res := range s.Results {
		if res.Pixel.X >= 0 && res.Pixel.X <= s.ImageSize.Width && res.Pixel.Y >= 0 && res.Pixel.Y <= s.ImageSize.Height {
			p := r.style.Palette(res.Detection.DetectionType)
			v.Markers = append(v.Markers, marker{
				X:          res.Pixel.X,
				Y:          res.Pixel.Y,
				Label:      labelFor(res, i),
				Fill:       p.Fill,
				Stroke:     p.Stroke,
				Name:       res.Crossing.Name,
				Status:     StatusText(res.Detection.DetectionType),
				Confidence: res.Detection.Confidence,
				Lat:        fmt.Sprintf("%.4f", res.Crossing.Coordinates.Lat),
				Lon:        fmt.Sprintf("%.4f", res.Crossing.Coordinates.Lon),
				Analysis:   res.Detection.Analysis,
			})
		}

		item := listItem{
			Name:       res.Crossing.Name,
			State:      res.Crossing.State(),
			Confidence: res.Detection.Confidence,
			Analysis:   res.Detection.Analysis,
		}
		switch res.Detection.DetectionType {
		case domain.DetectionCloudy:
			v.Cloudy = append(v.Cloudy, item)
		case domain.DetectionCityLight:
			v.CityLights = append(v.CityLights, item)
		}
	}
	return v
}

func labelFor(res domain.CrossingResult, i int) int {
	if res.BorderNumber > 0 {
		return res.BorderNumber
	}
	return i + 1
}

func (r *Renderer) css() template.CSS {
	var b strings.Builder
	for _, c := range []struct {
		class string
		p     Palette
	}{
		{"cloudy", r.style.Cloudy},
		{"clear", r.style.Clear},
		{"citylight", r.style.CityLight},
	} {
		fmt.Fprintf(&b, ".%s .stat-number { color: %s; }\n", c.class, c.p.Fill)
		fmt.Fprintf(&b, "        .%s-list { border-left: 4px solid %s; }\n        ", c.class, c.p.Fill)
	}
	return template.CSS(b.String())
}

const rule = "================================================================================"

// Report is the plain-text cycle summary printed by the CLI.
func (r *Renderer) Report(s *domain.Snapshot) string {
	sum := s.Summary
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "BORDER CLOUD MONITORING COMPLETE")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Timestamp: %s\n", s.Timestamp)
	fmt.Fprintf(&b, "Method: RGB threshold (%d)\n", s.RGBThreshold)
	fmt.Fprintf(&b, "City light detection: red dominance >= %d\n", r.redDominance)
	fmt.Fprintf(&b, "Total crossings: %d\n", sum.Total)
	fmt.Fprintf(&b, "Cloudy conditions: %d (%d%%)\n", sum.Cloudy, sum.CloudyPercentage)
	fmt.Fprintf(&b, "Clear conditions: %d (%d%%)\n", sum.Clear, sum.ClearPercentage)
	fmt.Fprintf(&b, "City light detections: %d (%d%%)\n", sum.CityLights, sum.CityLightPercentage)
	fmt.Fprintf(&b, "Borders with clouds detected: %d\n", sum.BorderCrossings)
	fmt.Fprintf(&b, "High-res images captured: %d/%d\n", sum.HighResImages, len(s.Selected))
	fmt.Fprintf(&b, "Average confidence: %d%%\n", sum.AverageConfidence)
	fmt.Fprintln(&b, rule)

	var cloudy, city []domain.CrossingResult
	for _, res := range s.Results {
		switch res.Detection.DetectionType {
		case domain.DetectionCloudy:
			cloudy = append(cloudy, res)
		case domain.DetectionCityLight:
			city = append(city, res)
		}
	}

	if len(cloudy) == 0 {
		fmt.Fprintln(&b, "\nAll crossings show clear conditions")
	} else {
		fmt.Fprintln(&b, "\nDetected Cloud Locations:")
		for i, res := range cloudy {
			tag := ""
			switch {
			case s.IsSelected(res.BorderNumber):
				tag = " [HIGH-RES REQUESTED]"
			case res.Detection.NeedsHighRes:
				tag = " [SKIPPED - NOT SELECTED]"
			}
			fmt.Fprintf(&b, "%d. %s: %d%% | %s%s\n", i+1, res.Crossing.Name, res.Detection.Confidence, res.Detection.Analysis, tag)
		}
	}

	if len(city) > 0 {
		fmt.Fprintln(&b, "\nDetected City Light Locations:")
		for i, res := range city {
			fmt.Fprintf(&b, "%d. %s: %d%% | %s\n", i+1, res.Crossing.Name, res.Detection.Confidence, res.Detection.Analysis)
		}
	}
	return b.String()
}
