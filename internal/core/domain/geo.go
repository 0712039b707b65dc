package domain

import (
	"errors"
	"fmt"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is an extent in Web Mercator (EPSG:3857) meters.
// Field order follows the imagery service convention [minX, maxY, maxX, minY].
type BoundingBox struct {
	MinX float64 `json:"minX"`
	MaxY float64 `json:"maxY"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
}

// Validate rejects zero-area or inverted boxes.
func (b BoundingBox) Validate() error {
	if !(b.MaxX > b.MinX) {
		return fmt.Errorf("bounding box maxX (%v) must exceed minX (%v)", b.MaxX, b.MinX)
	}
	if !(b.MaxY > b.MinY) {
		return fmt.Errorf("bounding box maxY (%v) must exceed minY (%v)", b.MaxY, b.MinY)
	}
	return nil
}

// Width returns the horizontal extent in meters.
func (b BoundingBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent in meters.
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// ImageSize is a raster size in pixels.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels returns width*height.
func (s ImageSize) Pixels() int { return s.Width * s.Height }

var errEmptyImage = errors.New("image size must be positive")

// Validate rejects empty rasters.
func (s ImageSize) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w, got %dx%d", errEmptyImage, s.Width, s.Height)
	}
	return nil
}

// PixelCoord is a position inside a raster. It may lie outside the frame.
type PixelCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// In reports whether p lies within [0,width) x [0,height).
func (p PixelCoord) In(size ImageSize) bool {
	return p.X >= 0 && p.X < size.Width && p.Y >= 0 && p.Y < size.Height
}

// HighResBounds describes a zoomed follow-up request centred on a crossing.
type HighResBounds struct {
	MinX   float64  `json:"minX"`
	MaxX   float64  `json:"maxX"`
	MinY   float64  `json:"minY"`
	MaxY   float64  `json:"maxY"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Center GeoPoint `json:"center"`
}
