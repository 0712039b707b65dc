package http

import (
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/pkg/render"
)

// SelectionResponse lists the crossings picked for follow-up in the latest cycle.
type SelectionResponse struct {
	Timestamp      string                  `json:"timestamp"`
	Selected       []domain.CrossingResult `json:"selected"`
	HighResResults []domain.HighResResult  `json:"highResResults"`
}

// StatusResponse is a compact view of the latest cycle.
type StatusResponse struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Generated string         `json:"generated"`
	Summary   domain.Summary `json:"summary"`
	Selected  []int          `json:"selected"`
	Files     StatusFiles    `json:"files"`
}

// StatusFiles are the /output URLs of a cycle's artifacts.
type StatusFiles struct {
	Image   string `json:"image"`
	Data    string `json:"data"`
	Overlay string `json:"overlay"`
	Status  string `json:"status"`
}

func statusFiles(ts string) StatusFiles {
	return StatusFiles{
		Image:   "/output/" + render.ImageFile(ts),
		Data:    "/output/data_" + ts + ".json",
		Overlay: "/output/status_overlay_" + ts + ".svg",
		Status:  "/output/status_" + ts + ".html",
	}
}

// ListCrossingsHandler returns the monitored crossings in border-number order.
func ListCrossingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crossings, err := deps.Query.Crossings(c.UserContext())
		if err != nil {
			return errInternal(c, "failed to load crossings data")
		}
		return c.JSON(crossings)
	}
}

// NearbyCrossingsHandler returns crossings within a radius of a point with their latest detection.
func NearbyCrossingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 50000)
		limit := c.QueryInt("limit", 10)

		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat must be within ±90 and lon within ±180")
		}
		if radius <= 0 || radius > 500000 {
			return errBadRequest(c, "radius must be between 1 and 500000 meters")
		}

		nearby, err := deps.Query.Nearby(c.UserContext(), lat, lon, radius, limit)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(nearby)
	}
}

// LatestDetectionsHandler returns the full latest snapshot.
func LatestDetectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		c.Set("Cache-Control", "public, max-age=30")
		return c.JSON(snap)
	}
}

// CrossingDetectionHandler returns the latest result for one crossing.
func CrossingDetectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || name == "" {
			return errBadRequest(c, "crossing name is required")
		}
		res, err := deps.Query.Crossing(c.UserContext(), name)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(res)
	}
}

// CrossingHistoryHandler returns past detections for one crossing.
func CrossingHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || name == "" {
			return errBadRequest(c, "crossing name is required")
		}
		obs, err := deps.Query.CrossingHistory(c.UserContext(), name, c.QueryInt("limit", 20))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(obs)
	}
}

// GeoJSONHandler returns the latest detections as a FeatureCollection.
func GeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		data, err := render.GeoJSON(snap)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Content-Type", "application/geo+json")
		return c.Send(data)
	}
}

// SelectionHandler returns the crossings chosen for follow-up and their outcomes.
func SelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		selected, highRes, err := deps.Query.Selection(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(SelectionResponse{
			Timestamp:      snap.Timestamp,
			Selected:       selected,
			HighResResults: highRes,
		})
	}
}

// HistoryHandler lists past cycles, newest first.
func HistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		cycles, total, err := deps.Query.History(c.UserContext(), offset, limit)
		if err != nil {
			return errFrom(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: cycles, Pagination: pg})
	}
}

// ListHighResHandler lists stored follow-up images.
func ListHighResHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		images, err := deps.Query.HighResImages(c.UserContext())
		if err != nil {
			return errInternal(c, "failed to list images")
		}
		return c.JSON(images)
	}
}

// HighResImageHandler serves the newest follow-up image for a border number.
func HighResImageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := strconv.Atoi(c.Params("borderNumber"))
		if err != nil || n <= 0 {
			return errBadRequest(c, "border number must be a positive integer")
		}
		path, err := deps.Query.HighResImage(c.UserContext(), n)
		if err != nil {
			return errFrom(c, err)
		}
		c.Set("Content-Type", "image/jpeg")
		c.Set("Cache-Control", "public, max-age=60")
		return c.SendFile(path)
	}
}

// StatusHandler summarises the latest cycle and links its artifacts.
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(StatusResponse{
			ID:        snap.ID,
			Timestamp: snap.Timestamp,
			Generated: snap.Generated.UTC().Format("2006-01-02T15:04:05Z"),
			Summary:   snap.Summary,
			Selected:  snap.Selected,
			Files:     statusFiles(snap.Timestamp),
		})
	}
}

// StatusPageHandler redirects to the latest HTML status page.
func StatusPageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.Redirect(statusFiles(snap.Timestamp).Status, fiber.StatusFound)
	}
}

// OverlayHandler renders the marker overlay for the latest cycle.
func OverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		svg, err := deps.Renderer.Overlay(snap)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Content-Type", "image/svg+xml")
		return c.SendString(svg)
	}
}

// ReportHandler returns the plain-text cycle report.
func ReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Query.Latest(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		c.Set("Content-Type", "text/plain; charset=utf-8")
		return c.SendString(deps.Renderer.Report(snap))
	}
}

// LegacyImageListHandler returns bare follow-up file names.
func LegacyImageListHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		images, err := deps.Query.HighResImages(c.UserContext())
		if err != nil {
			return errInternal(c, "failed to list images")
		}
		names := make([]string, len(images))
		for i, img := range images {
			names[i] = filepath.Base(img.Filename)
		}
		return c.JSON(names)
	}
}
