// Package imagery downloads satellite images from an ArcGIS ImageServer exportImage endpoint.
package imagery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/pkg/metrics"
	"github.com/samirrijal/cumulus/internal/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// maxImageBytes guards against runaway responses.
const maxImageBytes = 64 << 20

// FetchError describes a failed download.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configure a Client.
type Options struct {
	BaseURL string
	// SourceURL, when set, is used verbatim for the base image.
	SourceURL string
	BBox      domain.BoundingBox
	Size      domain.ImageSize
	Timeout   time.Duration
}

// Client implements ports.ImageryProvider over HTTP.
type Client struct {
	http *http.Client
	opts Options
}

// New creates a client. A zero timeout means 30 seconds.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: opts.Timeout},
		opts: opts,
	}
}

// ExportURL builds an exportImage request in Web Mercator (wkid 102100).
func ExportURL(base string, minX, minY, maxX, maxY float64, width, height int) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf("%s?f=image&bbox=%s%%2C%s%%2C%s%%2C%s&imageSR=102100&bboxSR=102100&size=%d%%2C%d",
		base, f(minX), f(minY), f(maxX), f(maxY), width, height)
}

// BaseImageURL is the URL of the full-frame image.
func (c *Client) BaseImageURL() string {
	if c.opts.SourceURL != "" {
		return c.opts.SourceURL
	}
	b := c.opts.BBox
	return ExportURL(c.opts.BaseURL, b.MinX, b.MinY, b.MaxX, b.MaxY, c.opts.Size.Width, c.opts.Size.Height)
}

// HighResURL is the URL of a zoomed follow-up image.
func (c *Client) HighResURL(b domain.HighResBounds) string {
	return ExportURL(c.opts.BaseURL, b.MinX, b.MinY, b.MaxX, b.MaxY, b.Width, b.Height)
}

func (c *Client) FetchBase(ctx context.Context) ([]byte, string, error) {
	url := c.BaseImageURL()
	data, err := c.fetch(ctx, "base", url)
	return data, url, err
}

func (c *Client) FetchHighRes(ctx context.Context, b domain.HighResBounds) ([]byte, string, error) {
	url := c.HighResURL(b)
	data, err := c.fetch(ctx, "highres", url)
	return data, url, err
}

func (c *Client) fetch(ctx context.Context, kind, url string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanImageryFetch)
	defer span.End()
	span.SetAttributes(attribute.String("imagery.kind", kind))

	start := time.Now()
	defer func() {
		metrics.ImageryFetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	data, err := c.get(ctx, url)
	if err != nil {
		metrics.ImageryFetchErrors.WithLabelValues(kind).Inc()
		return nil, err
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) == 0 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("empty body")}
	}
	return body, nil
}
