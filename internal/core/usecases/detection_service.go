package usecases

import (
	"context"
	"sync"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/pkg/classify"
	"github.com/samirrijal/cumulus/internal/pkg/geospatial"
	"github.com/samirrijal/cumulus/internal/pkg/metrics"
	"github.com/samirrijal/cumulus/internal/pkg/sampling"
	"github.com/samirrijal/cumulus/internal/pkg/telemetry"
)

// DetectionOptions fixes the frame every crossing is projected into.
type DetectionOptions struct {
	BBox         domain.BoundingBox
	Size         domain.ImageSize
	SampleRadius int
	Workers      int
}

// ProgressFunc is told how many crossings are done. Calls are serialised.
type ProgressFunc func(done, total int)

// DetectionService runs projection, sampling and classification for each crossing.
type DetectionService struct {
	opts       DetectionOptions
	sampler    sampling.Sampler
	classifier *classify.Classifier
}

// NewDetectionService creates a new DetectionService.
func NewDetectionService(opts DetectionOptions, sampler sampling.Sampler, classifier *classify.Classifier) *DetectionService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &DetectionService{opts: opts, sampler: sampler, classifier: classifier}
}

// Threshold is the brightness limit of the classifier.
func (s *DetectionService) Threshold() int { return s.classifier.Params().Limit }

// Size is the expected base image size.
func (s *DetectionService) Size() domain.ImageSize { return s.opts.Size }

// Detect returns one result per crossing, in input order, numbered from 1.
func (s *DetectionService) Detect(ctx context.Context, image []byte, crossings []domain.Crossing, progress ProgressFunc) []domain.CrossingResult {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanDetect)
	defer span.End()

	results := make([]domain.CrossingResult, len(crossings))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	sem := make(chan struct{}, s.opts.Workers)

	for i, c := range crossings {
		wg.Add(1)
		go func(i int, c domain.Crossing) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = s.DetectOne(image, i+1, c)

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(crossings))
				mu.Unlock()
			}
		}(i, c)
	}
	wg.Wait()

	for _, r := range results {
		if !r.InBounds {
			metrics.OutOfBounds.Inc()
		}
		metrics.Detections.WithLabelValues(string(r.Detection.DetectionType)).Inc()
	}
	return results
}

// DetectOne classifies a single crossing. Crossings outside the frame are not sampled.
func (s *DetectionService) DetectOne(image []byte, borderNumber int, c domain.Crossing) domain.CrossingResult {
	px := geospatial.Project(c.Coordinates, s.opts.BBox, s.opts.Size)
	r := domain.CrossingResult{
		BorderNumber: borderNumber,
		Crossing:     c,
		Pixel:        px,
		InBounds:     px.In(s.opts.Size),
	}
	if !r.InBounds {
		r.Detection = domain.OutsideBounds()
		return r
	}

	samples := s.sampler.Sample(image, px, s.opts.SampleRadius, s.opts.Size)
	r.Detection = s.classifier.Classify(samples)
	return r
}
