package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Data freshness
	MetricSnapshotAge = "detection.snapshot_age_seconds"
	MetricImageryAge  = "imagery.base_image_age_seconds"

	// Availability
	MetricUptime       = "service.uptime_percentage"
	MetricCycleSuccess = "detection.cycle_success_ratio"

	// Business
	MetricCloudyCrossings = "business.cloudy_crossings"
	MetricHighResCaptured = "business.highres_captured"
)

// Span names.
const (
	SpanCyclePlan     = "cycle.plan"
	SpanCycleFollowUp = "cycle.follow_up"
	SpanCycleFinalize = "cycle.finalize"
	SpanDetect        = "detection.detect"
	SpanImageryFetch  = "imagery.fetch"
)
