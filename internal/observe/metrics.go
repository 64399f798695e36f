// Package observe provides application-wide observability primitives for the
// assistant: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all assistant metrics.
const meterName = "github.com/baraagh52-hue/Assistan-Trae"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks command transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks reply generation latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// ContextDuration tracks context snippet assembly latency.
	ContextDuration metric.Float64Histogram

	// --- Counters ---

	// WakeDetections counts wake-word firings. Use with attribute:
	//   attribute.String("phrase", ...)
	WakeDetections metric.Int64Counter

	// DroppedFrames counts audio frames dropped by the capture queue.
	DroppedFrames metric.Int64Counter

	// StateTransitions counts session state changes. Use with attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	StateTransitions metric.Int64Counter

	// Interactions counts completed interactions. Use with attribute:
	//   attribute.String("outcome", ...)
	Interactions metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveCaptures tracks whether a capture session currently holds the
	// microphone (0 or 1).
	ActiveCaptures metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("trae.stt.duration",
		metric.WithDescription("Latency of command transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("trae.llm.duration",
		metric.WithDescription("Latency of reply generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("trae.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ContextDuration, err = m.Float64Histogram("trae.context.duration",
		metric.WithDescription("Latency of context snippet assembly."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WakeDetections, err = m.Int64Counter("trae.wake.detections",
		metric.WithDescription("Total wake-word detections by phrase."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("trae.audio.dropped_frames",
		metric.WithDescription("Total audio frames dropped by the capture queue."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("trae.session.transitions",
		metric.WithDescription("Total session state transitions by from and to state."),
	); err != nil {
		return nil, err
	}
	if met.Interactions, err = m.Int64Counter("trae.session.interactions",
		metric.WithDescription("Total completed interactions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("trae.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCaptures, err = m.Int64UpDownCounter("trae.session.active_captures",
		metric.WithDescription("Number of capture sessions currently holding the microphone."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("trae.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWakeDetection records a wake-word firing for the given phrase.
func (m *Metrics) RecordWakeDetection(ctx context.Context, phrase string) {
	m.WakeDetections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("phrase", phrase)),
	)
}

// RecordTransition records a session state change.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordInteraction records a completed interaction with its outcome.
func (m *Metrics) RecordInteraction(ctx context.Context, outcome string) {
	m.Interactions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordSTTDuration records one command transcription latency.
func (m *Metrics) RecordSTTDuration(ctx context.Context, d time.Duration) {
	m.STTDuration.Record(ctx, d.Seconds())
}

// RecordLLMDuration records one reply generation latency.
func (m *Metrics) RecordLLMDuration(ctx context.Context, d time.Duration) {
	m.LLMDuration.Record(ctx, d.Seconds())
}

// RecordTTSDuration records one speech synthesis latency.
func (m *Metrics) RecordTTSDuration(ctx context.Context, d time.Duration) {
	m.TTSDuration.Record(ctx, d.Seconds())
}

// RecordContextDuration records one context assembly latency.
func (m *Metrics) RecordContextDuration(ctx context.Context, d time.Duration) {
	m.ContextDuration.Record(ctx, d.Seconds())
}

// RecordDroppedFrames adds n frames shed by a capture queue.
func (m *Metrics) RecordDroppedFrames(ctx context.Context, n int64) {
	m.DroppedFrames.Add(ctx, n)
}

// CaptureAcquired marks one capture session as holding the microphone.
func (m *Metrics) CaptureAcquired(ctx context.Context) {
	m.ActiveCaptures.Add(ctx, 1)
}

// CaptureReleased marks a capture session as having released the microphone.
func (m *Metrics) CaptureReleased(ctx context.Context) {
	m.ActiveCaptures.Add(ctx, -1)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
