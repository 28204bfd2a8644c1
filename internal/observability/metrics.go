package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facegate-io/facegate/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	authLoginCounter          metric.Int64Counter
	authRegisterCounter       metric.Int64Counter
	authReqDuration           metric.Float64Histogram
	assertionValidationEvents metric.Int64Counter
	faceEnrollmentEvents      metric.Int64Counter
	faceVerificationEvents    metric.Int64Counter
	faceSimilarityScore       metric.Float64Histogram
	embeddingDuration         metric.Float64Histogram
	sampleArchiveEvents       metric.Int64Counter
	rateLimitDecisionCounter  metric.Int64Counter
	rateLimitRetryAfter       metric.Float64Histogram
	middlewareValidation      metric.Int64Counter
	healthCheckResultCounter  metric.Int64Counter
	healthCheckDuration       metric.Float64Histogram
	dbStartupEvents           metric.Int64Counter
	dbStartupDuration         metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "auth.request.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "face.similarity.score"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{-1, -0.5, 0, 0.25, 0.5, 0.65, 0.75, 0.85, 0.95, 1},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("facegate")
	loginCounter, err := meter.Int64Counter("auth.login.attempts")
	if err != nil {
		return nil, err
	}
	registerCounter, err := meter.Int64Counter("auth.register.attempts")
	if err != nil {
		return nil, err
	}
	authReqDuration, err := meter.Float64Histogram("auth.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of auth endpoint requests in seconds"))
	if err != nil {
		return nil, err
	}
	assertionValidationEvents, err := meter.Int64Counter("auth.assertion.validation.events")
	if err != nil {
		return nil, err
	}
	faceEnrollmentEvents, err := meter.Int64Counter("face.enrollment.events")
	if err != nil {
		return nil, err
	}
	faceVerificationEvents, err := meter.Int64Counter("face.verification.events")
	if err != nil {
		return nil, err
	}
	faceSimilarityScore, err := meter.Float64Histogram("face.similarity.score",
		metric.WithDescription("Cosine similarity between the stored reference and a fresh aggregate"))
	if err != nil {
		return nil, err
	}
	embeddingDuration, err := meter.Float64Histogram("face.embedding.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time spent generating one embedding batch"))
	if err != nil {
		return nil, err
	}
	sampleArchiveEvents, err := meter.Int64Counter("face.sample_archive.events")
	if err != nil {
		return nil, err
	}
	rateLimitDecisionCounter, err := meter.Int64Counter("http.rate_limit.decisions")
	if err != nil {
		return nil, err
	}
	rateLimitRetryAfter, err := meter.Float64Histogram("http.rate_limit.retry_after",
		metric.WithUnit("s"),
		metric.WithDescription("Retry-after duration in seconds for throttled requests"))
	if err != nil {
		return nil, err
	}
	middlewareValidation, err := meter.Int64Counter("http.middleware.validation.events")
	if err != nil {
		return nil, err
	}
	healthCheckResultCounter, err := meter.Int64Counter("health.check.results")
	if err != nil {
		return nil, err
	}
	healthCheckDuration, err := meter.Float64Histogram("health.check.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of health dependency checks in seconds"))
	if err != nil {
		return nil, err
	}
	dbStartupEvents, err := meter.Int64Counter("database.startup.events")
	if err != nil {
		return nil, err
	}
	dbStartupDuration, err := meter.Float64Histogram("database.startup.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of startup migrate/seed phases in seconds"))
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		authLoginCounter:          loginCounter,
		authRegisterCounter:       registerCounter,
		authReqDuration:           authReqDuration,
		assertionValidationEvents: assertionValidationEvents,
		faceEnrollmentEvents:      faceEnrollmentEvents,
		faceVerificationEvents:    faceVerificationEvents,
		faceSimilarityScore:       faceSimilarityScore,
		embeddingDuration:         embeddingDuration,
		sampleArchiveEvents:       sampleArchiveEvents,
		rateLimitDecisionCounter:  rateLimitDecisionCounter,
		rateLimitRetryAfter:       rateLimitRetryAfter,
		middlewareValidation:      middlewareValidation,
		healthCheckResultCounter:  healthCheckResultCounter,
		healthCheckDuration:       healthCheckDuration,
		dbStartupEvents:           dbStartupEvents,
		dbStartupDuration:         dbStartupDuration,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordAuthLogin counts stage-1 and stage-2 login outcomes.
func RecordAuthLogin(ctx context.Context, stage, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

func RecordAuthRegister(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authRegisterCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordAssertionValidation(ctx context.Context, outcome, source string) {
	m := current()
	if m == nil {
		return
	}
	m.assertionValidationEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordFaceEnrollment(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.faceEnrollmentEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordFaceVerification(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.faceVerificationEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordSimilarityScore(ctx context.Context, score float64) {
	m := current()
	if m == nil {
		return
	}
	m.faceSimilarityScore.Record(ctx, score)
}

func RecordEmbeddingDuration(ctx context.Context, operation string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.embeddingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

func RecordSampleArchiveEvent(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.sampleArchiveEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, retryAfter time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("reason", reason),
	))
}

func RecordMiddlewareValidationEvent(ctx context.Context, component, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.middlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("check", check),
	))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, status string) {
	m := current()
	if m == nil {
		return
	}
	m.dbStartupEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.dbStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("phase", phase),
	))
}
