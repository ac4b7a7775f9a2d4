// Package metrics defines the Prometheus collectors for the enrichment
// service and small helpers to record them. Recording never fails a request:
// collectors are registered once at init and all helpers are fire-and-forget.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	openaiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openai_requests_total",
		Help: "Total requests made to the OpenAI API",
	}, []string{"model", "status"})

	openaiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openai_errors_total",
		Help: "Total OpenAI specific errors (timeouts, rate limits, etc.)",
	}, []string{"error_type"})

	openaiTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openai_tokens_total",
		Help: "Total tokens processed by OpenAI",
	}, []string{"type"})

	openaiEstimatedCostUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openai_estimated_cost_usd",
		Help: "Estimated total cost in USD based on token usage",
	}, []string{"model"})

	openaiRepairAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openai_repair_attempts_total",
		Help: "Total attempts to repair invalid JSON returned by OpenAI",
	}, []string{"status"})

	extractionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "extraction_duration_seconds",
		Help:    "Duration distribution of enrichment calls to OpenAI",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	})

	meetingsExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetings_extracted_total",
		Help: "Total meetings enriched successfully",
	}, []string{"source"})

	meetingsByTypeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetings_by_type_total",
		Help: "Enriched meetings counted by meeting type",
	}, []string{"meeting_type"})

	transcriptSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_size_bytes",
		Help:    "Size distribution of processed transcripts in bytes",
		Buckets: []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000},
	})

	rateLimitExceededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Times the API rate limit was hit",
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_errors_total",
		Help: "Errors returned by the API (5xx and validation failures)",
	}, []string{"error_type", "status_code"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests received by the API",
	}, []string{"method", "endpoint", "status_code"})

	httpRequestsDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_requests_duration_seconds",
		Help:    "Latency distribution of all HTTP requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"method", "endpoint"})
)

// modelPricing holds USD prices per 1M tokens. Unknown models fall back to
// the gpt-4o prices.
var modelPricing = map[string]struct{ input, output float64 }{
	"gpt-4o":        {input: 5.00, output: 15.00},
	"gpt-4o-mini":   {input: 0.15, output: 0.60},
	"gpt-3.5-turbo": {input: 0.50, output: 1.50},
}

// EstimateCost returns the estimated USD cost of a single call.
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	p, ok := modelPricing[model]
	if !ok {
		p = modelPricing["gpt-4o"]
	}
	return float64(promptTokens)/1_000_000*p.input + float64(completionTokens)/1_000_000*p.output
}

func RecordOpenAIRequest(model, status string) {
	openaiRequestsTotal.WithLabelValues(model, status).Inc()
}

func RecordOpenAIError(errorType string) {
	openaiErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordOpenAITokens records token counters and the derived cost estimate.
func RecordOpenAITokens(model string, promptTokens, completionTokens, totalTokens int) {
	openaiTokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	openaiTokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
	openaiTokensTotal.WithLabelValues("total").Add(float64(totalTokens))

	if cost := EstimateCost(model, promptTokens, completionTokens); cost > 0 {
		openaiEstimatedCostUSD.WithLabelValues(model).Add(cost)
	}
}

func RecordRepairAttempt(status string) {
	openaiRepairAttemptsTotal.WithLabelValues(status).Inc()
}

func RecordExtractionDuration(seconds float64) {
	extractionDurationSeconds.Observe(seconds)
}

func RecordMeetingExtracted(source, meetingType string) {
	meetingsExtractedTotal.WithLabelValues(source).Inc()
	if meetingType == "" {
		meetingType = "Unknown"
	}
	meetingsByTypeTotal.WithLabelValues(meetingType).Inc()
}

func RecordTranscriptSize(sizeBytes int) {
	transcriptSizeBytes.Observe(float64(sizeBytes))
}

func RecordRateLimitExceeded(endpoint string) {
	rateLimitExceededTotal.WithLabelValues(endpoint).Inc()
}

func RecordAPIError(errorType, statusCode string) {
	apiErrorsTotal.WithLabelValues(errorType, statusCode).Inc()
}

func RecordHTTPRequest(method, endpoint, statusCode string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}

func RecordHTTPDuration(method, endpoint string, seconds float64) {
	httpRequestsDurationSeconds.WithLabelValues(method, endpoint).Observe(seconds)
}
