// Package enrich orchestrates the transcript enrichment pipelines: prompt
// preparation, dispatch with retries, schema validation, a single repair
// round and idempotency stamping.
package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
	"github.com/lftm-team/meeting-enrichment/pkg/ai"
	"github.com/lftm-team/meeting-enrichment/pkg/config"
)

// Service exposes the two enrichment pipelines. Both run the same stages;
// they differ only in prompt, schema and output shape.
type Service interface {
	Extract(ctx context.Context, normalized entities.NormalizedInput, requestID string) (*entities.ExtractedMeeting, error)
	Analyze(ctx context.Context, normalized entities.NormalizedInput, requestID string) (*entities.AnalyzedMeeting, error)
}

// GenerationClient is the slice of the OpenAI client the pipelines need.
type GenerationClient interface {
	Generate(ctx context.Context, kind entities.SchemaKind, in ai.PromptInputs, opts ...ai.CallOption) (*entities.GenerationResult, error)
	Repair(ctx context.Context, in ai.RepairInputs, opts ...ai.CallOption) (*entities.GenerationResult, error)
}

// MetricsRecorder receives pipeline counters. Implementations must never
// block or fail the request.
type MetricsRecorder interface {
	RecordOpenAIRequest(model, status string)
	RecordOpenAIError(errorType string)
	RecordOpenAITokens(model string, promptTokens, completionTokens, totalTokens int)
	RecordRepairAttempt(status string)
	RecordExtractionDuration(seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordOpenAIRequest(string, string)      {}
func (noopMetrics) RecordOpenAIError(string)                {}
func (noopMetrics) RecordOpenAITokens(string, int, int, int) {}
func (noopMetrics) RecordRepairAttempt(string)              {}
func (noopMetrics) RecordExtractionDuration(float64)        {}

type service struct {
	client        GenerationClient
	metrics       MetricsRecorder
	logger        *zap.Logger
	model         string
	repairTimeout time.Duration
}

// NewService constructs the enrichment service. A nil recorder disables
// metrics; a nil logger disables logging.
func NewService(client GenerationClient, rec MetricsRecorder, cfg *config.OpenAIConfig, logger *zap.Logger) Service {
	if rec == nil {
		rec = noopMetrics{}
	}
	model := "gpt-4o"
	repairTimeout := 15 * time.Second
	if cfg != nil {
		if cfg.Model != "" {
			model = cfg.Model
		}
		if cfg.RepairTimeout > 0 {
			repairTimeout = cfg.RepairTimeout
		}
	}
	return &service{
		client:        client,
		metrics:       rec,
		logger:        logger,
		model:         model,
		repairTimeout: repairTimeout,
	}
}

// Extract runs the structured-extraction pipeline.
func (s *service) Extract(ctx context.Context, normalized entities.NormalizedInput, requestID string) (*entities.ExtractedMeeting, error) {
	enriched, err := s.enrich(ctx, entities.SchemaExtract, normalized, requestID)
	if err != nil {
		return nil, err
	}
	return enriched.Extracted, nil
}

// Analyze runs the sentiment-analysis pipeline.
func (s *service) Analyze(ctx context.Context, normalized entities.NormalizedInput, requestID string) (*entities.AnalyzedMeeting, error) {
	enriched, err := s.enrich(ctx, entities.SchemaAnalyze, normalized, requestID)
	if err != nil {
		return nil, err
	}
	return enriched.Analyzed, nil
}

// enrich is the shared pipeline. Stages run in a fixed order: prompt
// preparation, dispatch under the retry policy, validation, at most one
// repair round with re-validation, typed decoding and idempotency stamping.
func (s *service) enrich(ctx context.Context, kind entities.SchemaKind, normalized entities.NormalizedInput, requestID string) (*entities.EnrichedMeeting, error) {
	if s.logger != nil {
		s.logger.Info("starting enrichment",
			zap.String("request_id", requestID),
			zap.String("schema", string(kind)),
			zap.Int("transcript_len", len(normalized.Transcript)),
			zap.Int("metadata_fields", normalized.MetadataFieldCount()),
			zap.String("transcript_preview", sanitizeTranscript(normalized.Transcript, logPreviewChars)),
		)
	}

	inputs := ai.PromptInputs{
		Transcript:   normalized.Transcript,
		MetadataJSON: prepareMetadataJSON(normalized),
	}

	start := time.Now()
	result, err := s.dispatch(ctx, kind, inputs, requestID)
	s.metrics.RecordExtractionDuration(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	payload := result.Payload
	violation := validatePayload(kind, payload)
	if violation != nil {
		repaired, repairErr := s.repair(ctx, kind, result, violation, normalized, requestID)
		if repairErr != nil {
			s.metrics.RecordRepairAttempt("failed")
			return nil, repairErr
		}

		payload = repaired.Payload
		if violation = validatePayload(kind, payload); violation != nil {
			s.metrics.RecordRepairAttempt("failed")
			if s.logger != nil {
				s.logger.Error("payload still invalid after repair",
					zap.String("request_id", requestID),
					zap.String("violation", violation.Error()),
				)
			}
			return nil, &apperrors.ValidationError{Violation: violation}
		}

		s.metrics.RecordRepairAttempt("success")
		if s.logger != nil {
			s.logger.Info("payload valid after repair", zap.String("request_id", requestID))
		}
	}

	enriched, err := decodeResult(kind, payload)
	if err != nil {
		return nil, &apperrors.ValidationError{Violation: err}
	}

	key, ok := normalized.IdempotencyKey()
	if !ok {
		key = entities.PlaceholderIdempotencyKey
		if s.logger != nil {
			s.logger.Warn("idempotency key unavailable, using placeholder",
				zap.String("request_id", requestID),
			)
		}
	}
	enriched.Stamp(key)

	if s.logger != nil {
		s.logger.Info("enrichment completed",
			zap.String("request_id", requestID),
			zap.String("schema", string(kind)),
			zap.String("meeting_type", enriched.MeetingType()),
			zap.String("idempotency_key_prefix", key[:minInt(16, len(key))]),
		)
	}
	return enriched, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
