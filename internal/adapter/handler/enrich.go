package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/adapter/dto/meeting"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
	"github.com/lftm-team/meeting-enrichment/internal/infrastructure/cache"
	"github.com/lftm-team/meeting-enrichment/internal/metrics"
	"github.com/lftm-team/meeting-enrichment/internal/usecase/enrich"
)

// Enrich handles the extraction and analysis endpoints.
type Enrich struct {
	svc          enrich.Service
	store        cache.Store
	cacheEnabled bool
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewEnrich constructs the enrichment handler. A nil store disables the
// idempotency response cache.
func NewEnrich(svc enrich.Service, store cache.Store, cacheEnabled bool, cacheTTL time.Duration, logger *zap.Logger) *Enrich {
	return &Enrich{
		svc:          svc,
		store:        store,
		cacheEnabled: cacheEnabled && store != nil,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Extract handles POST /extract
func (h *Enrich) Extract(c echo.Context) error {
	return h.handle(c, entities.SchemaExtract)
}

// Analyze handles POST /analyze
func (h *Enrich) Analyze(c echo.Context) error {
	return h.handle(c, entities.SchemaAnalyze)
}

func (h *Enrich) handle(c echo.Context, kind entities.SchemaKind) error {
	requestID := RequestID(c)
	endpoint := c.Path()

	var body meeting.MeetingRequest
	if err := c.Bind(&body); err != nil {
		return h.validationFailure(c, requestID, []ValidationDetail{{
			Loc:  []string{"body"},
			Msg:  "request body is not valid JSON",
			Type: "json_invalid",
		}})
	}

	if body.RawMeeting != nil {
		if err := c.Validate(body.RawMeeting); err != nil {
			return h.validationFailure(c, requestID, detailsFromValidator(err))
		}
	}

	normalized, err := body.Normalize()
	if err != nil {
		return h.validationFailure(c, requestID, []ValidationDetail{{
			Loc:  []string{"body"},
			Msg:  err.Error(),
			Type: "value_error",
		}})
	}

	metrics.RecordTranscriptSize(len(normalized.Transcript))

	if h.logger != nil {
		h.logger.Info("enrichment request received",
			zap.String("request_id", requestID),
			zap.String("endpoint", endpoint),
			zap.String("source", body.SourceLabel()),
			zap.Int("metadata_fields", normalized.MetadataFieldCount()),
		)
	}

	// Idempotency replay: an identical meeting event inside the TTL is
	// answered from the cache without touching the model.
	key, keyOK := normalized.IdempotencyKey()
	if h.cacheEnabled && keyOK {
		cacheKey := string(kind) + ":" + key
		if cached, hit, cacheErr := h.store.Get(c.Request().Context(), cacheKey); cacheErr == nil && hit {
			if h.logger != nil {
				h.logger.Info("idempotency cache hit",
					zap.String("request_id", requestID),
					zap.String("key_prefix", key[:16]),
				)
			}
			c.Response().Header().Set("X-Idempotency-Replay", "true")
			return c.JSONBlob(http.StatusOK, []byte(cached))
		}
	}

	var result interface{}
	var meetingType string
	switch kind {
	case entities.SchemaAnalyze:
		analyzed, svcErr := h.svc.Analyze(c.Request().Context(), normalized, requestID)
		if svcErr != nil {
			return h.pipelineFailure(c, requestID, svcErr)
		}
		result, meetingType = analyzed, analyzed.MeetType
	default:
		extracted, svcErr := h.svc.Extract(c.Request().Context(), normalized, requestID)
		if svcErr != nil {
			return h.pipelineFailure(c, requestID, svcErr)
		}
		result, meetingType = extracted, extracted.MeetType
	}

	metrics.RecordMeetingExtracted(body.SourceLabel(), meetingType)

	if h.cacheEnabled && keyOK {
		if encoded, encErr := json.Marshal(result); encErr == nil {
			cacheKey := string(kind) + ":" + key
			if cacheErr := h.store.Set(c.Request().Context(), cacheKey, string(encoded), h.cacheTTL); cacheErr != nil && h.logger != nil {
				h.logger.Warn("idempotency cache write failed",
					zap.String("request_id", requestID),
					zap.Error(cacheErr),
				)
			}
		}
	}

	return c.JSON(http.StatusOK, result)
}

// pipelineFailure maps pipeline errors onto the API contract: exhausted
// upstream retries become 502 openai_communication_error, payloads that
// stayed invalid after repair become 502 openai_invalid_response, and
// everything else is a 500.
func (h *Enrich) pipelineFailure(c echo.Context, requestID string, err error) error {
	var (
		ue *apperrors.UpstreamError
		ve *apperrors.ValidationError
	)

	switch {
	case errors.As(err, &ue):
		if h.logger != nil {
			h.logger.Error("openai communication failure",
				zap.String("request_id", requestID),
				zap.Int("attempts", ue.Attempts),
				zap.Error(err),
			)
		}
		metrics.RecordAPIError("openai_communication_error", "502")
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":      "openai_communication_error",
			"message":    "Failed to communicate with the OpenAI API (timeout, rate limit or unavailability). Try again shortly.",
			"error_type": string(ue.Last.Class),
			"request_id": requestID,
		})

	case errors.As(err, &ve):
		if h.logger != nil {
			h.logger.Error("openai returned invalid data after repair",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
		metrics.RecordAPIError("openai_invalid_response", "502")
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":      "openai_invalid_response",
			"message":    "OpenAI returned invalid or incomplete data. Try again or check that the transcript is readable.",
			"request_id": requestID,
		})

	default:
		if h.logger != nil {
			h.logger.Error("unexpected enrichment failure",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
		metrics.RecordAPIError("internal_error", "500")
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":      "internal_error",
			"message":    "Internal error while processing the request",
			"request_id": requestID,
		})
	}
}

func (h *Enrich) validationFailure(c echo.Context, requestID string, details []ValidationDetail) error {
	if h.logger != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Any("details", details),
		)
	}
	metrics.RecordAPIError("validation_error", "422")
	return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
		"error":      "validation_error",
		"message":    "Invalid input data",
		"details":    details,
		"request_id": requestID,
	})
}
