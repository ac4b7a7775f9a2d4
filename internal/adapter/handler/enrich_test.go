package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
	"github.com/lftm-team/meeting-enrichment/internal/infrastructure/cache"
	pkgvalidator "github.com/lftm-team/meeting-enrichment/pkg/validator"
)

type stubService struct {
	extractFn func(normalized entities.NormalizedInput) (*entities.ExtractedMeeting, error)
	analyzeFn func(normalized entities.NormalizedInput) (*entities.AnalyzedMeeting, error)

	extractCalls int
	lastInput    entities.NormalizedInput
}

func (s *stubService) Extract(_ context.Context, normalized entities.NormalizedInput, _ string) (*entities.ExtractedMeeting, error) {
	s.extractCalls++
	s.lastInput = normalized
	return s.extractFn(normalized)
}

func (s *stubService) Analyze(_ context.Context, normalized entities.NormalizedInput, _ string) (*entities.AnalyzedMeeting, error) {
	s.lastInput = normalized
	return s.analyzeFn(normalized)
}

func sampleExtracted() *entities.ExtractedMeeting {
	return &entities.ExtractedMeeting{
		MeetingID:      "MTG123",
		CustomerID:     "CUST456",
		CustomerName:   "Ana Lima",
		BankerID:       "BNK789",
		BankerName:     "Carlos Souza",
		MeetType:       "Follow-up",
		MeetDate:       time.Date(2026, 8, 12, 14, 30, 0, 0, time.UTC),
		Summary:        "a valid summary",
		KeyPoints:      []string{"point"},
		ActionItems:    []string{"action"},
		Topics:         []string{"topic"},
		Source:         entities.Source,
		IdempotencyKey: "abc123",
	}
}

func newEchoTest() *echo.Echo {
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.Use(middleware.RequestID())
	return e
}

func doRequest(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func setupRoutes(e *echo.Echo, h *Enrich) {
	e.POST("/extract", h.Extract)
	e.POST("/analyze", h.Analyze)
}

func TestExtract_Success(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return sampleExtracted(), nil
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/extract", `{"transcript":"Customer: good morning","metadata":{"meeting_id":"MTG123","customer_id":"CUST456"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MTG123", body["meeting_id"])
	assert.Equal(t, entities.Source, body["source"])
	assert.Equal(t, "MTG123", svc.lastInput.MeetingID)
	assert.Equal(t, "Customer: good morning", svc.lastInput.Transcript)
}

func TestExtract_RawMeetingMapped(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return sampleExtracted(), nil
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/extract", `{"raw_meeting":{
		"meet_id":"MTG9",
		"customer_id":"CUST9",
		"customer_name":"ACME S.A.",
		"banker_id":"BKR9",
		"banker_name":"Pedro Falcao",
		"meet_date":"2026-08-12T14:30:00Z",
		"meet_type":"Onboarding",
		"meet_transcription":"Customer: hello"
	}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MTG9", svc.lastInput.MeetingID)
	assert.Equal(t, "Customer: hello", svc.lastInput.Transcript)
	assert.Equal(t, "Onboarding", svc.lastInput.MeetType)
	require.NotNil(t, svc.lastInput.MeetDate)
	assert.Equal(t, 2026, svc.lastInput.MeetDate.Year())
}

func TestExtract_InputShapeViolations(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	bodies := []string{
		`{}`,
		`{"transcript":"hi","raw_meeting":{"meet_id":"M","customer_id":"C","customer_name":"N","banker_id":"B","banker_name":"BN","meet_date":"2026-08-12T14:30:00Z","meet_type":"T","meet_transcription":"x"}}`,
	}
	for _, body := range bodies {
		rec := doRequest(e, "/extract", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "validation_error", resp["error"])
		assert.NotEmpty(t, resp["request_id"])
	}
}

func TestExtract_RawMeetingMissingFields(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/extract", `{"raw_meeting":{"meet_id":"MTG9"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExtract_UpstreamFailureIs502(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return nil, &apperrors.UpstreamError{
				Last:     apperrors.Timeout(context.DeadlineExceeded),
				Attempts: 3,
				Elapsed:  2 * time.Second,
			}
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/extract", `{"transcript":"hi"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "openai_communication_error", resp["error"])
	assert.Equal(t, string(apperrors.ClassTimeout), resp["error_type"])
	assert.NotEmpty(t, resp["request_id"])
}

func TestExtract_InvalidAfterRepairIs502(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return nil, &apperrors.ValidationError{
				Violation: apperrors.NewSchemaViolation("extract", "summary: must have between 100 and 200 words, got 12"),
			}
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/extract", `{"transcript":"hi"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "openai_invalid_response", resp["error"])
}

func TestExtract_UnexpectedFailureIs500(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return nil, errors.New("boom")
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/extract", `{"transcript":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp["error"])
}

func TestAnalyze_Success(t *testing.T) {
	svc := &stubService{
		analyzeFn: func(entities.NormalizedInput) (*entities.AnalyzedMeeting, error) {
			return &entities.AnalyzedMeeting{
				MeetingID:      "MTG123",
				SentimentLabel: entities.SentimentPositive,
				SentimentScore: 0.85,
				Source:         entities.Source,
				IdempotencyKey: "abc123",
			}, nil
		},
	}
	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	rec := doRequest(e, "/analyze", `{"transcript":"Customer: very happy"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "positive", resp["sentiment_label"])
	assert.InDelta(t, 0.85, resp["sentiment_score"], 1e-9)
}

func TestExtract_IdempotentReplayServedFromCache(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return sampleExtracted(), nil
		},
	}
	store := cache.NewMemoryStore()
	defer store.Close()

	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, store, true, time.Minute, nil))

	body := `{"transcript":"Customer: good morning","metadata":{"meeting_id":"MTG123","customer_id":"CUST456","meet_date":"2026-08-12T14:30:00Z"}}`

	first := doRequest(e, "/extract", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("X-Idempotency-Replay"))

	second := doRequest(e, "/extract", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))
	assert.Equal(t, 1, svc.extractCalls)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestExtract_NoCacheWithoutKey(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return sampleExtracted(), nil
		},
	}
	store := cache.NewMemoryStore()
	defer store.Close()

	e := newEchoTest()
	setupRoutes(e, NewEnrich(svc, store, true, time.Minute, nil))

	// No metadata, so no idempotency key and no caching.
	doRequest(e, "/extract", `{"transcript":"hi"}`)
	doRequest(e, "/extract", `{"transcript":"hi"}`)
	assert.Equal(t, 2, svc.extractCalls)
}

func TestRateLimiter_Returns429WithRetryAfter(t *testing.T) {
	svc := &stubService{
		extractFn: func(entities.NormalizedInput) (*entities.ExtractedMeeting, error) {
			return sampleExtracted(), nil
		},
	}
	e := newEchoTest()
	e.Use(RateLimiter(1, nil))
	setupRoutes(e, NewEnrich(svc, nil, false, 0, nil))

	first := doRequest(e, "/extract", `{"transcript":"hi"}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(e, "/extract", `{"transcript":"hi"}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp["error"])
}

func TestHealthCheck(t *testing.T) {
	e := newEchoTest()
	svc := &stubService{}
	router := NewRouter(nil, NewEnrich(svc, nil, false, 0, nil))
	router.Setup(e)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}
