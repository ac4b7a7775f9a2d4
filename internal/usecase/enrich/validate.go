package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
)

const (
	summaryMinWords = 100
	summaryMaxWords = 200

	positiveScoreMin = 0.6
	neutralScoreMin  = 0.4
)

// meetDateLayouts are accepted on input; the canonical output format is
// RFC 3339.
var meetDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// validatePayload checks the raw generation output against the schema for
// the given kind. It walks every rule and returns a SchemaViolation listing
// all broken constraints, or nil when the payload is valid. Label/score
// consistency is only judged once both fields pass their individual checks.
func validatePayload(kind entities.SchemaKind, payload map[string]interface{}) *apperrors.SchemaViolation {
	if payload == nil {
		return apperrors.NewSchemaViolation(string(kind), "payload is not a JSON object")
	}

	var violations []string

	for _, field := range []string{"meeting_id", "customer_id", "customer_name", "banker_id", "banker_name", "meet_type"} {
		if _, ok := stringField(payload, field); !ok {
			violations = append(violations, fmt.Sprintf("%s: required non-empty string", field))
		}
	}

	if raw, ok := stringField(payload, "meet_date"); !ok {
		violations = append(violations, "meet_date: required ISO 8601 datetime")
	} else if _, err := parseMeetDate(raw); err != nil {
		violations = append(violations, fmt.Sprintf("meet_date: %q is not a valid ISO 8601 datetime", raw))
	}

	if summary, ok := stringField(payload, "summary"); !ok {
		violations = append(violations, "summary: required non-empty string")
	} else if n := len(strings.Fields(summary)); n < summaryMinWords || n > summaryMaxWords {
		violations = append(violations, fmt.Sprintf("summary: must have between %d and %d words, got %d", summaryMinWords, summaryMaxWords, n))
	}

	listFields := []string{"key_points", "action_items", "topics"}
	if kind == entities.SchemaAnalyze {
		listFields = []string{"key_points", "action_items", "risks"}
	}
	for _, field := range listFields {
		if !isStringList(payload[field]) {
			violations = append(violations, fmt.Sprintf("%s: required array of strings", field))
		}
	}

	if kind == entities.SchemaAnalyze {
		violations = append(violations, validateSentiment(payload)...)
	}

	if len(violations) == 0 {
		return nil
	}
	return apperrors.NewSchemaViolation(string(kind), violations...)
}

// validateSentiment enforces the label set, the score range and, when both
// hold individually, the label/score band consistency. The bands are
// closed-open with exact comparisons: positive needs score >= 0.6, neutral
// needs 0.4 <= score < 0.6, negative needs score < 0.4.
func validateSentiment(payload map[string]interface{}) []string {
	var violations []string

	label, labelOK := stringField(payload, "sentiment_label")
	if labelOK {
		switch label {
		case entities.SentimentPositive, entities.SentimentNeutral, entities.SentimentNegative:
		default:
			labelOK = false
			violations = append(violations, fmt.Sprintf("sentiment_label: %q is not one of positive/neutral/negative", label))
		}
	} else {
		violations = append(violations, "sentiment_label: required non-empty string")
	}

	score, scoreOK := floatField(payload, "sentiment_score")
	if !scoreOK {
		violations = append(violations, "sentiment_score: required number")
	} else if score < 0.0 || score > 1.0 {
		scoreOK = false
		violations = append(violations, fmt.Sprintf("sentiment_score: %v is outside [0.0, 1.0]", score))
	}

	if labelOK && scoreOK {
		var consistent bool
		switch label {
		case entities.SentimentPositive:
			consistent = score >= positiveScoreMin
		case entities.SentimentNeutral:
			consistent = score >= neutralScoreMin && score < positiveScoreMin
		case entities.SentimentNegative:
			consistent = score < neutralScoreMin
		}
		if !consistent {
			violations = append(violations, fmt.Sprintf("sentiment_label %q is inconsistent with sentiment_score %v", label, score))
		}
	}

	return violations
}

func parseMeetDate(raw string) (time.Time, error) {
	for _, layout := range meetDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime format: %q", raw)
}

func stringField(payload map[string]interface{}, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func floatField(payload map[string]interface{}, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isStringList(v interface{}) bool {
	items, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

// decodeResult converts a validated payload into the typed output for the
// given kind. The meet_date value is re-encoded as RFC 3339 first so looser
// ISO 8601 inputs survive the round trip.
func decodeResult(kind entities.SchemaKind, payload map[string]interface{}) (*entities.EnrichedMeeting, error) {
	normalized := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		normalized[k] = v
	}
	if raw, ok := stringField(payload, "meet_date"); ok {
		if t, err := parseMeetDate(raw); err == nil {
			normalized["meet_date"] = t.Format(time.RFC3339)
		}
	}

	b, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode validated payload: %w", err)
	}

	enriched := &entities.EnrichedMeeting{}
	switch kind {
	case entities.SchemaAnalyze:
		var analyzed entities.AnalyzedMeeting
		if err := json.Unmarshal(b, &analyzed); err != nil {
			return nil, fmt.Errorf("decode analyzed payload: %w", err)
		}
		analyzed.Source = entities.Source
		enriched.Analyzed = &analyzed
	default:
		var extracted entities.ExtractedMeeting
		if err := json.Unmarshal(b, &extracted); err != nil {
			return nil, fmt.Errorf("decode extracted payload: %w", err)
		}
		extracted.Source = entities.Source
		enriched.Extracted = &extracted
	}
	return enriched, nil
}
