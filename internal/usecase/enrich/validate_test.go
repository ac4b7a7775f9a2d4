package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
)

func summaryOfWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word"
	}
	return strings.Join(words, " ")
}

func validExtractPayload() map[string]interface{} {
	return map[string]interface{}{
		"meeting_id":    "MTG123",
		"customer_id":   "CUST456",
		"customer_name": "Ana Lima",
		"banker_id":     "BNK789",
		"banker_name":   "Carlos Souza",
		"meet_type":     "Follow-up",
		"meet_date":     "2026-08-12T14:30:00Z",
		"summary":       summaryOfWords(150),
		"key_points":    []interface{}{"point one", "point two"},
		"action_items":  []interface{}{"send proposal"},
		"topics":        []interface{}{"investments"},
	}
}

func validAnalyzePayload() map[string]interface{} {
	p := validExtractPayload()
	delete(p, "topics")
	p["risks"] = []interface{}{}
	p["sentiment_label"] = "positive"
	p["sentiment_score"] = 0.85
	return p
}

func TestValidatePayload_ExtractValid(t *testing.T) {
	assert.Nil(t, validatePayload(entities.SchemaExtract, validExtractPayload()))
}

func TestValidatePayload_AnalyzeValid(t *testing.T) {
	assert.Nil(t, validatePayload(entities.SchemaAnalyze, validAnalyzePayload()))
}

func TestValidatePayload_NilPayload(t *testing.T) {
	v := validatePayload(entities.SchemaExtract, nil)
	require.NotNil(t, v)
	assert.Contains(t, v.Violations[0], "not a JSON object")
}

func TestValidatePayload_SummaryWordCountBoundaries(t *testing.T) {
	cases := []struct {
		words int
		valid bool
	}{
		{99, false},
		{100, true},
		{200, true},
		{201, false},
	}
	for _, tc := range cases {
		p := validExtractPayload()
		p["summary"] = summaryOfWords(tc.words)
		v := validatePayload(entities.SchemaExtract, p)
		if tc.valid {
			assert.Nil(t, v, "summary with %d words must be valid", tc.words)
		} else {
			require.NotNil(t, v, "summary with %d words must be rejected", tc.words)
			assert.Contains(t, v.Violations[0], "summary")
		}
	}
}

func TestValidatePayload_CollectsAllViolations(t *testing.T) {
	p := validExtractPayload()
	delete(p, "meeting_id")
	p["summary"] = summaryOfWords(10)
	p["topics"] = "not a list"

	v := validatePayload(entities.SchemaExtract, p)
	require.NotNil(t, v)
	assert.Len(t, v.Violations, 3)
}

func TestValidatePayload_MeetDateFormats(t *testing.T) {
	for _, raw := range []string{"2026-08-12T14:30:00Z", "2026-08-12T14:30:00-03:00", "2026-08-12T14:30:00", "2026-08-12"} {
		p := validExtractPayload()
		p["meet_date"] = raw
		assert.Nil(t, validatePayload(entities.SchemaExtract, p), "meet_date %q must be accepted", raw)
	}

	p := validExtractPayload()
	p["meet_date"] = "12/08/2026"
	require.NotNil(t, validatePayload(entities.SchemaExtract, p))
}

func TestValidateSentiment_Bands(t *testing.T) {
	cases := []struct {
		label string
		score float64
		valid bool
	}{
		{"positive", 0.85, true},
		{"positive", 0.6, true},
		{"positive", 0.59, false},
		{"neutral", 0.4, true},
		{"neutral", 0.59, true},
		{"neutral", 0.6, false},
		{"neutral", 0.39, false},
		{"negative", 0.39, true},
		{"negative", 0.0, true},
		{"negative", 0.4, false},
	}
	for _, tc := range cases {
		p := validAnalyzePayload()
		p["sentiment_label"] = tc.label
		p["sentiment_score"] = tc.score
		v := validatePayload(entities.SchemaAnalyze, p)
		if tc.valid {
			assert.Nil(t, v, "label=%s score=%v must be valid", tc.label, tc.score)
		} else {
			require.NotNil(t, v, "label=%s score=%v must be rejected", tc.label, tc.score)
			assert.Contains(t, v.Violations[0], "inconsistent")
		}
	}
}

func TestValidateSentiment_ConsistencySkippedWhenFieldsInvalid(t *testing.T) {
	p := validAnalyzePayload()
	p["sentiment_label"] = "ecstatic"
	p["sentiment_score"] = 1.7

	v := validatePayload(entities.SchemaAnalyze, p)
	require.NotNil(t, v)
	assert.Len(t, v.Violations, 2)
	for _, msg := range v.Violations {
		assert.NotContains(t, msg, "inconsistent")
	}
}

func TestValidatePayload_ScoreRange(t *testing.T) {
	for _, score := range []float64{0.0, 1.0} {
		p := validAnalyzePayload()
		p["sentiment_score"] = score
		p["sentiment_label"] = "negative"
		if score == 1.0 {
			p["sentiment_label"] = "positive"
		}
		assert.Nil(t, validatePayload(entities.SchemaAnalyze, p), "score %v must be in range", score)
	}

	p := validAnalyzePayload()
	p["sentiment_score"] = -0.1
	require.NotNil(t, validatePayload(entities.SchemaAnalyze, p))
}

func TestDecodeResult_Extract(t *testing.T) {
	enriched, err := decodeResult(entities.SchemaExtract, validExtractPayload())
	require.NoError(t, err)
	require.NotNil(t, enriched.Extracted)
	assert.Nil(t, enriched.Analyzed)
	assert.Equal(t, "MTG123", enriched.Extracted.MeetingID)
	assert.Equal(t, entities.Source, enriched.Extracted.Source)
	assert.Equal(t, 2026, enriched.Extracted.MeetDate.Year())
}

func TestDecodeResult_NormalizesLooseMeetDate(t *testing.T) {
	p := validAnalyzePayload()
	p["meet_date"] = "2026-08-12T14:30:00"

	enriched, err := decodeResult(entities.SchemaAnalyze, p)
	require.NoError(t, err)
	require.NotNil(t, enriched.Analyzed)
	assert.Equal(t, 14, enriched.Analyzed.MeetDate.Hour())
}
