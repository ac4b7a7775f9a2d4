package enrich

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
)

// transcriptPreviewChars bounds how much transcript the repair prompt and
// the logs may carry. Full transcripts never leave the primary prompt.
const (
	transcriptPreviewChars = 500
	logPreviewChars        = 100
)

const extractSchemaDescription = `- meeting_id, customer_id, customer_name (required strings)
- banker_id, banker_name (required strings)
- meet_type (required string)
- meet_date (required ISO 8601 datetime)
- summary (string with EXACTLY 100-200 words)
- key_points (array of strings)
- action_items (array of strings)
- topics (array of strings)
- source: "lftm-challenge"
- idempotency_key: filled in externally
- transcript_ref: null
- duration_sec: null`

const analyzeSchemaDescription = `- meeting_id, customer_id, customer_name (required strings)
- banker_id, banker_name (required strings)
- meet_type (required string)
- meet_date (required ISO 8601 datetime)
- sentiment_label: "positive"/"neutral"/"negative" (required string)
- sentiment_score: float between 0.0 and 1.0 (required)
- summary (string with EXACTLY 100-200 words)
- key_points (array of strings)
- action_items (array of strings)
- risks (array of strings, may be empty)
- source: "lftm-challenge"
- idempotency_key: filled in externally`

func schemaDescription(kind entities.SchemaKind) string {
	if kind == entities.SchemaAnalyze {
		return analyzeSchemaDescription
	}
	return extractSchemaDescription
}

// prepareMetadataJSON renders the supplied metadata as indented JSON for the
// prompt, omitting absent fields so the model only sees what was provided.
// The transcript is never part of the metadata block.
func prepareMetadataJSON(n entities.NormalizedInput) string {
	fields := map[string]interface{}{}
	put := func(key, val string) {
		if val != "" {
			fields[key] = val
		}
	}
	put("meeting_id", n.MeetingID)
	put("customer_id", n.CustomerID)
	put("customer_name", n.CustomerName)
	put("banker_id", n.BankerID)
	put("banker_name", n.BankerName)
	put("meet_type", n.MeetType)
	if n.MeetDate != nil {
		fields["meet_date"] = n.MeetDate.Format(time.RFC3339)
	}

	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// sanitizeTranscript truncates the transcript for logs and the repair
// prompt, keeping PII exposure bounded.
func sanitizeTranscript(transcript string, maxChars int) string {
	if len(transcript) <= maxChars {
		return transcript
	}
	return transcript[:maxChars] + fmt.Sprintf("... (truncated, total: %d chars)", len(transcript))
}
