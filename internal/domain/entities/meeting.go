package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Source tags every enriched record with the producing system.
const Source = "lftm-challenge"

// PlaceholderIdempotencyKey is stamped on results when the identifying
// triple needed for a real key is incomplete.
const PlaceholderIdempotencyKey = "no-idempotency-key-available"

// SchemaKind selects which output shape the pipeline produces and validates.
type SchemaKind string

const (
	SchemaExtract SchemaKind = "extract"
	SchemaAnalyze SchemaKind = "analyze"
)

// Sentiment labels for analyzed meetings. The score bands are closed-open:
// positive is score >= 0.6, neutral is 0.4 <= score < 0.6, negative is
// score < 0.4.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// NormalizedInput is the canonical request record both input shapes collapse
// into. Constructed once per request, immutable afterwards.
type NormalizedInput struct {
	Transcript   string
	MeetingID    string
	CustomerID   string
	CustomerName string
	BankerID     string
	BankerName   string
	MeetType     string
	MeetDate     *time.Time
}

// IdempotencyKey derives the stable content hash identifying this meeting
// event: SHA-256 over meeting_id + meet_date (RFC 3339) + customer_id,
// lowercase hex. The transcript is deliberately excluded; the key identifies
// a meeting, not a generation attempt. Returns false when any of the three
// fields is missing.
func (n NormalizedInput) IdempotencyKey() (string, bool) {
	if n.MeetingID == "" || n.CustomerID == "" || n.MeetDate == nil {
		return "", false
	}
	sum := sha256.Sum256([]byte(n.MeetingID + n.MeetDate.Format(time.RFC3339) + n.CustomerID))
	return hex.EncodeToString(sum[:]), true
}

// MetadataFieldCount reports how many of the optional metadata fields were
// supplied, for logging.
func (n NormalizedInput) MetadataFieldCount() int {
	count := 0
	for _, s := range []string{n.MeetingID, n.CustomerID, n.CustomerName, n.BankerID, n.BankerName, n.MeetType} {
		if s != "" {
			count++
		}
	}
	if n.MeetDate != nil {
		count++
	}
	return count
}

// TokenUsage carries the provider-reported token counts for one generation
// call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerationResult is the model's raw, unvalidated structured output plus
// usage metadata. It exists only between the dispatcher and the validator.
type GenerationResult struct {
	// Payload is nil when the model's reply was not a JSON object;
	// RawContent always holds the reply verbatim for the repair prompt.
	Payload    map[string]interface{}
	RawContent string
	Model      string
	Usage      TokenUsage
}

// ExtractedMeeting is the validated output of the extract pipeline.
type ExtractedMeeting struct {
	MeetingID    string `json:"meeting_id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	BankerID     string `json:"banker_id"`
	BankerName   string `json:"banker_name"`
	MeetType     string `json:"meet_type"`

	MeetDate time.Time `json:"meet_date"`

	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Topics      []string `json:"topics"`

	Source         string `json:"source"`
	IdempotencyKey string `json:"idempotency_key"`

	TranscriptRef *string `json:"transcript_ref"`
	DurationSec   *int    `json:"duration_sec"`
}

// AnalyzedMeeting is the validated output of the analyze pipeline.
type AnalyzedMeeting struct {
	MeetingID    string `json:"meeting_id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	BankerID     string `json:"banker_id"`
	BankerName   string `json:"banker_name"`
	MeetType     string `json:"meet_type"`

	MeetDate time.Time `json:"meet_date"`

	SentimentLabel string  `json:"sentiment_label"`
	SentimentScore float64 `json:"sentiment_score"`

	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Risks       []string `json:"risks"`

	Source         string `json:"source"`
	IdempotencyKey string `json:"idempotency_key"`
}

// EnrichedMeeting is the union returned by the orchestrator; exactly one of
// the two fields is set, matching the pipeline's schema kind.
type EnrichedMeeting struct {
	Extracted *ExtractedMeeting
	Analyzed  *AnalyzedMeeting
}

// Stamp sets the idempotency key on whichever shape is present. Runs exactly
// once, after validation succeeds.
func (e *EnrichedMeeting) Stamp(key string) {
	if e.Extracted != nil {
		e.Extracted.IdempotencyKey = key
	}
	if e.Analyzed != nil {
		e.Analyzed.IdempotencyKey = key
	}
}

// MeetType returns the meeting type of whichever shape is present.
func (e *EnrichedMeeting) MeetingType() string {
	switch {
	case e.Extracted != nil:
		return e.Extracted.MeetType
	case e.Analyzed != nil:
		return e.Analyzed.MeetType
	default:
		return ""
	}
}
