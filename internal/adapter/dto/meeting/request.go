// Package meeting holds the request and response shapes of the enrichment
// endpoints and their mapping onto the domain input record.
package meeting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
)

// ErrInputShape is returned when the request supplies both input formats or
// neither of them.
var ErrInputShape = errors.New("provide 'transcript' OR 'raw_meeting', not both nor neither")

// isoTimeLayouts are the accepted datetime encodings for request fields.
var isoTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ISOTime accepts RFC 3339 plus the looser ISO 8601 encodings upstream
// systems send (no zone, date only). Always serialized back as RFC 3339.
type ISOTime struct {
	time.Time
}

func (t *ISOTime) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range isoTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("meet_date: %q is not a valid ISO 8601 datetime", raw)
}

func (t ISOTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

// Metadata carries the optional meeting metadata supplied alongside a plain
// transcript. Provided values take priority over anything the model reads
// from the transcript.
type Metadata struct {
	MeetingID    string   `json:"meeting_id,omitempty"`
	CustomerID   string   `json:"customer_id,omitempty"`
	CustomerName string   `json:"customer_name,omitempty"`
	BankerID     string   `json:"banker_id,omitempty"`
	BankerName   string   `json:"banker_name,omitempty"`
	MeetType     string   `json:"meet_type,omitempty"`
	MeetDate     *ISOTime `json:"meet_date,omitempty"`
}

// RawMeeting is the complete upstream record: transcript and metadata in a
// single object.
type RawMeeting struct {
	MeetID            string  `json:"meet_id" validate:"required"`
	CustomerID        string  `json:"customer_id" validate:"required"`
	CustomerName      string  `json:"customer_name" validate:"required"`
	CustomerEmail     string  `json:"customer_email,omitempty"`
	BankerID          string  `json:"banker_id" validate:"required"`
	BankerName        string  `json:"banker_name" validate:"required"`
	MeetDate          ISOTime `json:"meet_date" validate:"required"`
	MeetType          string  `json:"meet_type" validate:"required"`
	MeetTranscription string  `json:"meet_transcription" validate:"required"`
}

// MeetingRequest is the shared request body of POST /extract and
// POST /analyze. Exactly one of Transcript and RawMeeting must be set.
type MeetingRequest struct {
	Transcript string      `json:"transcript,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
	RawMeeting *RawMeeting `json:"raw_meeting,omitempty"`
}

// SourceLabel reports which input format the request used, for metrics.
func (r *MeetingRequest) SourceLabel() string {
	if r.RawMeeting != nil {
		return "raw_meeting"
	}
	return "transcript"
}

// Normalize collapses either input format into the canonical domain record.
// It enforces the mutual exclusivity rule and maps the raw format's
// meet_id/meet_transcription names onto the canonical ones.
func (r *MeetingRequest) Normalize() (entities.NormalizedInput, error) {
	hasTranscript := strings.TrimSpace(r.Transcript) != ""
	hasRaw := r.RawMeeting != nil
	if hasTranscript == hasRaw {
		return entities.NormalizedInput{}, ErrInputShape
	}

	if hasRaw {
		raw := r.RawMeeting
		date := raw.MeetDate.Time
		return entities.NormalizedInput{
			Transcript:   raw.MeetTranscription,
			MeetingID:    raw.MeetID,
			CustomerID:   raw.CustomerID,
			CustomerName: raw.CustomerName,
			BankerID:     raw.BankerID,
			BankerName:   raw.BankerName,
			MeetType:     raw.MeetType,
			MeetDate:     &date,
		}, nil
	}

	normalized := entities.NormalizedInput{Transcript: r.Transcript}
	if m := r.Metadata; m != nil {
		normalized.MeetingID = m.MeetingID
		normalized.CustomerID = m.CustomerID
		normalized.CustomerName = m.CustomerName
		normalized.BankerID = m.BankerID
		normalized.BankerName = m.BankerName
		normalized.MeetType = m.MeetType
		if m.MeetDate != nil {
			date := m.MeetDate.Time
			normalized.MeetDate = &date
		}
	}
	return normalized, nil
}
