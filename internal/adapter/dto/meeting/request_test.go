package meeting

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISOTime_Layouts(t *testing.T) {
	cases := []string{
		`"2026-08-12T14:30:00Z"`,
		`"2026-08-12T14:30:00-03:00"`,
		`"2026-08-12T14:30:00"`,
		`"2026-08-12"`,
	}
	for _, raw := range cases {
		var ts ISOTime
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), "input %s", raw)
		assert.Equal(t, 2026, ts.Year())
	}

	var ts ISOTime
	assert.Error(t, json.Unmarshal([]byte(`"12/08/2026"`), &ts))
}

func TestNormalize_TranscriptWithMetadata(t *testing.T) {
	var req MeetingRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"transcript": "Customer: hello",
		"metadata": {"meeting_id":"MTG1","customer_id":"C1","meet_date":"2026-08-12T14:30:00Z"}
	}`), &req))

	normalized, err := req.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Customer: hello", normalized.Transcript)
	assert.Equal(t, "MTG1", normalized.MeetingID)
	require.NotNil(t, normalized.MeetDate)
	assert.Equal(t, "transcript", req.SourceLabel())
}

func TestNormalize_RawMeetingFieldMapping(t *testing.T) {
	var req MeetingRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"raw_meeting": {
			"meet_id": "MTG2",
			"customer_id": "C2",
			"customer_name": "ACME",
			"banker_id": "B2",
			"banker_name": "Pedro",
			"meet_date": "2026-08-12T14:30:00Z",
			"meet_type": "Onboarding",
			"meet_transcription": "Banker: welcome"
		}
	}`), &req))

	normalized, err := req.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "MTG2", normalized.MeetingID)
	assert.Equal(t, "Banker: welcome", normalized.Transcript)
	assert.Equal(t, "raw_meeting", req.SourceLabel())
}

func TestNormalize_ExclusivityRule(t *testing.T) {
	neither := MeetingRequest{}
	_, err := neither.Normalize()
	assert.ErrorIs(t, err, ErrInputShape)

	both := MeetingRequest{
		Transcript: "hi",
		RawMeeting: &RawMeeting{MeetTranscription: "hi"},
	}
	_, err = both.Normalize()
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestNormalize_NoMetadata(t *testing.T) {
	req := MeetingRequest{Transcript: "hi"}
	normalized, err := req.Normalize()
	require.NoError(t, err)
	assert.Empty(t, normalized.MeetingID)
	assert.Nil(t, normalized.MeetDate)
}
