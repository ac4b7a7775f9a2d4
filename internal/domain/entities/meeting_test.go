package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyKey_Deterministic(t *testing.T) {
	date := time.Date(2026, 8, 12, 14, 30, 0, 0, time.UTC)
	n := NormalizedInput{MeetingID: "MTG123", CustomerID: "CUST456", MeetDate: &date}

	k1, ok := n.IdempotencyKey()
	require.True(t, ok)
	k2, ok := n.IdempotencyKey()
	require.True(t, ok)
	assert.Equal(t, k1, k2)
	assert.Regexp(t, "^[0-9a-f]{64}$", k1)

	// The transcript never contributes to the key.
	withTranscript := n
	withTranscript.Transcript = "Customer: hello"
	k3, ok := withTranscript.IdempotencyKey()
	require.True(t, ok)
	assert.Equal(t, k1, k3)
}

func TestIdempotencyKey_DistinctInputs(t *testing.T) {
	date := time.Date(2026, 8, 12, 14, 30, 0, 0, time.UTC)
	a := NormalizedInput{MeetingID: "MTG123", CustomerID: "CUST456", MeetDate: &date}
	b := NormalizedInput{MeetingID: "MTG124", CustomerID: "CUST456", MeetDate: &date}

	ka, _ := a.IdempotencyKey()
	kb, _ := b.IdempotencyKey()
	assert.NotEqual(t, ka, kb)

	later := date.Add(time.Hour)
	c := a
	c.MeetDate = &later
	kc, _ := c.IdempotencyKey()
	assert.NotEqual(t, ka, kc)
}

func TestIdempotencyKey_MissingFields(t *testing.T) {
	date := time.Date(2026, 8, 12, 14, 30, 0, 0, time.UTC)
	cases := []NormalizedInput{
		{CustomerID: "CUST456", MeetDate: &date},
		{MeetingID: "MTG123", MeetDate: &date},
		{MeetingID: "MTG123", CustomerID: "CUST456"},
		{},
	}
	for _, n := range cases {
		_, ok := n.IdempotencyKey()
		assert.False(t, ok)
	}
}

func TestMetadataFieldCount(t *testing.T) {
	date := time.Date(2026, 8, 12, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, 0, NormalizedInput{Transcript: "hi"}.MetadataFieldCount())
	assert.Equal(t, 3, NormalizedInput{MeetingID: "a", CustomerID: "b", MeetDate: &date}.MetadataFieldCount())
}

func TestEnrichedMeeting_Stamp(t *testing.T) {
	e := &EnrichedMeeting{Extracted: &ExtractedMeeting{}}
	e.Stamp("abc")
	assert.Equal(t, "abc", e.Extracted.IdempotencyKey)

	a := &EnrichedMeeting{Analyzed: &AnalyzedMeeting{MeetType: "Onboarding"}}
	a.Stamp(PlaceholderIdempotencyKey)
	assert.Equal(t, PlaceholderIdempotencyKey, a.Analyzed.IdempotencyKey)
	assert.Equal(t, "Onboarding", a.MeetingType())
}
