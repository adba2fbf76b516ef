package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meetingbrain/assistant/internal/models"
)

func TestAttendeesSplitsInternalAndCustomer(t *testing.T) {
	m := &models.Meeting{InternalTeam: []string{"Alice", "Bob"}, CustomerNames: []string{"Dana"}}
	internal, customer := Attendees(m)
	require.Equal(t, []string{"Alice", "Bob"}, internal)
	require.Equal(t, []string{"Dana"}, customer)
}

func TestQAPairsTieredFiltering(t *testing.T) {
	pairs := []models.QAPair{
		{Question: "What about Acme pricing rollout?"}, // both proper noun + keyword
		{Question: "How is the weather"},                // neither
		{Question: "Any update on Acme?"},                // proper noun only
	}
	got := QAPairs(pairs, "Did someone ask about Acme pricing")
	require.Len(t, got, 1)
	require.Equal(t, pairs[0].Question, got[0].Question)
}

func TestQAPairsFallsBackToProperNounOnlyTier(t *testing.T) {
	pairs := []models.QAPair{
		{Question: "Any update on Acme?"},
		{Question: "Unrelated question entirely"},
	}
	got := QAPairs(pairs, "Did someone ask about Acme")
	require.Len(t, got, 1)
	require.Equal(t, "Any update on Acme?", got[0].Question)
}

func TestActionItemsFiltersConfidenceAlreadyDoneByCaller(t *testing.T) {
	items := []models.ActionItem{
		{Action: "Send Acme pricing sheet", Owner: "Alice", Confidence: 0.9},
		{Action: "Unrelated follow-up", Owner: "Bob", Confidence: 0.8},
	}
	got := ActionItems(items, "Acme pricing")
	require.Len(t, got, 1)
	require.Equal(t, "Send Acme pricing sheet", got[0].Action)
}

func TestTranscriptSnippetsGuardrailTierTagging(t *testing.T) {
	chunks := []models.Chunk{
		{ChunkIndex: 0, Content: "Acme mentioned their logo colors."},
		{ChunkIndex: 1, Content: "We briefly covered pricing tiers."},
	}
	got := TranscriptSnippets(chunks, "Did anyone bring up Acme rollout", 5)
	require.Len(t, got, 1)
	require.Equal(t, MatchProperNoun, got[0].MatchType)
}

func TestTranscriptSnippetsBothTierWins(t *testing.T) {
	chunks := []models.Chunk{
		{ChunkIndex: 0, Content: "Acme asked several pricing questions."},
		{ChunkIndex: 1, Content: "Acme mentioned their logo colors."},
	}
	got := TranscriptSnippets(chunks, "Did anyone discuss Acme pricing", 5)
	require.Len(t, got, 1)
	require.Equal(t, MatchBoth, got[0].MatchType)
}

func TestTranscriptSnippetsNoQueryReturnsAllUpToLimit(t *testing.T) {
	chunks := []models.Chunk{
		{ChunkIndex: 0, Content: "one"},
		{ChunkIndex: 1, Content: "two"},
		{ChunkIndex: 2, Content: "three"},
	}
	got := TranscriptSnippets(chunks, "", 2)
	require.Len(t, got, 2)
}
