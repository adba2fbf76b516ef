package detect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAttendeeDirectToken(t *testing.T) {
	require.True(t, IsAttendee("What were the attendees?"))
}

func TestIsAttendeeLeadWordPlusVariant(t *testing.T) {
	require.True(t, IsAttendee("Who attended the call?"))
}

func TestIsAttendeeNegative(t *testing.T) {
	require.False(t, IsAttendee("What is the pricing model?"))
}

func TestIsActionItemPhrase(t *testing.T) {
	require.True(t, IsActionItem("What are the next steps?"))
	require.True(t, IsActionItem("Who's responsible for the follow-up?"))
}

func TestIsActionItemJudgmentPhrasing(t *testing.T) {
	require.True(t, IsActionItem("Should we bring up pricing next time?"))
}

func TestIsActionItemNegative(t *testing.T) {
	require.False(t, IsActionItem("How is the weather"))
}

func TestIsBinaryLeadAuxiliary(t *testing.T) {
	require.True(t, IsBinary("Was there any discussion of pricing?"))
	require.True(t, IsBinary("Did they mention Acme?"))
}

func TestIsBinaryPassiveConstruction(t *testing.T) {
	require.True(t, IsBinary("Pricing was discussed today"))
}

func TestIsBinaryNegative(t *testing.T) {
	require.False(t, IsBinary("What is the pricing"))
}

func TestExtractBinarySubjectMeetingPattern(t *testing.T) {
	subject := ExtractBinarySubject("Did we have a meeting with Acme about pricing?")
	require.Contains(t, subject, "acme")
}

func TestExtractBinarySubjectWasDiscussedPattern(t *testing.T) {
	require.Equal(t, "acme", ExtractBinarySubject("Was Acme discussed in our call?"))
}

func TestExtractBinarySubjectDidPattern(t *testing.T) {
	subject := ExtractBinarySubject("Did we discuss pricing?")
	require.Equal(t, "pricing", subject)
}

func TestDetectAmbiguityFiresOnPreparation(t *testing.T) {
	got := DetectAmbiguity("I'm preparing for my call with Acme")
	require.True(t, got.IsAmbiguous)
	require.NotEmpty(t, got.ClarificationPrompt)
}

func TestDetectAmbiguityFiresOnBeforeMeeting(t *testing.T) {
	got := DetectAmbiguity("What should I know before our meeting?")
	require.True(t, got.IsAmbiguous)
}

func TestDetectAmbiguityNegative(t *testing.T) {
	got := DetectAmbiguity("What happened in the Acme call?")
	require.False(t, got.IsAmbiguous)
}

func TestDetectOfferResponseAccept(t *testing.T) {
	require.Equal(t, OfferResponseAccept, DetectOfferResponse("Yes please"))
	require.Equal(t, OfferResponseAccept, DetectOfferResponse("  OK.  "))
}

func TestDetectOfferResponseDecline(t *testing.T) {
	require.Equal(t, OfferResponseDecline, DetectOfferResponse("No thanks."))
}

func TestDetectOfferResponseUnrecognizedFallsThrough(t *testing.T) {
	require.Equal(t, OfferResponseNone, DetectOfferResponse("Can you tell me more about that?"))
}

func TestExtractTopicAfterLeadIn(t *testing.T) {
	topic := ExtractTopic("Can you tell me about the pricing rollout?")
	require.Contains(t, topic, "pricing rollout")
}

func TestExtractTopicTooShortRejected(t *testing.T) {
	require.Equal(t, "", ExtractTopic("Let's discuss it"))
}

func TestExtractSearchTermsProperNounsAndAcronyms(t *testing.T) {
	terms := ExtractSearchTerms("Did we discuss the ROI with Acme Corp?")
	require.NotContains(t, terms, "ROI")
	require.Contains(t, terms, "Acme")
	require.Contains(t, terms, "Corp")
}

func TestExtractSearchTermsQuotedString(t *testing.T) {
	terms := ExtractSearchTerms(`He asked about "contract renewal" terms`)
	require.Contains(t, terms, "contract renewal")
}

func TestWantsAllCustomersPositive(t *testing.T) {
	require.True(t, WantsAllCustomers("What are all customers saying about pricing?"))
}

func TestWantsAllCustomersNegative(t *testing.T) {
	require.False(t, WantsAllCustomers("What did Acme say about pricing?"))
}
