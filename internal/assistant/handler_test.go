package assistant

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/contracts"
	"github.com/meetingbrain/assistant/internal/decision"
	"github.com/meetingbrain/assistant/internal/llm"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/meetingbrain/assistant/internal/orchestrator"
	"github.com/meetingbrain/assistant/internal/store"
)

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func fixtureHandlerMeeting() *models.Meeting {
	return &models.Meeting{
		ID: "m1", CompanyID: "c-acme", CompanyName: "Acme Corp",
		InternalTeam: []string{"Alice"}, CustomerNames: []string{"Dana"},
		Chunks: []models.Chunk{
			{MeetingID: "m1", ChunkIndex: 0, Speaker: "Dana", Role: models.SpeakerCustomer, Content: "We are concerned about the pricing rollout timeline."},
		},
	}
}

// TestHandlerMeetingScopedSkipsDecisionLayer exercises step 2 of §4.7: a
// caller-resolved meeting runs C5 directly against EXTRACTIVE_FACT, never
// touching the classifier. The binary guard inside Answer fires regardless
// of contract, so this doubles as proof the meeting-scoped fast path reaches
// real transcript evidence.
func TestHandlerMeetingScopedSkipsDecisionLayer(t *testing.T) {
	st := store.NewFakeStore()
	m := fixtureHandlerMeeting()
	st.AddMeeting(m)
	cfg := config.Load()
	orch := orchestrator.New(st, llm.NewStubClient(), nil, cfg)

	h := &Handler{store: st, orch: orch, cfg: cfg, logger: nopLogger()}

	res, err := h.handleMeetingScoped(context.Background(), Turn{ThreadID: "t1", MessageText: "Did we discuss pricing?", ResolvedMeeting: m}, false)
	require.NoError(t, err)
	require.Equal(t, models.IntentSingleMeeting, res.Metadata.Intent)
	require.Contains(t, res.Answer, "Yes")
}

func TestHandlerUnscopedClarifyShortCircuits(t *testing.T) {
	st := store.NewFakeStore()
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"CLARIFY","confidence":0.9,"suggestedClarification":"Which meeting?"}`})
	classifier := decision.New(client, cfg)
	h := &Handler{store: st, classifier: classifier, cfg: cfg, logger: nopLogger()}

	res, err := h.handleUnscoped(context.Background(), Turn{ThreadID: "t1", MessageText: "tell me about it"})
	require.NoError(t, err)
	require.Equal(t, models.IntentClarify, res.Metadata.Intent)
	require.Equal(t, "Which meeting?", res.Answer)
}

func TestHandlerUnscopedRefuseShortCircuits(t *testing.T) {
	st := store.NewFakeStore()
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"REFUSE","confidence":0.9}`})
	classifier := decision.New(client, cfg)
	h := &Handler{store: st, classifier: classifier, cfg: cfg, logger: nopLogger()}

	res, err := h.handleUnscoped(context.Background(), Turn{ThreadID: "t1", MessageText: "do something disallowed"})
	require.NoError(t, err)
	require.Equal(t, models.IntentRefuse, res.Metadata.Intent)
}

func TestHandlerUnscopedMeetingScopedIntentRunsChain(t *testing.T) {
	st := store.NewFakeStore()
	st.AddMeeting(&models.Meeting{ID: "m1", CompanyID: "c-acme", CompanyName: "Acme Corp"})
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"SINGLE_MEETING","confidence":0.9}`})
	classifier := decision.New(client, cfg)
	orch := orchestrator.New(st, llm.NewStubClient(), nil, cfg)
	executor := contracts.New(st, orch, llm.NewStubClient(), nil, nil, cfg)
	h := &Handler{store: st, classifier: classifier, executor: executor, cfg: cfg, logger: nopLogger()}

	res, err := h.handleUnscoped(context.Background(), Turn{ThreadID: "t1", MessageText: "What did Acme say about pricing?"})
	require.NoError(t, err)
	require.Equal(t, models.IntentSingleMeeting, res.Metadata.Intent)
	require.Equal(t, []models.Contract{models.ContractExtractiveFact}, res.Metadata.ContractChain)
}

func TestHandlerUnscopedNonMeetingScopedIntentSkipsResolver(t *testing.T) {
	st := store.NewFakeStore()
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"GENERAL_HELP","confidence":0.9}`})
	classifier := decision.New(client, cfg)
	orch := orchestrator.New(st, llm.NewStubClient(), nil, cfg)
	executor := contracts.New(st, orch, llm.NewStubClient(), nil, nil, cfg)
	h := &Handler{store: st, classifier: classifier, executor: executor, cfg: cfg, logger: nopLogger()}

	res, err := h.handleUnscoped(context.Background(), Turn{ThreadID: "t1", MessageText: "hello"})
	require.NoError(t, err)
	require.Equal(t, models.IntentGeneralHelp, res.Metadata.Intent)
}

func TestHandlerUnscopedDocumentSearchDeclinesExplicitly(t *testing.T) {
	st := store.NewFakeStore()
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"DOCUMENT_SEARCH","confidence":0.9}`})
	classifier := decision.New(client, cfg)
	h := &Handler{store: st, classifier: classifier, cfg: cfg, logger: nopLogger()}

	res, err := h.handleUnscoped(context.Background(), Turn{ThreadID: "t1", MessageText: "search our shared drive for the MSA"})
	require.NoError(t, err)
	require.Equal(t, models.IntentDocumentSearch, res.Metadata.Intent)
	require.Contains(t, res.Answer, "don't have access to a document search index")
}

func TestHandlerUnscopedExternalResearchRunsChainWithoutResolver(t *testing.T) {
	st := store.NewFakeStore()
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"EXTERNAL_RESEARCH","confidence":0.9}`})
	classifier := decision.New(client, cfg)
	orch := orchestrator.New(st, llm.NewStubClient(), nil, cfg)
	executor := contracts.New(st, orch, llm.NewStubClient(), nil, nil, cfg)
	h := &Handler{store: st, classifier: classifier, executor: executor, cfg: cfg, logger: nopLogger()}

	res, err := h.handleUnscoped(context.Background(), Turn{ThreadID: "t1", MessageText: "what's Acme's latest funding round?"})
	require.NoError(t, err)
	require.Equal(t, models.IntentExternalResearch, res.Metadata.Intent)
	require.Equal(t, []models.Contract{models.ContractExternalResearch}, res.Metadata.ContractChain)
	require.Contains(t, res.Answer, "don't have web research configured")
}
