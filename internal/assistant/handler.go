// Package assistant implements the Assistant Handler (C8): the thin
// per-turn entry point that loads thread state, decides whether a turn is
// already meeting-scoped, and otherwise drives the Decision Layer, Meeting
// Resolver, and Contract Executor in sequence.
package assistant

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/meetingbrain/assistant/internal/cache"
	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/contracts"
	"github.com/meetingbrain/assistant/internal/decision"
	"github.com/meetingbrain/assistant/internal/detect"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/meetingbrain/assistant/internal/orchestrator"
	"github.com/meetingbrain/assistant/internal/resolver"
	"github.com/meetingbrain/assistant/internal/store"
)

// Turn is the inbound chat-surface payload, per §6's "Inbound" shape.
type Turn struct {
	ThreadID        string
	MessageText     string
	ThreadMessages  string // concatenated prior turns, for classifier context
	ResolvedMeeting *models.Meeting
}

// Handler wires C4 through C7 into the single per-turn entry point.
type Handler struct {
	store      store.ArtifactStore
	log        *cache.InteractionLogStore
	classifier *decision.Classifier
	orch       *orchestrator.Orchestrator
	executor   *contracts.Executor
	cfg        config.Config
	logger     zerolog.Logger
}

// New builds a Handler. orch also satisfies resolver.SingleMeetingAnswerer
// and is used both for meeting-scoped fast paths and as the executor's
// collaborator for per-meeting fan-out.
func New(st store.ArtifactStore, logStore *cache.InteractionLogStore, classifier *decision.Classifier, orch *orchestrator.Orchestrator, executor *contracts.Executor, cfg config.Config) *Handler {
	return &Handler{store: st, log: logStore, classifier: classifier, orch: orch, executor: executor, cfg: cfg, logger: logging.For("assistant")}
}

// Handle implements §4.7's algorithm.
func (h *Handler) Handle(ctx context.Context, turn Turn) (models.TurnResponse, error) {
	last, err := h.log.Last(ctx, turn.ThreadID)
	if err != nil {
		return models.TurnResponse{}, err
	}
	hasPendingOffer := last.PendingOffer == models.OfferSummary

	var response models.TurnResponse
	if turn.ResolvedMeeting != nil {
		response, err = h.handleMeetingScoped(ctx, turn, hasPendingOffer)
	} else {
		response, err = h.handleUnscoped(ctx, turn)
	}
	if err != nil {
		return models.TurnResponse{}, err
	}

	if appendErr := h.log.Append(ctx, models.InteractionLog{
		ThreadID:     turn.ThreadID,
		Intent:       response.Metadata.Intent,
		DataSource:   response.Metadata.DataSource,
		LastAnswer:   response.Answer,
		PendingOffer: response.Metadata.PendingOffer,
	}); appendErr != nil {
		h.logger.Error().Err(appendErr).Str("thread_id", turn.ThreadID).Msg("failed to append interaction log")
	}

	return response, nil
}

// handleMeetingScoped implements step 2: the caller already bound a
// meeting, so the Decision Layer is skipped entirely and C5 runs directly
// against EXTRACTIVE_FACT.
func (h *Handler) handleMeetingScoped(ctx context.Context, turn Turn, hasPendingOffer bool) (models.TurnResponse, error) {
	requiresSemantic := !detect.IsAttendee(turn.MessageText) && !detect.IsActionItem(turn.MessageText)
	res, err := h.orch.Answer(ctx, turn.ResolvedMeeting, turn.MessageText, hasPendingOffer, models.ContractExtractiveFact, requiresSemantic)
	if err != nil {
		return models.TurnResponse{}, err
	}

	return models.TurnResponse{
		Answer: res.Answer,
		Metadata: models.TurnMetadata{
			Intent:        models.IntentSingleMeeting,
			ContractChain: []models.Contract{models.ContractExtractiveFact},
			DataSource:    res.DataSource,
			PendingOffer:  res.PendingOffer,
		},
	}, nil
}

// handleUnscoped implements step 3: classify, then either emit the
// classifier's own prepared text (CLARIFY/REFUSE) or resolve meetings and
// hand off to the executor. Pending offers are only ever resolved on the
// meeting-scoped path (handleMeetingScoped) — an offer to summarize always
// refers to the one meeting the prior turn was already bound to, which an
// unscoped turn has no equivalent of.
func (h *Handler) handleUnscoped(ctx context.Context, turn Turn) (models.TurnResponse, error) {
	classification, err := h.classifier.Classify(ctx, turn.MessageText, turn.ThreadMessages)
	if err != nil {
		return models.TurnResponse{}, err
	}

	if classification.Intent == models.IntentClarify {
		return clarifyResponse(classification), nil
	}
	if classification.Intent == models.IntentRefuse {
		return refuseResponse(classification), nil
	}
	if classification.ClarifyReason != "" {
		return clarifyResponseWithReason(classification), nil
	}

	if classification.Intent == models.IntentGeneralHelp {
		return generalHelpResponse(), nil
	}
	if classification.Intent == models.IntentDocumentSearch {
		return documentSearchResponse(classification), nil
	}

	if !classification.Intent.MeetingScoped() {
		// PRODUCT_KNOWLEDGE and EXTERNAL_RESEARCH never need the Meeting
		// Resolver; the executor runs with an empty meeting set and lets each
		// contract's own constraints decide what that means (e.g.
		// PRODUCT_FACT's authority gate, EXTERNAL_RESEARCH's research gate —
		// neither reads from the meeting set at all).
		return h.runExecutor(ctx, classification, turn.MessageText, nil, "")
	}

	resolution, err := resolver.Resolve(ctx, h.store, h.cfg, turn.MessageText)
	if err != nil {
		return models.TurnResponse{}, err
	}
	return h.runExecutor(ctx, classification, turn.MessageText, resolution.Meetings, resolution.Topic)
}

func (h *Handler) runExecutor(ctx context.Context, classification models.Classification, userMessage string, meetings []models.MeetingContext, topic string) (models.TurnResponse, error) {
	result, err := h.executor.Execute(ctx, classification.ContractChain, userMessage, meetings, topic)
	if err != nil {
		return models.TurnResponse{}, err
	}

	var dataSource string
	if len(result.ChainResults) > 0 {
		dataSource = string(result.ChainResults[len(result.ChainResults)-1].ExecutionOutcome)
	}

	return models.TurnResponse{
		Answer: result.FinalOutput,
		Metadata: models.TurnMetadata{
			Intent:        classification.Intent,
			ContractChain: classification.ContractChain,
			DataSource:    dataSource,
			Citations:     result.Citations,
			DecisionLog:   result.ChainResults,
		},
	}, nil
}

func clarifyResponse(c models.Classification) models.TurnResponse {
	answer := "Could you say a bit more about which meeting or topic you mean?"
	if c.ClarifyReason != "" {
		answer = c.ClarifyReason
	}
	return models.TurnResponse{
		Answer: answer,
		Metadata: models.TurnMetadata{
			Intent:     models.IntentClarify,
			DataSource: models.DataSourceClarification,
		},
	}
}

func clarifyResponseWithReason(c models.Classification) models.TurnResponse {
	return models.TurnResponse{
		Answer: c.ClarifyReason,
		Metadata: models.TurnMetadata{
			Intent:     c.Intent,
			DataSource: models.DataSourceClarification,
		},
	}
}

// generalHelpResponse answers a turn the classifier couldn't place in any
// other bucket. There is no contract for GENERAL_HELP — it never reaches
// the executor — so the disclaimer is fixed here rather than templated per
// contract.
func generalHelpResponse() models.TurnResponse {
	return models.TurnResponse{
		Answer: "I can answer questions about a specific recorded meeting, summarize or compare across recent " +
			"meetings for a company, or answer product questions from verified product documentation. " +
			"What would you like to know?",
		Metadata: models.TurnMetadata{
			Intent:     models.IntentGeneralHelp,
			DataSource: models.DataSourceNotSupported,
		},
	}
}

// documentSearchResponse declines DOCUMENT_SEARCH explicitly: there is no
// document store behind this assistant, only meeting artifacts, product
// knowledge, and web research, so pretending otherwise would produce an
// answer with no traceable source.
func documentSearchResponse(c models.Classification) models.TurnResponse {
	return models.TurnResponse{
		Answer: "I don't have access to a document search index — I can only answer from recorded meetings, " +
			"verified product documentation, or web research.",
		Metadata: models.TurnMetadata{
			Intent:     c.Intent,
			DataSource: models.DataSourceNotSupported,
		},
	}
}

func refuseResponse(c models.Classification) models.TurnResponse {
	return models.TurnResponse{
		Answer: "I'm not able to help with that.",
		Metadata: models.TurnMetadata{
			Intent:     models.IntentRefuse,
			DataSource: models.DataSourceNotFound,
		},
	}
}
