// Package orchestrator implements the Single-Meeting Orchestrator (C5):
// given one meeting and a contract, it produces a grounded answer using the
// C2 retrievers and C3 detectors and, only when the handler's artifacts
// come up short, a bounded LLM call.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/detect"
	"github.com/meetingbrain/assistant/internal/external"
	"github.com/meetingbrain/assistant/internal/llm"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/meetingbrain/assistant/internal/retrieval"
	"github.com/meetingbrain/assistant/internal/store"
)

var tracer = otel.Tracer("orchestrator")

// Orchestrator runs the answer() operation over one meeting at a time.
type Orchestrator struct {
	store  store.ArtifactStore
	llm    llm.Client
	kb     external.ProductKnowledgeService
	cfg    config.Config
	logger zerolog.Logger
}

// New builds an Orchestrator. kb may be nil — it is an optional
// collaborator and only consulted on the explicit KB-assessment branch.
func New(st store.ArtifactStore, client llm.Client, kb external.ProductKnowledgeService, cfg config.Config) *Orchestrator {
	return &Orchestrator{store: st, llm: client, kb: kb, cfg: cfg, logger: logging.For("orchestrator")}
}

// handlerForContract derives which handler a contract routes to, per
// §4.4's "Handler routing" step. An unrecognized or empty contract
// defaults to extractive.
func handlerForContract(contract models.Contract) models.AnswerIntent {
	switch contract {
	case models.ContractExtractiveFact, models.ContractAttendees,
		models.ContractCustomerQuestions, models.ContractNextSteps:
		return models.AnswerExtractive
	case models.ContractAggregativeList:
		return models.AnswerAggregative
	case models.ContractMeetingSummary:
		return models.AnswerSummary
	case models.ContractDraftFollowUp, models.ContractDraftProposal:
		return models.AnswerDrafting
	default:
		return models.AnswerExtractive
	}
}

// Answer implements §4.4's strict-order flow.
func (o *Orchestrator) Answer(ctx context.Context, meeting *models.Meeting, question string, hasPendingOffer bool, contract models.Contract, requiresSemantic bool) (models.Result, error) {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "orchestrator.answer", trace.WithAttributes(
		attribute.String("meeting_id", meeting.ID),
		attribute.String("contract", string(contract)),
	))
	defer span.End()
	result, err := o.answer(ctx, meeting, question, hasPendingOffer, contract, requiresSemantic)
	span.SetAttributes(attribute.String("data_source", result.DataSource))
	return result, err
}

func (o *Orchestrator) answer(ctx context.Context, meeting *models.Meeting, question string, hasPendingOffer bool, contract models.Contract, requiresSemantic bool) (models.Result, error) {
	// 1. Pending offer resolution.
	if hasPendingOffer {
		switch detect.DetectOfferResponse(question) {
		case detect.OfferResponseAccept:
			return o.handleSummary(ctx, meeting)
		case detect.OfferResponseDecline:
			return models.Result{Answer: "No problem.", Intent: models.AnswerExtractive, DataSource: models.DataSourceNotFound}, nil
		}
		// Unrecognized replies fall through to normal handling.
	}

	// 2. Ambiguity guard.
	if amb := detect.DetectAmbiguity(question); amb.IsAmbiguous {
		return models.Result{
			Answer:                 amb.ClarificationPrompt,
			Intent:                 models.AnswerExtractive,
			DataSource:             models.DataSourceClarification,
			IsClarificationRequest: true,
		}, nil
	}

	// 3. Binary guard.
	if detect.IsBinary(question) {
		if res, ok := o.handleBinary(ctx, meeting, question); ok {
			return res, nil
		}
	}

	// 4-5. Handler routing + execution.
	handler := handlerForContract(contract)
	var result models.Result
	var err error
	switch handler {
	case models.AnswerAggregative:
		result, err = o.handleAggregative(ctx, meeting, question)
	case models.AnswerSummary:
		result, err = o.handleSummary(ctx, meeting)
	case models.AnswerDrafting:
		result, err = o.handleDrafting(ctx, meeting, question, contract)
	default:
		result, err = o.handleExtractive(ctx, meeting, question, contract)
	}
	if err != nil {
		return models.Result{}, err
	}

	// 6. Semantic fallback (extractive/aggregative only).
	if requiresSemantic && result.DataSource == models.DataSourceNotFound &&
		(handler == models.AnswerExtractive || handler == models.AnswerAggregative) {
		semResult, semErr := o.semanticFallback(ctx, meeting, question)
		if semErr != nil {
			o.logger.Debug().Err(semErr).Str("meetingID", meeting.ID).Msg("semantic fallback failed, keeping deterministic result")
			result.SemanticError = semErr.Error()
		} else {
			semResult.PendingOffer = result.PendingOffer
			result = semResult
		}
	}

	// 7. Uncertainty offer.
	if result.DataSource == models.DataSourceNotFound && result.PendingOffer == "" {
		result.PendingOffer = models.OfferSummary
	}

	return result, nil
}

// handleBinary implements §4.4.a.
func (o *Orchestrator) handleBinary(ctx context.Context, meeting *models.Meeting, question string) (models.Result, bool) {
	// Meeting-existence phrasing: "is there a meeting with X". Checked
	// before subject extraction, whose first pattern also matches it.
	if strings.Contains(strings.ToLower(question), "meeting with") {
		answer := "Yes."
		if meeting.MeetingDate != nil {
			answer = fmt.Sprintf("Yes, on %s (%s).", meeting.MeetingDate.Format("Jan 2, 2006"), humanize.Time(*meeting.MeetingDate))
		}
		answer += " Would you like a brief summary?"
		return models.Result{
			Answer: answer, Intent: models.AnswerExtractive,
			DataSource: models.DataSourceBinaryAnswer, IsBinaryQuestion: true,
			PendingOffer: models.OfferSummary,
		}, true
	}

	subject := detect.ExtractBinarySubject(question)
	if subject == "" {
		return models.Result{}, false
	}

	qaPairs, _ := o.store.GetQAPairsByTranscript(ctx, meeting.ID)
	actionItems, _ := o.store.GetMeetingActionItemsByTranscript(ctx, meeting.ID)

	matchedQA := retrieval.QAPairs(qaPairs, subject)
	matchedActions := retrieval.ActionItems(filterPositiveConfidence(actionItems), subject)
	matchedChunks := retrieval.TranscriptSnippets(meeting.Chunks, subject, 1)

	switch {
	case len(matchedQA) > 0:
		return models.Result{
			Answer: fmt.Sprintf("Yes — \"%s\"", matchedQA[0].Question), Intent: models.AnswerExtractive,
			DataSource: models.DataSourceBinaryAnswer, IsBinaryQuestion: true, Evidence: matchedQA[0].Question,
		}, true
	case len(matchedActions) > 0:
		return models.Result{
			Answer: fmt.Sprintf("Yes — \"%s\"", matchedActions[0].Action), Intent: models.AnswerExtractive,
			DataSource: models.DataSourceBinaryAnswer, IsBinaryQuestion: true, Evidence: matchedActions[0].Action,
		}, true
	case len(matchedChunks) > 0 && matchedChunks[0].MatchType != retrieval.MatchProperNoun:
		return models.Result{
			Answer: fmt.Sprintf("Yes — \"%s\"", matchedChunks[0].Chunk.Content), Intent: models.AnswerExtractive,
			DataSource: models.DataSourceBinaryAnswer, IsBinaryQuestion: true, Evidence: matchedChunks[0].Chunk.Content,
		}, true
	default:
		return models.Result{
			Answer: "No, I don't see that in this meeting. Would you like a brief summary?",
			Intent: models.AnswerExtractive, DataSource: models.DataSourceBinaryAnswer,
			IsBinaryQuestion: true, PendingOffer: models.OfferSummary,
		}, true
	}
}

func filterPositiveConfidence(items []models.ActionItem) []models.ActionItem {
	out := make([]models.ActionItem, 0, len(items))
	for _, a := range items {
		if a.Confidence > 0 {
			out = append(out, a)
		}
	}
	return out
}

// handleExtractive implements §4.4.b, including the fixed contract fast
// paths (named by the contract or triggered by the attendee / action-item
// detectors) and the general extractive path with its action-items-first
// order and proper-noun-only guardrail.
func (o *Orchestrator) handleExtractive(ctx context.Context, meeting *models.Meeting, question string, contract models.Contract) (models.Result, error) {
	if contract != models.ContractAttendees && contract != models.ContractCustomerQuestions && contract != models.ContractNextSteps {
		if detect.IsAttendee(question) {
			contract = models.ContractAttendees
		} else if detect.IsActionItem(question) {
			contract = models.ContractNextSteps
		}
	}

	switch contract {
	case models.ContractAttendees:
		internal, customer := retrieval.Attendees(meeting)
		answer := formatAttendees(internal, customer)
		return models.Result{Answer: answer, Intent: models.AnswerExtractive, DataSource: models.DataSourceAttendees}, nil

	case models.ContractCustomerQuestions:
		qaPairs, err := o.store.GetQAPairsByTranscript(ctx, meeting.ID)
		if err != nil {
			return models.Result{}, err
		}
		topic := detect.ExtractTopic(question)
		matched := retrieval.QAPairs(qaPairs, topic)
		if len(matched) == 0 {
			return models.NotFound("I couldn't find any recorded questions on that in this meeting."), nil
		}
		return models.Result{Answer: formatQAPairs(matched), Intent: models.AnswerExtractive, DataSource: models.DataSourceQAPairs}, nil

	case models.ContractNextSteps:
		items, err := o.store.GetMeetingActionItemsByTranscript(ctx, meeting.ID)
		if err != nil {
			return models.Result{}, err
		}
		positive := filterPositiveConfidence(items)
		if len(positive) == 0 {
			return models.NotFound("I don't see any action items recorded for this meeting."), nil
		}
		return models.Result{Answer: formatActionItems(positive), Intent: models.AnswerExtractive, DataSource: models.DataSourceActionItems}, nil
	}

	return o.generalExtractive(ctx, meeting, question)
}

// generalExtractive fetches QAPairs and ActionItems in parallel and filters
// each against the query. The first passing action item is returned
// whenever any passes; QAPairs are consulted only when none does, and
// action-item and QAPair scores are not compared. With neither, it falls
// back to TranscriptSnippets only for both/keyword tier matches.
func (o *Orchestrator) generalExtractive(ctx context.Context, meeting *models.Meeting, question string) (models.Result, error) {
	var qaPairs []models.QAPair
	var actionItems []models.ActionItem
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		qaPairs, _ = o.store.GetQAPairsByTranscript(ctx, meeting.ID)
	}()
	go func() {
		defer wg.Done()
		actionItems, _ = o.store.GetMeetingActionItemsByTranscript(ctx, meeting.ID)
	}()
	wg.Wait()

	matchedActions := retrieval.ActionItems(filterPositiveConfidence(actionItems), question)
	if len(matchedActions) > 0 {
		return models.Result{
			Answer: matchedActions[0].Action, Intent: models.AnswerExtractive,
			DataSource: models.DataSourceActionItems, Evidence: matchedActions[0].Evidence,
		}, nil
	}

	matchedQA := retrieval.QAPairs(qaPairs, question)
	if len(matchedQA) > 0 {
		return models.Result{
			Answer: matchedQA[0].AnswerEvidence, Intent: models.AnswerExtractive,
			DataSource: models.DataSourceQAPairs, Evidence: matchedQA[0].Question,
		}, nil
	}

	snippets := retrieval.TranscriptSnippets(meeting.Chunks, question, 1)
	if len(snippets) > 0 && snippets[0].MatchType != retrieval.MatchProperNoun {
		return models.Result{
			Answer: snippets[0].Chunk.Content, Intent: models.AnswerExtractive,
			DataSource: models.DataSourceTranscript, Evidence: snippets[0].Chunk.Content,
		}, nil
	}

	return models.NotFound("I couldn't find anything on that in this meeting."), nil
}

var concernWords = []string{"concern", "issue", "problem", "worry", "risk", "challenge", "difficult", "block"}

// handleAggregative implements §4.4.c.
func (o *Orchestrator) handleAggregative(ctx context.Context, meeting *models.Meeting, question string) (models.Result, error) {
	q := strings.ToLower(question)
	qaPairs, err := o.store.GetQAPairsByTranscript(ctx, meeting.ID)
	if err != nil {
		return models.Result{}, err
	}

	switch {
	case strings.Contains(q, "question"):
		if len(qaPairs) == 0 {
			return models.NotFound("No questions were recorded for this meeting."), nil
		}
		return models.Result{Answer: formatQAPairs(qaPairs), Intent: models.AnswerAggregative, DataSource: models.DataSourceQAPairs}, nil

	case strings.Contains(q, "concern") || strings.Contains(q, "worry") || strings.Contains(q, "risk"):
		var concerns []models.QAPair
		for _, qa := range qaPairs {
			lower := strings.ToLower(qa.Question)
			for _, w := range concernWords {
				if strings.Contains(lower, w) {
					concerns = append(concerns, qa)
					break
				}
			}
		}
		if len(concerns) == 0 {
			return models.NotFound("I don't see any concerns raised in this meeting."), nil
		}
		return models.Result{Answer: formatQAPairs(concerns), Intent: models.AnswerAggregative, DataSource: models.DataSourceQAPairs}, nil

	default:
		items, err := o.store.GetMeetingActionItemsByTranscript(ctx, meeting.ID)
		if err != nil {
			return models.Result{}, err
		}
		positive := filterPositiveConfidence(items)
		if len(positive) == 0 {
			return models.NotFound("I don't see any action items recorded for this meeting."), nil
		}
		return models.Result{Answer: formatActionItems(positive), Intent: models.AnswerAggregative, DataSource: models.DataSourceActionItems}, nil
	}
}

// handleSummary implements §4.4.d.
func (o *Orchestrator) handleSummary(ctx context.Context, meeting *models.Meeting) (models.Result, error) {
	chunks, err := o.store.GetChunksForTranscript(ctx, meeting.ID, 0)
	if err != nil {
		return models.Result{}, err
	}
	transcript := concatChunks(chunks, o.cfg.SummaryCharBudget)

	resp, err := o.llm.Complete(ctx, llm.Request{
		Model: o.cfg.Models[config.RoleExecutiveSummary],
		SystemPrompt: "Summarize this sales call transcript under four headings: Purpose, Key Topics, " +
			"Decisions & Outcomes, Open Questions. Use only what is in the transcript; never invent facts.",
		UserPrompt:  transcript,
		Temperature: 0.2,
		MaxTokens:   1200,
	})
	if err != nil {
		return models.Result{}, err
	}
	return models.Result{Answer: resp.Text, Intent: models.AnswerSummary, DataSource: models.DataSourceSummary}, nil
}

// handleDrafting implements §4.4.e.
func (o *Orchestrator) handleDrafting(ctx context.Context, meeting *models.Meeting, question string, contract models.Contract) (models.Result, error) {
	var qaPairs []models.QAPair
	var actionItems []models.ActionItem
	var chunks []models.Chunk
	var kb external.ProductKnowledge
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); qaPairs, _ = o.store.GetQAPairsByTranscript(ctx, meeting.ID) }()
	go func() { defer wg.Done(); actionItems, _ = o.store.GetMeetingActionItemsByTranscript(ctx, meeting.ID) }()
	go func() { defer wg.Done(); chunks, _ = o.store.GetChunksForTranscript(ctx, meeting.ID, 40) }()
	if o.kb != nil {
		if snap, err := o.kb.Snapshot(ctx); err == nil {
			kb = snap
		}
	}
	wg.Wait()

	var b strings.Builder
	b.WriteString("Recorded Q&A (source: meeting transcript):\n")
	b.WriteString(formatQAPairs(qaPairs))
	b.WriteString("\n\nAction items (source: meeting transcript):\n")
	b.WriteString(formatActionItems(filterPositiveConfidence(actionItems)))
	b.WriteString("\n\nTranscript excerpt (source: meeting transcript):\n")
	b.WriteString(concatChunks(chunks, 4000))
	if len(kb.Facts) > 0 {
		b.WriteString("\n\nProduct knowledge (framing reference only, not a source of truth for this draft):\n")
		b.WriteString(strings.Join(kb.Facts, "\n"))
	}

	kind := "a follow-up email"
	if contract == models.ContractDraftProposal {
		kind = "proposal notes"
	}
	system := fmt.Sprintf("Draft %s using only the sections provided, each labeled with its source. ", kind) +
		"Never invent facts not present in a labeled section. If the request involves pricing, acknowledge the " +
		"pricing model but defer concrete figures to a follow-up conversation."

	resp, err := o.llm.Complete(ctx, llm.Request{
		Model:        o.cfg.Models[config.RoleSingleMeetingAnswer],
		SystemPrompt: system,
		UserPrompt:   fmt.Sprintf("Request: %s\n\n%s", question, b.String()),
		Temperature:  0.3,
		MaxTokens:    1500,
	})
	if err != nil {
		return models.Result{}, err
	}
	return models.Result{Answer: resp.Text, Intent: models.AnswerDrafting, DataSource: models.DataSourceDrafting}, nil
}

// semanticFallback calls the bounded LLM answerer over the meeting's
// chunks when artifact retrieval came up short but the caller marked this
// turn as requiring a semantic attempt.
func (o *Orchestrator) semanticFallback(ctx context.Context, meeting *models.Meeting, question string) (models.Result, error) {
	chunks, err := o.store.GetChunksForTranscript(ctx, meeting.ID, 0)
	if err != nil {
		return models.Result{}, err
	}
	transcript := concatChunks(chunks, o.cfg.SummaryCharBudget)

	resp, err := o.llm.Complete(ctx, llm.Request{
		Model: o.cfg.Models[config.RoleSingleMeetingAnswer],
		SystemPrompt: "Answer the question using only the transcript below. If the transcript does not contain " +
			"the answer, say so plainly. Respond with a brief answer and nothing else.",
		UserPrompt:  fmt.Sprintf("Transcript:\n%s\n\nQuestion: %s", transcript, question),
		Temperature: 0.1,
		MaxTokens:   400,
	})
	if err != nil {
		return models.Result{}, err
	}
	return models.Result{
		Answer: resp.Text, Intent: models.AnswerExtractive, DataSource: models.DataSourceSemantic,
		SemanticAnswerUsed: true, SemanticConfidence: 0.6,
	}, nil
}

func concatChunks(chunks []models.Chunk, budget int) string {
	var b strings.Builder
	for _, c := range chunks {
		line := fmt.Sprintf("[%s]: %s\n", c.Speaker, c.Content)
		if budget > 0 && b.Len()+len(line) > budget {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func formatAttendees(internal, customer []string) string {
	var b strings.Builder
	b.WriteString("*Internal team*: ")
	b.WriteString(strings.Join(internal, ", "))
	b.WriteString("\n*Customer attendees*: ")
	b.WriteString(strings.Join(customer, ", "))
	return b.String()
}

func formatQAPairs(pairs []models.QAPair) string {
	var b strings.Builder
	for _, qa := range pairs {
		b.WriteString(fmt.Sprintf("- %s", qa.Question))
		if qa.AnswerEvidence != "" {
			b.WriteString(fmt.Sprintf(" — %s", qa.AnswerEvidence))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatActionItems(items []models.ActionItem) string {
	var b strings.Builder
	for _, a := range items {
		b.WriteString(fmt.Sprintf("- %s — %s (%s) — _%s_\n", a.Action, a.Owner, a.Deadline, a.Evidence))
	}
	return strings.TrimRight(b.String(), "\n")
}
