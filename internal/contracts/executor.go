// Package contracts implements the Contract Executor (C6): runs a chain of
// contracts in strict declared order, accumulating context from one
// contract into the next, and emits a decision log entry for every
// contract it runs.
package contracts

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/external"
	"github.com/meetingbrain/assistant/internal/llm"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/meetingbrain/assistant/internal/resolver"
	"github.com/meetingbrain/assistant/internal/store"
)

var tracer = otel.Tracer("contracts")

const authorityRefusal = "I can't provide authoritative product information without verified product documentation."
const researchUnavailable = "I don't have web research configured, so I can't answer that from outside the meetings I have."

// Executor runs a validated contract chain over a resolved meeting set.
type Executor struct {
	store      store.ArtifactStore
	answerer   resolver.SingleMeetingAnswerer
	llm        llm.Client
	kb         external.ProductKnowledgeService
	researcher external.WebResearcher
	cfg        config.Config
	logger     zerolog.Logger
}

// New builds an Executor. kb and researcher may both be nil — a contract
// with ssotMode=authoritative will then always fail its authority gate, and
// EXTERNAL_RESEARCH will always refuse, which is the correct behavior per
// §4.5 when neither collaborator is configured.
func New(st store.ArtifactStore, answerer resolver.SingleMeetingAnswerer, client llm.Client, kb external.ProductKnowledgeService, researcher external.WebResearcher, cfg config.Config) *Executor {
	return &Executor{store: st, answerer: answerer, llm: client, kb: kb, researcher: researcher, cfg: cfg, logger: logging.For("contracts")}
}

// Execute implements §4.5: for every contract in chain, in order, compute
// constraints, gate on authority and evidence threshold, fetch evidence,
// execute, apply the empty-result policy, and pipe the output into the
// next contract as previousContext.
func (e *Executor) Execute(ctx context.Context, chain []models.Contract, userMessage string, meetings []models.MeetingContext, topic string) (models.ExecutorResult, error) {
	var previousContext string
	var log []models.DecisionLogEntry
	var citations []models.Citation
	var finalOutput string

	for _, contract := range chain {
		constraints := contract.Constraints()
		entry := models.DecisionLogEntry{Contract: contract, Authority: constraints.SSOTMode}
		contractCtx, span := tracer.Start(ctx, "contracts.execute_contract", trace.WithAttributes(
			attribute.String("contract", string(contract)),
			attribute.Int("meeting_count", len(meetings)),
		))

		// 2. Authority gate.
		if constraints.SSOTMode == models.SSOTAuthoritative {
			snap, ok := e.verifiedSnapshot(contractCtx)
			if !ok {
				entry.ExecutionOutcome = models.OutcomeShortCircuitRefuse
				entry.AuthorityValidated = false
				log = append(log, entry)
				finalOutput = authorityRefusal
				previousContext = finalOutput
				endSpan(span, entry)
				continue
			}
			entry.AuthorityValidated = true
			previousContext = e.appendProductFact(contractCtx, contract, userMessage, snap)
			finalOutput = previousContext
			entry.ExecutionOutcome = models.OutcomeExecuted
			log = append(log, entry)
			endSpan(span, entry)
			continue
		}

		// Research gate: EXTERNAL_RESEARCH never touches the meeting
		// evidence path — it delegates straight to the web research
		// collaborator, which is optional.
		if contract == models.ContractExternalResearch {
			output, resultCitations, ok := e.research(contractCtx, userMessage, topic)
			if !ok {
				entry.ExecutionOutcome = models.OutcomeShortCircuitRefuse
				log = append(log, entry)
				finalOutput = researchUnavailable
				previousContext = finalOutput
				endSpan(span, entry)
				continue
			}
			citations = append(citations, resultCitations...)
			entry.ExecutionOutcome = models.OutcomeExecuted
			log = append(log, entry)
			finalOutput = output
			previousContext = output
			endSpan(span, entry)
			continue
		}

		// 3. Evidence threshold.
		if constraints.MinEvidenceThreshold > len(meetings) && constraints.EmptyResultBehavior == models.EmptyClarify {
			entry.ExecutionOutcome = models.OutcomeEvidenceThresholdNotMet
			log = append(log, entry)
			finalOutput = fmt.Sprintf(
				"This needs at least %d %s to answer reliably, but only %d %s matched. Could you narrow or widen the request?",
				constraints.MinEvidenceThreshold, english.PluralWord(constraints.MinEvidenceThreshold, "meeting", ""),
				len(meetings), english.PluralWord(len(meetings), "meeting", ""),
			)
			previousContext = finalOutput
			endSpan(span, entry)
			continue
		}

		// 4. Fetch actual evidence.
		evidenceCount, contributingMeetings, evidenceText := e.fetchEvidence(contractCtx, contract, meetings)
		entry.EvidenceCount = evidenceCount
		entry.MeetingsContributing = contributingMeetings

		// 6. Empty-result policy.
		if evidenceCount == 0 {
			switch constraints.EmptyResultBehavior {
			case models.EmptyRefuse:
				entry.ExecutionOutcome = models.OutcomeEmptyEvidence
				log = append(log, entry)
				finalOutput = fmt.Sprintf("I couldn't find any discussion about '%s' in the %d %s I searched.",
					describeTopic(topic, userMessage), len(meetings), english.PluralWord(len(meetings), "meeting", ""))
				previousContext = finalOutput
				endSpan(span, entry)
				continue
			case models.EmptyClarify:
				entry.ExecutionOutcome = models.OutcomeEmptyEvidence
				log = append(log, entry)
				finalOutput = fmt.Sprintf("I couldn't find anything on that — would you like to try different terms?")
				previousContext = finalOutput
				endSpan(span, entry)
				continue
			}
			// EmptyIgnore falls through to normal execution with empty evidence.
		}

		// 5. Execute.
		excerpts, results, err := resolver.SearchAcrossMeetings(contractCtx, e.store, e.answerer, meetings, topic, userMessage)
		if err != nil {
			span.End()
			return models.ExecutorResult{}, err
		}

		var output string
		if constraints.IsSynthesis {
			output, err = e.synthesize(contractCtx, contract, userMessage, meetings, evidenceText, excerpts, results, previousContext)
			if err != nil {
				span.End()
				return models.ExecutorResult{}, err
			}
		} else {
			output = renderEvidence(evidenceText, excerpts, results)
		}

		if constraints.RequiresCitation && e.kb != nil {
			// Product-fact contracts route through appendProductFact above;
			// this path covers any future non-authoritative cited contract.
			citations = append(citations, models.Citation{Source: "product_knowledge"})
		}

		entry.ExecutionOutcome = models.OutcomeExecuted
		log = append(log, entry)
		finalOutput = output
		previousContext = output
		endSpan(span, entry)
	}

	return models.ExecutorResult{FinalOutput: finalOutput, ChainResults: log, Citations: citations}, nil
}

// endSpan records the chain entry's outcome on its contract span before
// closing it, so the decision log (§4.5) is inspectable externally, not
// just in-process.
func endSpan(span trace.Span, entry models.DecisionLogEntry) {
	span.SetAttributes(
		attribute.String("execution_outcome", string(entry.ExecutionOutcome)),
		attribute.Bool("authority_validated", entry.AuthorityValidated),
		attribute.Int("evidence_count", entry.EvidenceCount),
	)
	span.End()
}

// verifiedSnapshot returns the product knowledge snapshot and whether it
// counts as a verified SSOT: the service must be configured AND must have
// actually returned verified data, per §4.5's authority gate.
func (e *Executor) verifiedSnapshot(ctx context.Context) (external.ProductKnowledge, bool) {
	if e.kb == nil {
		return external.ProductKnowledge{}, false
	}
	snap, err := e.kb.Snapshot(ctx)
	if err != nil || !snap.Verified || len(snap.Facts) == 0 {
		return external.ProductKnowledge{}, false
	}
	return snap, true
}

func (e *Executor) appendProductFact(ctx context.Context, contract models.Contract, userMessage string, snap external.ProductKnowledge) string {
	resp, err := e.llm.Complete(ctx, llm.Request{
		Model: e.cfg.Models[config.RoleKBAssessment],
		SystemPrompt: "Answer using only the verified product facts below. Do not invent anything not present " +
			"in this list.",
		UserPrompt:  fmt.Sprintf("Product facts (as of %s):\n%s\n\nQuestion: %s", snap.AsOf, strings.Join(snap.Facts, "\n"), userMessage),
		Temperature: 0.1,
		MaxTokens:   600,
	})
	if err != nil {
		e.logger.Debug().Err(err).Msg("product fact contract LLM call failed")
		return authorityRefusal
	}
	return resp.Text
}

// research calls the web research collaborator and turns its result into
// rendered prose plus citations, per RequiresCitation on EXTERNAL_RESEARCH.
// A nil researcher, a transport error, or a zero-confidence reply are all
// treated as "not available" rather than an error — the caller degrades to
// an explicit refusal instead of fabricating an answer.
func (e *Executor) research(ctx context.Context, userMessage string, topic string) (string, []models.Citation, bool) {
	if e.researcher == nil {
		return "", nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.WebSearchTimeout)
	defer cancel()
	result, err := e.researcher.Research(ctx, userMessage, "", topic)
	if err != nil || result.Confidence == 0 || result.Answer == "" {
		e.logger.Debug().Err(err).Msg("web research call failed or returned nothing")
		return "", nil, false
	}

	citations := make([]models.Citation, 0, len(result.Citations))
	for _, c := range result.Citations {
		citations = append(citations, models.Citation{Source: c.Source, URL: c.URL, Date: c.Date, Snippet: c.Snippet})
	}
	return result.Answer, citations, true
}

// fetchEvidence implements §4.5 step 4: QAPairs for CUSTOMER_QUESTIONS/
// CROSS_MEETING_QUESTIONS, attendees for ATTENDEES, otherwise the meeting
// set itself.
func (e *Executor) fetchEvidence(ctx context.Context, contract models.Contract, meetings []models.MeetingContext) (count int, contributingMeetings int, text string) {
	switch contract {
	case models.ContractCustomerQuestions, models.ContractCrossMeetingQuestions:
		var b strings.Builder
		contributors := map[string]bool{}
		for _, mc := range meetings {
			qaPairs, err := e.store.GetQAPairsByTranscript(ctx, mc.MeetingID)
			if err != nil || len(qaPairs) == 0 {
				continue
			}
			contributors[mc.MeetingID] = true
			for _, qa := range qaPairs {
				count++
				fmt.Fprintf(&b, "[%s] %s\n", mc.CompanyName, qa.Question)
			}
		}
		return count, len(contributors), b.String()

	case models.ContractAttendees:
		var b strings.Builder
		contributors := map[string]bool{}
		for _, mc := range meetings {
			meeting, err := e.store.GetTranscriptByID(ctx, mc.MeetingID)
			if err != nil {
				continue
			}
			if len(meeting.InternalTeam) == 0 && len(meeting.CustomerNames) == 0 {
				continue
			}
			contributors[mc.MeetingID] = true
			count++
			fmt.Fprintf(&b, "[%s] internal: %s; customer: %s\n", mc.CompanyName,
				strings.Join(meeting.InternalTeam, ", "), strings.Join(meeting.CustomerNames, ", "))
		}
		return count, len(contributors), b.String()

	default:
		return len(meetings), len(meetings), ""
	}
}

// synthesize implements the second LLM call PATTERN_ANALYSIS, TREND_SUMMARY,
// and CROSS_MEETING_QUESTIONS all require: it asks for an analytical
// answer grounded only in the gathered evidence, qualified by how many
// meetings and companies actually contributed.
func (e *Executor) synthesize(ctx context.Context, contract models.Contract, userMessage string, meetings []models.MeetingContext, evidenceText string, excerpts []store.ChunkExcerpt, results []models.Result, previousContext string) (string, error) {
	evidence := renderEvidence(evidenceText, excerpts, results)
	if evidence == "" {
		evidence = "(no transcript evidence was retrieved)"
	}

	companies := map[string]bool{}
	for _, mc := range meetings {
		companies[mc.CompanyID] = true
	}
	qualifier := coverageQualifier(len(meetings), len(companies))

	system := fmt.Sprintf(
		"You answer %s questions from recorded sales meetings. Use only the evidence provided. "+
			"Never invent a date, a meeting, or a quote. %s",
		contract, qualifier,
	)

	var user strings.Builder
	if previousContext != "" {
		fmt.Fprintf(&user, "Prior turn's answer, for continuity:\n%s\n\n", previousContext)
	}
	fmt.Fprintf(&user, "Evidence from %d meeting(s) across %d compan(ies):\n%s\n\nQuestion: %s",
		len(meetings), len(companies), evidence, userMessage)

	resp, err := e.llm.Complete(ctx, llm.Request{
		Model:        e.cfg.Models[config.RoleMultiMeetingSynth],
		SystemPrompt: system,
		UserPrompt:   user.String(),
		Temperature:  0.2,
		MaxTokens:    900,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// coverageQualifier implements §4.5's sample-size hedging: a claim drawn
// from a thin sample must say so rather than reading as a confident trend.
func coverageQualifier(meetingCount, companyCount int) string {
	switch {
	case meetingCount <= 2 || companyCount <= 1:
		return "This is a small sample — hedge any claim and say explicitly how many meetings it's based on."
	case meetingCount <= 5 || companyCount <= 2:
		return "Qualify claims with the sample size behind them (e.g. \"in 2 of 5 meetings\")."
	default:
		return "The sample is large enough to support an analytical claim, but still cite the sample size."
	}
}

func describeTopic(topic, fallback string) string {
	if topic != "" {
		return topic
	}
	return fallback
}

func renderEvidence(evidenceText string, excerpts []store.ChunkExcerpt, results []models.Result) string {
	if evidenceText != "" {
		return evidenceText
	}
	var b strings.Builder
	for _, ex := range excerpts {
		fmt.Fprintf(&b, "[%s] %s: %s\n", ex.MeetingID, ex.Speaker, ex.Excerpt)
	}
	for _, r := range results {
		if r.Answer != "" {
			b.WriteString(r.Answer)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
