// Package decision implements the Decision Layer (C7): the sole routing
// authority for a user turn. It calls a bounded, JSON-constrained LLM
// classifier, validates the reply, and expands the validated intent into
// a contract chain.
package decision

import (
	"context"
	"regexp"
	"strings"

	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/llm"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/rs/zerolog"
)

const classifierSystemPrompt = `You classify a Slack turn from an internal salesperson about recorded customer
meetings. Respond with ONLY a JSON object of this exact shape, no prose, no code fence:
{"intent": "SINGLE_MEETING|MULTI_MEETING|PRODUCT_KNOWLEDGE|EXTERNAL_RESEARCH|DOCUMENT_SEARCH|GENERAL_HELP|CLARIFY|REFUSE",
 "confidence": 0.0-1.0, "requiresSemantic": true|false, "meetingRelevance": 0.0-1.0, "researchRelevance": 0.0-1.0,
 "suggestedClarification": "optional string"}
Never decide purely on keyword matching — read the whole turn. When genuinely unsure, prefer GENERAL_HELP over guessing.`

// Classifier is the bounded LLM call the Decision Layer makes once per turn.
type Classifier struct {
	llm    llm.Client
	cfg    config.Config
	logger zerolog.Logger
}

// New builds a Classifier.
func New(client llm.Client, cfg config.Config) *Classifier {
	return &Classifier{llm: client, cfg: cfg, logger: logging.For("decision")}
}

// classifierReply is the fixed JSON schema the classifier prompt demands.
type classifierReply struct {
	Intent                  string  `json:"intent"`
	Confidence              float64 `json:"confidence"`
	RequiresSemantic        bool    `json:"requiresSemantic"`
	MeetingRelevance        float64 `json:"meetingRelevance"`
	ResearchRelevance       float64 `json:"researchRelevance"`
	SuggestedClarification  string  `json:"suggestedClarification"`
}

// Classify implements §4.6's algorithm end to end: call the classifier,
// validate its reply, expand the chain, and populate clarifyReason.
func (c *Classifier) Classify(ctx context.Context, userMessage string, threadContext string) (models.Classification, error) {
	reply, err := c.callClassifier(ctx, userMessage, threadContext)
	if err != nil {
		c.logger.Debug().Err(err).Msg("classifier call failed, defaulting to GENERAL_HELP")
		return fallback(), nil
	}

	intent := models.Intent(reply.Intent)
	if !intent.Valid() {
		c.logger.Debug().Str("raw_intent", reply.Intent).Msg("classifier returned unrecognized intent, defaulting to GENERAL_HELP")
		return fallback(), nil
	}

	classification := models.Classification{
		Intent:            intent,
		Confidence:        reply.Confidence,
		RequiresSemantic:  reply.RequiresSemantic,
		MeetingRelevance:  reply.MeetingRelevance,
		ResearchRelevance: reply.ResearchRelevance,
		ContractChain:     selectChain(intent, userMessage),
	}

	if reply.SuggestedClarification != "" && (intent == models.IntentClarify || reply.Confidence < lowConfidenceThreshold) {
		classification.ClarifyReason = reply.SuggestedClarification
	}

	return classification, nil
}

const lowConfidenceThreshold = 0.5

func fallback() models.Classification {
	return models.Classification{
		Intent:        models.IntentGeneralHelp,
		Confidence:    0,
		ContractChain: nil,
	}
}

func (c *Classifier) callClassifier(ctx context.Context, userMessage string, threadContext string) (classifierReply, error) {
	user := userMessage
	if threadContext != "" {
		user = threadContext + "\n\nLatest turn: " + userMessage
	}

	resp, err := c.llm.Complete(ctx, llm.Request{
		Model:        c.cfg.Models[config.RoleIntent],
		SystemPrompt: classifierSystemPrompt,
		UserPrompt:   user,
		JSONMode:     true,
		Temperature:  0,
		MaxTokens:    300,
	})
	if err != nil {
		return classifierReply{}, err
	}

	var reply classifierReply
	if err := llm.ExtractJSONObject(resp.Text, &reply); err != nil {
		return classifierReply{}, err
	}
	return reply, nil
}

var (
	patternKeyword = regexp.MustCompile(`\b(pattern|recurring)\b`)
	compareKeyword = regexp.MustCompile(`\b(compare|differ|difference)\b`)
	trendKeyword   = regexp.MustCompile(`\b(trend|over time)\b`)
	questionsKeyword = regexp.MustCompile(`\b(questions?|asked)\b`)
)

// selectChain implements §4.6 step 3: task-inference keywords refine which
// contract a MULTI_MEETING intent runs, never create new intents.
func selectChain(intent models.Intent, userMessage string) []models.Contract {
	switch intent {
	case models.IntentSingleMeeting:
		return []models.Contract{models.ContractExtractiveFact}
	case models.IntentProductKnowledge:
		return []models.Contract{models.ContractProductFact}
	case models.IntentExternalResearch:
		return []models.Contract{models.ContractExternalResearch}
	case models.IntentMultiMeeting:
		q := strings.ToLower(userMessage)
		switch {
		case compareKeyword.MatchString(q):
			return []models.Contract{models.ContractComparison}
		case trendKeyword.MatchString(q):
			return []models.Contract{models.ContractTrendSummary}
		case questionsKeyword.MatchString(q):
			return []models.Contract{models.ContractCrossMeetingQuestions}
		case patternKeyword.MatchString(q):
			return []models.Contract{models.ContractPatternAnalysis}
		default:
			return []models.Contract{models.ContractPatternAnalysis}
		}
	default:
		return nil
	}
}
