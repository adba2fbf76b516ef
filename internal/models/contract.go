package models

// Contract is the closed enum describing the shape of a requested answer.
// It is the unit the Contract Executor chains and the Single-Meeting
// Orchestrator dispatches on.
type Contract string

const (
	ContractExtractiveFact        Contract = "EXTRACTIVE_FACT"
	ContractAttendees             Contract = "ATTENDEES"
	ContractCustomerQuestions     Contract = "CUSTOMER_QUESTIONS"
	ContractNextSteps             Contract = "NEXT_STEPS"
	ContractAggregativeList       Contract = "AGGREGATIVE_LIST"
	ContractMeetingSummary        Contract = "MEETING_SUMMARY"
	ContractDraftFollowUp         Contract = "DRAFT_FOLLOW_UP_EMAIL"
	ContractDraftProposal         Contract = "DRAFT_PROPOSAL_NOTES"
	ContractPatternAnalysis       Contract = "PATTERN_ANALYSIS"
	ContractComparison            Contract = "COMPARISON"
	ContractTrendSummary          Contract = "TREND_SUMMARY"
	ContractCrossMeetingQuestions Contract = "CROSS_MEETING_QUESTIONS"
	ContractProductFact           Contract = "PRODUCT_FACT"
	ContractExternalResearch      Contract = "EXTERNAL_RESEARCH"
)

// SSOTMode describes the authority a contract claims over its answer.
type SSOTMode string

const (
	SSOTNone          SSOTMode = "none"
	SSOTArtifact      SSOTMode = "artifact"
	SSOTAuthoritative SSOTMode = "authoritative"
)

// ResponseFormat is the rendering shape expected of a contract's output.
type ResponseFormat string

const (
	FormatProse ResponseFormat = "prose"
	FormatList  ResponseFormat = "list"
)

// EmptyResultBehavior governs what a contract does when its evidence fetch
// comes back empty.
type EmptyResultBehavior string

const (
	EmptyRefuse  EmptyResultBehavior = "refuse"
	EmptyClarify EmptyResultBehavior = "clarify"
	EmptyIgnore  EmptyResultBehavior = "ignore"
)

// ContractConstraints is the fixed policy attached to a contract: how much
// authority it can claim, what evidence it needs, and what happens when
// that evidence isn't there.
type ContractConstraints struct {
	SSOTMode            SSOTMode
	ResponseFormat      ResponseFormat
	RequiresCitation    bool
	MinEvidenceThreshold int // 0 means "no minimum"
	EmptyResultBehavior EmptyResultBehavior
	IsSynthesis         bool // PATTERN_ANALYSIS, TREND_SUMMARY, CROSS_MEETING_QUESTIONS
}

// ContractTable is the closed, static mapping from contract to its
// constraints. It is consulted by the Contract Executor before every
// contract in a chain runs; there is no runtime mutation of this table.
var ContractTable = map[Contract]ContractConstraints{
	ContractExtractiveFact: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractAttendees: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatList,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractCustomerQuestions: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatList,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractNextSteps: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatList,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractAggregativeList: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatList,
		EmptyResultBehavior: EmptyClarify,
	},
	ContractMeetingSummary: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractDraftFollowUp: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractDraftProposal: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		EmptyResultBehavior: EmptyIgnore,
	},
	ContractPatternAnalysis: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		MinEvidenceThreshold: 2, EmptyResultBehavior: EmptyClarify, IsSynthesis: true,
	},
	ContractComparison: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		MinEvidenceThreshold: 2, EmptyResultBehavior: EmptyClarify,
	},
	ContractTrendSummary: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse,
		MinEvidenceThreshold: 3, EmptyResultBehavior: EmptyClarify, IsSynthesis: true,
	},
	ContractCrossMeetingQuestions: {
		SSOTMode: SSOTArtifact, ResponseFormat: FormatProse, RequiresCitation: false,
		MinEvidenceThreshold: 1, EmptyResultBehavior: EmptyRefuse, IsSynthesis: true,
	},
	ContractProductFact: {
		SSOTMode: SSOTAuthoritative, ResponseFormat: FormatProse, RequiresCitation: true,
		EmptyResultBehavior: EmptyRefuse,
	},
	ContractExternalResearch: {
		SSOTMode: SSOTNone, ResponseFormat: FormatProse, RequiresCitation: true,
		EmptyResultBehavior: EmptyRefuse,
	},
}

// Constraints looks up a contract's constraints, returning the zero value
// (empty SSOTMode and EmptyResultBehavior, no minimum) for an unrecognized
// contract — callers
// that hit the zero value for a contract they expected to be real should
// treat it as a programmer error per the error-handling design.
func (c Contract) Constraints() ContractConstraints {
	return ContractTable[c]
}

// ExecutionOutcome is the per-contract disposition recorded in the decision
// log.
type ExecutionOutcome string

const (
	OutcomeExecuted                  ExecutionOutcome = "executed"
	OutcomeShortCircuitClarify       ExecutionOutcome = "short_circuit_clarify"
	OutcomeShortCircuitRefuse        ExecutionOutcome = "short_circuit_refuse"
	OutcomeEvidenceThresholdNotMet   ExecutionOutcome = "evidence_threshold_not_met"
	OutcomeEmptyEvidence             ExecutionOutcome = "empty_evidence"
)

// DecisionLogEntry records, per contract executed in a chain, enough detail
// to answer "why did it answer (or refuse) the way it did" after the fact.
type DecisionLogEntry struct {
	Contract         Contract
	Authority        SSOTMode
	AuthorityValidated bool
	EvidenceCount    int
	MeetingsContributing int
	ExecutionOutcome ExecutionOutcome
}

// ChainTable maps a validated intent plus task-inference keywords to the
// ordered contract chain the Contract Executor will run. No value of this
// type is built anywhere: internal/decision's selectChain maps intents to
// chains with a switch.
type ChainTable = map[Intent][]Contract
