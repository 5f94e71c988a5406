// Package pipeline is the single entry point the chat backend calls. It runs
// the gates in a fixed order and turns each failure into a Decision with a
// user-facing message and a fixed risk tier:
//
//	identity -> input -> injection -> topic -> authorization (when an intent is given)
//
// Clarification is a separate, earlier call (NeedsClarification, or Evaluate
// which runs it first). Output sanitization is applied by the caller to the
// data it fetched after an allowed decision.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gzhole/talentguard/internal/config"
	"github.com/gzhole/talentguard/internal/guardian"
	"github.com/gzhole/talentguard/internal/identity"
	"github.com/gzhole/talentguard/internal/logger"
	"github.com/gzhole/talentguard/internal/metrics"
	"github.com/gzhole/talentguard/internal/patterns"
	"github.com/gzhole/talentguard/internal/policy"
	"github.com/gzhole/talentguard/internal/redact"
	"github.com/gzhole/talentguard/internal/risk"
)

// DenialKind classifies a denial. It is recorded in metrics and audit
// events, never shown to the user.
type DenialKind string

const (
	KindNone       DenialKind = ""
	KindIdentity   DenialKind = "identity"
	KindValidation DenialKind = "validation"
	KindThreat     DenialKind = "threat"
	KindScope      DenialKind = "scope"
	KindPolicy     DenialKind = "policy"
)

// Fixed risk tiers for each denial kind. Threat denials carry the computed
// injection score instead.
const (
	RiskIdentity   = 1.0
	RiskValidation = 0.8
	RiskScope      = 0.3
	RiskPolicy     = 0.5
)

const msgThreat = "I can't process that request."

// Request is one inbound utterance with the caller's claimed identity.
type Request struct {
	Query    string          `json:"query"`
	UserID   string          `json:"user_id"`
	Role     string          `json:"role"`
	TeamID   string          `json:"team_id"`
	Intent   string          `json:"intent,omitempty"`
	Resource policy.Resource `json:"target_resource,omitempty"`
}

// Decision is the pipeline's verdict.
type Decision struct {
	Allowed   bool       `json:"allowed"`
	Message   string     `json:"message"`
	RiskScore float64    `json:"risk_score"`
	Kind      DenialKind `json:"-"`

	// Gate is the identity reason, pattern ID or authorization gate behind a denial.
	Gate string `json:"-"`
}

// Outcome is the result of Evaluate.
type Outcome struct {
	RequestID    string   `json:"request_id"`
	Decision     Decision `json:"decision"`
	NeedsInput   bool     `json:"needs_input"`
	Question     string   `json:"question,omitempty"`
	AdvisoryRisk float64  `json:"advisory_risk"`
}

// Pipeline wires the gates together. It is immutable after New and safe for
// concurrent use.
type Pipeline struct {
	identity  *identity.Gate
	input     *guardian.InputValidator
	injection *guardian.InjectionDetector
	topic     *guardian.TopicGate
	clarify   *guardian.ClarificationGate
	policy    *policy.Engine
	sanitizer *redact.Sanitizer
	scorer    *risk.Scorer

	blockThreshold float64
	audit          logger.Auditor
	metrics        *metrics.Collector
	log            *zap.Logger
}

type options struct {
	cfg     *config.Config
	lib     *patterns.Library
	audit   logger.Auditor
	metrics *metrics.Collector
	log     *zap.Logger
}

// Option configures New.
type Option func(*options)

// WithConfig sets limits and thresholds. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option { return func(o *options) { o.cfg = cfg } }

// WithLibrary sets the pattern library. Defaults to patterns.Default().
func WithLibrary(lib *patterns.Library) Option { return func(o *options) { o.lib = lib } }

// WithAuditor sets the audit destination. Defaults to a no-op auditor.
func WithAuditor(a logger.Auditor) Option { return func(o *options) { o.audit = a } }

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Collector) Option { return func(o *options) { o.metrics = m } }

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// New builds a pipeline. All tables and patterns are compiled here.
func New(opts ...Option) *Pipeline {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if o.lib == nil {
		o.lib = patterns.Default()
	}
	if o.audit == nil {
		o.audit = logger.Nop()
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	cfg := o.cfg

	injection := guardian.NewInjectionDetector(o.lib, guardian.InjectionConfig{
		PatternWeight: cfg.Injection.PatternWeight,
		BulkVerbBoost: cfg.Injection.BulkVerbBoost,
		TotalityBoost: cfg.Injection.TotalityBoost,
		FlagThreshold: cfg.Injection.FlagThreshold,
	}, o.audit)

	blockThreshold := cfg.Injection.BlockThreshold
	if blockThreshold <= 0 {
		blockThreshold = guardian.DefaultBlockThreshold
	}

	p := &Pipeline{
		identity:  identity.NewGate(cfg.Identity.MinUserIDLength, o.audit),
		input:     guardian.NewInputValidator(o.lib, cfg.Limits.MaxInputLength, o.audit),
		injection: injection,
		topic:     guardian.NewTopicGate(o.lib, o.audit),
		clarify:   guardian.NewClarificationGate(o.lib),
		policy:    policy.NewEngine(o.audit),
		sanitizer: redact.NewSanitizer(o.lib.SensitiveFields(), cfg.Limits.MaxOutputRecords),
		scorer: risk.NewScorer(injection, risk.Config{
			HighDenialCount:   cfg.Risk.HighDenialCount,
			HighDenialPenalty: cfg.Risk.HighDenialPenalty,
			LowDenialCount:    cfg.Risk.LowDenialCount,
			LowDenialPenalty:  cfg.Risk.LowDenialPenalty,
			VolumeThreshold:   cfg.Risk.VolumeThreshold,
			VolumePenalty:     cfg.Risk.VolumePenalty,
		}),
		blockThreshold: blockThreshold,
		audit:          o.audit,
		metrics:        o.metrics,
		log:            o.log.With(zap.String("component", "pipeline")),
	}
	p.log.Debug("pipeline ready", zap.String("patterns", o.lib.Version()))
	return p
}

// Validate runs the gates in order and returns the first denial, or an
// allowed decision carrying the injection score.
func (p *Pipeline) Validate(req Request) Decision {
	return p.validate(req, p.identity.Check(req.UserID, req.Role, req.TeamID))
}

func (p *Pipeline) validate(req Request, id identity.Result) Decision {
	if !id.OK {
		return p.deny(KindIdentity, id.Reason, id.Message, RiskIdentity)
	}

	if res := p.input.Validate(req.Query); !res.OK {
		return p.deny(KindValidation, res.Pattern, res.Message, RiskValidation)
	}

	inj := p.injection.Score(req.Query)
	p.metrics.ObserveInjectionScore(inj.Score)
	if inj.IsInjection && inj.Score >= p.blockThreshold {
		return p.deny(KindThreat, "", msgThreat, inj.Score)
	}

	if res := p.topic.Check(req.Query); !res.OK {
		return p.deny(KindScope, res.Pattern, res.Message, RiskScope)
	}

	if req.Intent != "" {
		auth := p.policy.Authorize(policy.AuthRequest{
			Intent:   req.Intent,
			Role:     req.Role,
			UserID:   req.UserID,
			TeamID:   req.TeamID,
			Resource: req.Resource,
		})
		if !auth.Allowed {
			return p.deny(KindPolicy, string(auth.Gate), auth.Message, RiskPolicy)
		}
	}

	p.metrics.RecordDecision(true, "", "")
	return Decision{Allowed: true, RiskScore: inj.Score}
}

func (p *Pipeline) deny(kind DenialKind, gate, msg string, score float64) Decision {
	p.metrics.RecordDecision(false, string(kind), gate)
	return Decision{Message: msg, RiskScore: score, Kind: kind, Gate: gate}
}

// Evaluate is the full caller flow: identity, clarification, Validate,
// advisory risk and a request record in the audit trail. Clarification is
// only offered to a verified identity.
func (p *Pipeline) Evaluate(req Request, counters risk.SessionCounters) Outcome {
	out := Outcome{RequestID: uuid.NewString()}

	id := p.identity.Check(req.UserID, req.Role, req.TeamID)
	if id.OK {
		if c := p.NeedsClarification(req.Query, req.Role); c.Needed {
			out.NeedsInput = true
			out.Question = c.Question
			out.Decision = Decision{Message: c.Question}
			p.logRequest(out.RequestID, req, logger.DecisionClarify, 0)
			return out
		}
	}

	out.Decision = p.validate(req, id)
	out.AdvisoryRisk = p.scorer.Score(req.Query, counters)

	decision := logger.DecisionAllowed
	if !out.Decision.Allowed {
		decision = logger.DecisionDenied
		p.log.Debug("request denied",
			zap.String("request_id", out.RequestID),
			zap.String("kind", string(out.Decision.Kind)),
			zap.String("gate", out.Decision.Gate),
		)
	}
	p.logRequest(out.RequestID, req, decision, out.Decision.RiskScore)
	return out
}

func (p *Pipeline) logRequest(requestID string, req Request, decision string, score float64) {
	p.audit.LogRequest(logger.RequestRecord{
		RequestID:      requestID,
		UserID:         req.UserID,
		Role:           req.Role,
		Intent:         req.Intent,
		TargetResource: summarize(req.Resource),
		Decision:       decision,
		RiskScore:      score,
	})
}

func summarize(res policy.Resource) string {
	if len(res) == 0 {
		return ""
	}
	return fmt.Sprint(map[string]any(res))
}

// SanitizeOutput removes sensitive fields and caps list cardinality. It
// applies to every role.
func (p *Pipeline) SanitizeOutput(data any) any {
	out, st := p.sanitizer.SanitizeWithStats(data)
	p.metrics.RecordSanitize(st.FieldsDropped, st.RecordsTrimmed)
	return out
}

// Authorize runs only the three authorization gates.
func (p *Pipeline) Authorize(intent, role, userID, teamID string, res policy.Resource) policy.AuthResult {
	return p.policy.Authorize(policy.AuthRequest{
		Intent:   intent,
		Role:     role,
		UserID:   userID,
		TeamID:   teamID,
		Resource: res,
	})
}

// NeedsClarification reports whether query is too ambiguous for role.
func (p *Pipeline) NeedsClarification(query, role string) guardian.Clarification {
	c := p.clarify.Check(query, role)
	if c.Needed {
		p.metrics.RecordClarification()
		p.audit.LogSecurityEvent(logger.EventClarificationAsked, map[string]any{
			"role":  role,
			"query": logger.Truncate(query, 100),
		})
	}
	return c
}

// CalculateRisk returns the advisory risk score. It emits no audit events.
func (p *Pipeline) CalculateRisk(query string, counters risk.SessionCounters) float64 {
	return p.scorer.Score(query, counters)
}

// LogSecurityEvent forwards a caller event to the audit trail.
func (p *Pipeline) LogSecurityEvent(eventType string, details map[string]any) {
	p.audit.LogSecurityEvent(eventType, details)
}

// LogRequest records a request decision. The user id is cut to a short
// prefix and the resource summary to 50 characters before emission.
func (p *Pipeline) LogRequest(userID, role, intent, resourceSummary, decision string, riskScore float64) {
	p.audit.LogRequest(logger.RequestRecord{
		UserID:         userID,
		Role:           role,
		Intent:         intent,
		TargetResource: resourceSummary,
		Decision:       decision,
		RiskScore:      riskScore,
	})
}

// MaxInputLength returns the configured input bound.
func (p *Pipeline) MaxInputLength() int { return p.input.MaxLength() }
