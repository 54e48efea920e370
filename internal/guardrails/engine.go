package guardrails

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/logger"
	"github.com/Inovico-app/inovy-sub006/internal/redact"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPolicyNotFound is returned by PolicyStore implementations when no
// policy exists for the lookup key.
var ErrPolicyNotFound = errors.New("guardrails policy not found")

// PolicyStore is the persistence contract the engine needs: policy lookups
// (read-mostly, served from a cache in production) and append-only
// violation inserts.
type PolicyStore interface {
	GetPolicy(ctx context.Context, scope Scope, scopeID string) (*Policy, error)
	InsertViolation(ctx context.Context, violation *Violation) error
}

// PolicyKey identifies one policy in the resolution order.
type PolicyKey struct {
	Scope   Scope
	ScopeID string
}

// PrecedenceOrder returns the policy lookup order for a message:
// project, then organization, then the seeded default.
func PrecedenceOrder(organizationID, projectID string) []PolicyKey {
	var order []PolicyKey
	if projectID != "" {
		order = append(order, PolicyKey{Scope: ScopeProject, ScopeID: projectID})
	}
	if organizationID != "" {
		order = append(order, PolicyKey{Scope: ScopeOrganization, ScopeID: organizationID})
	}
	return append(order, PolicyKey{Scope: ScopeDefault})
}

// piiMinConfidence is the detection floor for the PII guard.
const piiMinConfidence = 0.5

// defaultHallucinationTimeout bounds the verification call so the engine
// never blocks a chat turn indefinitely.
const defaultHallucinationTimeout = 10 * time.Second

// Engine evaluates chat turns against the effective guardrail policy. All
// state is immutable after construction, so one engine serves concurrent
// evaluations.
type Engine struct {
	store                PolicyStore
	detector             *detect.Detector
	jailbreak            JailbreakDetector
	toxicity             ToxicityScorer
	hallucination        HallucinationChecker
	hallucinationTimeout time.Duration
	logger               *logger.Logger
}

// NewEngine creates an engine with the built-in keyword detectors and no
// hallucination checker (the hallucination guard is skipped until one is
// plugged in).
func NewEngine(store PolicyStore, detector *detect.Detector, log *logger.Logger) *Engine {
	return &Engine{
		store:                store,
		detector:             detector,
		jailbreak:            NewKeywordJailbreakDetector(),
		toxicity:             NewKeywordToxicityScorer(),
		hallucinationTimeout: defaultHallucinationTimeout,
		logger:               log,
	}
}

// SetJailbreakDetector replaces the default jailbreak detector. Call before
// serving traffic.
func (e *Engine) SetJailbreakDetector(d JailbreakDetector) { e.jailbreak = d }

// SetToxicityScorer replaces the default toxicity scorer. Call before
// serving traffic.
func (e *Engine) SetToxicityScorer(s ToxicityScorer) { e.toxicity = s }

// SetHallucinationChecker enables the hallucination guard. Call before
// serving traffic.
func (e *Engine) SetHallucinationChecker(c HallucinationChecker, timeout time.Duration) {
	e.hallucination = c
	if timeout > 0 {
		e.hallucinationTimeout = timeout
	}
}

// Evaluate runs the configured guards over one message and returns the
// decision the chat collaborator must honor. Guards run in fixed order
// (PII, jailbreak, toxicity, hallucination); a blocking guard stops
// evaluation, a redacting guard transforms the text but later guards still
// see the original, a warning guard only records. Every triggered guard
// produces one appended violation even when evaluation stops early.
func (e *Engine) Evaluate(ctx context.Context, msg Message) Decision {
	decision := Decision{Allowed: true, TransformedText: msg.Text}

	policy, degraded := e.resolvePolicy(ctx, msg)
	if !policy.Enabled {
		return decision
	}

	for _, g := range guardsOf(policy) {
		if !g.enabled() {
			continue
		}
		// The hallucination guard verifies model output against source
		// context; there is nothing for it to verify on the way in.
		if g.name() == GuardHallucination && msg.Direction != DirectionOutput {
			continue
		}

		// Policy-store failure asymmetry: a missing policy must never
		// silently disable a blocking control, while warn-configured guards
		// may fail open with a log line.
		if degraded {
			if g.action() == ActionBlock {
				violation := e.recordViolation(ctx, msg, g.name(), ActionTakenBlocked,
					"policy store unavailable, failing closed")
				decision.Violations = append(decision.Violations, violation)
				decision.Allowed = false
				return decision
			}
			e.logger.Warn("policy store unavailable, guard failing open",
				zap.String("guard", g.name()),
				zap.String("action", string(g.action())),
			)
			continue
		}

		result := e.evaluateGuard(ctx, g, msg)
		if !result.triggered {
			continue
		}

		action := g.action()
		if result.forceWarn {
			action = ActionWarn
		}

		violation := e.recordViolation(ctx, msg, g.name(), actionTakenFor(action), result.details)
		decision.Violations = append(decision.Violations, violation)

		switch action {
		case ActionBlock:
			decision.Allowed = false
			return decision
		case ActionRedact:
			decision.TransformedText = e.applyRedaction(decision.TransformedText, result)
		case ActionWarn:
			// recorded, nothing else to do
		}
	}

	return decision
}

// resolvePolicy walks the precedence order and returns the first policy
// found. Not-found moves to the next scope; a store error marks the
// evaluation degraded and the seeded default config is used as the
// fail-closed baseline.
func (e *Engine) resolvePolicy(ctx context.Context, msg Message) (Policy, bool) {
	degraded := false

	for _, key := range PrecedenceOrder(msg.OrganizationID, msg.ProjectID) {
		policy, err := e.store.GetPolicy(ctx, key.Scope, key.ScopeID)
		if err == nil && policy != nil {
			return *policy, false
		}
		if err != nil && !errors.Is(err, ErrPolicyNotFound) {
			e.logger.Error("guardrails policy lookup failed",
				zap.String("scope", string(key.Scope)),
				zap.String("scope_id", key.ScopeID),
				zap.Error(err),
			)
			degraded = true
		}
	}

	return DefaultPolicy(), degraded
}

// guardResult is the outcome of evaluating one guard against one message.
type guardResult struct {
	triggered bool
	details   string
	// spans are the offending character ranges in the original text, set by
	// guards that can localize what they found.
	spans []redact.Range
	// forceWarn downgrades the configured action to warn, used when a
	// detector failed and blocking on a guess would be wrong while silently
	// allowing would lose the record.
	forceWarn bool
}

// evaluateGuard dispatches on the guard variant. The type switch is
// exhaustive over the closed set; a new variant that is not handled here
// trips the DPanic in development builds.
func (e *Engine) evaluateGuard(ctx context.Context, g guard, msg Message) guardResult {
	switch g := g.(type) {
	case piiGuard:
		detections := e.detector.Detect(msg.Text, piiMinConfidence)
		remaining := filterAllowed(detections, g.cfg.EntityAllowList)
		if len(remaining) == 0 {
			return guardResult{}
		}
		return guardResult{
			triggered: true,
			details:   fmt.Sprintf("detected %d sensitive entities: %v", len(remaining), detect.Types(remaining)),
			spans:     redact.Spans(remaining),
		}

	case jailbreakGuard:
		triggered, matched, err := e.jailbreak.Check(ctx, msg.Text)
		if err != nil {
			return e.detectorFailure(g, "jailbreak detector failed", err)
		}
		if !triggered {
			return guardResult{}
		}
		return guardResult{
			triggered: true,
			details:   fmt.Sprintf("jailbreak pattern matched: %q", matched),
		}

	case toxicityGuard:
		score, err := e.toxicity.Score(ctx, msg.Text)
		if err != nil {
			return e.detectorFailure(g, "toxicity scorer failed", err)
		}
		if score < g.threshold() {
			return guardResult{}
		}
		return guardResult{
			triggered: true,
			details:   fmt.Sprintf("toxicity score %.2f above threshold %.2f", score, g.threshold()),
		}

	case hallucinationGuard:
		if e.hallucination == nil {
			return guardResult{}
		}
		checkCtx, cancel := context.WithTimeout(ctx, e.hallucinationTimeout)
		defer cancel()

		unsupported, details, err := e.hallucination.Check(checkCtx, msg.Text, msg.SourceContext)
		if err != nil {
			// Fail closed to warn: the turn proceeds but the audit trail
			// keeps the record, and the engine never waits past its budget.
			e.logger.Warn("hallucination verification failed, downgrading to warn", zap.Error(err))
			return guardResult{
				triggered: true,
				details:   fmt.Sprintf("verification unavailable: %v", err),
				forceWarn: true,
			}
		}
		if !unsupported {
			return guardResult{}
		}
		return guardResult{triggered: true, details: details}

	default:
		e.logger.DPanic("unhandled guard variant", zap.String("guard", g.name()))
		return guardResult{}
	}
}

// detectorFailure applies the fail-closed asymmetry to a broken detector:
// block-configured guards trigger as blocked, everything else triggers as a
// warn so the failure is recorded without punishing the user for an
// internal fault.
func (e *Engine) detectorFailure(g guard, what string, err error) guardResult {
	e.logger.Error(what, zap.String("guard", g.name()), zap.Error(err))
	return guardResult{
		triggered: true,
		details:   fmt.Sprintf("%s: %v", what, err),
		forceWarn: g.action() != ActionBlock,
	}
}

// applyRedaction rewrites the offending spans, or the whole text for guards
// that cannot localize what they matched.
func (e *Engine) applyRedaction(text string, result guardResult) string {
	if len(result.spans) == 0 {
		return redact.DefaultPlaceholder
	}
	return redact.Apply(text, result.spans, redact.DefaultPlaceholder)
}

// recordViolation appends one audit record. Insert failures are logged and
// never fail the decision: losing a write must not take down the pipeline,
// and the violation still travels with the returned decision.
func (e *Engine) recordViolation(ctx context.Context, msg Message, guardName string, actionTaken ActionTaken, details string) Violation {
	violation := Violation{
		ID:             uuid.NewString(),
		OrganizationID: msg.OrganizationID,
		ProjectID:      msg.ProjectID,
		UserID:         msg.UserID,
		ViolationType:  guardName,
		Direction:      msg.Direction,
		ActionTaken:    actionTaken,
		Severity:       severityFor(guardName, actionTaken),
		GuardName:      guardName,
		Details:        details,
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.store.InsertViolation(ctx, &violation); err != nil {
		e.logger.Error("failed to persist guardrails violation",
			zap.String("violation_id", violation.ID),
			zap.String("guard", guardName),
			zap.Error(err),
		)
	}

	return violation
}

// actionTakenFor maps a configured action to the recorded outcome.
func actionTakenFor(action Action) ActionTaken {
	switch action {
	case ActionBlock:
		return ActionTakenBlocked
	case ActionRedact:
		return ActionTakenRedacted
	case ActionWarn:
		return ActionTakenWarned
	default:
		return ActionTakenPassed
	}
}

// filterAllowed drops detections whose entity type is on the policy's allow
// list.
func filterAllowed(detections []detect.Detection, allowList []detect.EntityType) []detect.Detection {
	if len(allowList) == 0 {
		return detections
	}
	allowed := make(map[detect.EntityType]bool, len(allowList))
	for _, t := range allowList {
		allowed[t] = true
	}
	var remaining []detect.Detection
	for _, det := range detections {
		if !allowed[det.EntityType] {
			remaining = append(remaining, det)
		}
	}
	return remaining
}
