package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/logger"
	"go.uber.org/zap"
)

// ErrPolicyNotFound is returned by PolicyStore implementations when no
// active policy exists for the lookup key.
var ErrPolicyNotFound = errors.New("classification policy not found")

// PolicyStore looks up stored classification policies. An empty
// organizationID selects the global policy for the data type.
type PolicyStore interface {
	GetClassificationPolicy(ctx context.Context, dataType DataType, organizationID string) (*Policy, error)
}

// contentMinConfidence is the detection floor for content analysis. Low
// enough to include address matches, which still influence the PII signal.
const contentMinConfidence = 0.5

// Engine assigns a sensitivity level with encryption and retention rules to
// a resource. Classification is a pure read/compute path: persisting a
// Result is the caller's own storage call.
type Engine struct {
	detector *detect.Detector
	store    PolicyStore
	logger   *logger.Logger
}

// NewEngine creates a classification engine. store may be nil, in which
// case only the static default table is consulted.
func NewEngine(detector *detect.Detector, store PolicyStore, log *logger.Logger) *Engine {
	return &Engine{
		detector: detector,
		store:    store,
		logger:   log,
	}
}

// Classify decides the sensitivity level for a resource.
//
// Precedence: an explicit level wins over any policy; otherwise an active
// organization policy, then an active global policy, then the static
// per-data-type default. When content is supplied, escalation rules may
// raise (never lower) the level. Recordings and transcriptions are floored
// at confidential regardless of everything else, explicit levels included.
func (e *Engine) Classify(ctx context.Context, req Request) Result {
	var (
		level   Level
		reason  string
		signals Signals
		policy  *Policy
	)

	if req.ExplicitLevel != "" && req.ExplicitLevel.Valid() {
		level, reason = req.ExplicitLevel, "explicit"
	} else {
		level, reason, policy = e.baseLevel(ctx, req)
		if req.Content != "" {
			signals = AnalyzeContent(e.detector, req.Content, contentMinConfidence)
			level, reason = escalate(level, reason, signals)
		}
	}

	// Recordings and transcriptions originate from patient conversations
	// and are never classified below confidential.
	if req.DataType == DataTypeRecording || req.DataType == DataTypeTranscription {
		if level.Rank() < LevelConfidential.Rank() {
			level = LevelConfidential
		}
		reason += "; healthcare source data"
	}

	return finalize(level, reason, signals, policy)
}

// baseLevel resolves the pre-escalation level from stored policies or the
// static default table, returning the matched policy when there is one.
// Store failures degrade to the default table with a logged warning;
// classification never blocks the calling pipeline.
func (e *Engine) baseLevel(ctx context.Context, req Request) (Level, string, *Policy) {
	if e.store != nil {
		policy, err := e.lookupPolicy(ctx, req.DataType, req.OrganizationID)
		if err == nil && policy != nil {
			scope := "organization policy"
			if policy.OrganizationID == "" {
				scope = "global policy"
			}
			return policy.Level, scope, policy
		}
		if err != nil && !errors.Is(err, ErrPolicyNotFound) {
			e.logger.Warn("classification policy lookup failed, using default table",
				zap.String("data_type", string(req.DataType)),
				zap.String("organization_id", req.OrganizationID),
				zap.Error(err),
			)
		}
	}

	return DefaultLevel(req.DataType), fmt.Sprintf("default for %s", req.DataType), nil
}

// lookupPolicy tries the organization-scoped policy first, then the global
// one.
func (e *Engine) lookupPolicy(ctx context.Context, dataType DataType, organizationID string) (*Policy, error) {
	if organizationID != "" {
		policy, err := e.store.GetClassificationPolicy(ctx, dataType, organizationID)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, ErrPolicyNotFound) {
			return nil, err
		}
	}
	return e.store.GetClassificationPolicy(ctx, dataType, "")
}

// escalate applies the content-signal rules in fixed order. The level only
// ever moves up relative to the base.
func escalate(level Level, reason string, signals Signals) (Level, string) {
	switch {
	case signals.HasPHI:
		if level.Rank() < LevelRestricted.Rank() {
			level = LevelRestricted
		}
		reason += "; escalated: PHI detected"
	case signals.HasPII && level == LevelInternal:
		level = LevelConfidential
		reason += "; escalated: PII detected"
	case signals.HasFinancialData && level != LevelRestricted:
		if level.Rank() < LevelConfidential.Rank() {
			level = LevelConfidential
		}
		reason += "; escalated: financial data detected"
	}
	return level, reason
}

// finalize attaches the level's encryption and retention rules. A stored
// policy for the data type may carry a longer retention term of its own
// (consent records keep 3650 days that way).
func finalize(level Level, reason string, signals Signals, policy *Policy) Result {
	rules := RulesFor(level)
	result := Result{
		Level:               level,
		RequiresEncryption:  rules.RequiresEncryption,
		EncryptionAlgorithm: rules.EncryptionAlgorithm,
		RetentionDays:       rules.RetentionDays,
		Reason:              reason,
		Signals:             signals,
	}

	if policy != nil && policy.RetentionDays > result.RetentionDays {
		result.RetentionDays = policy.RetentionDays
	}
	return result
}
