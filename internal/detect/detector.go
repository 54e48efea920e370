package detect

import (
	"sort"
	"strings"

	"github.com/Inovico-app/inovy-sub006/internal/logger"
	"go.uber.org/zap"
)

// Detector scans free text for sensitive-entity patterns. It holds an
// immutable rule table built at construction time and is safe for
// concurrent use.
type Detector struct {
	rules  []Rule
	logger *logger.Logger
}

// New creates a detector with the built-in rule table.
func New(log *logger.Logger) *Detector {
	return NewWithRules(DefaultRules(), log)
}

// NewWithRules creates a detector with a custom rule table. The rules slice
// is retained as-is and must not be mutated afterwards.
func NewWithRules(rules []Rule, log *logger.Logger) *Detector {
	return &Detector{
		rules:  rules,
		logger: log,
	}
}

// Detect scans text and returns a confidence-ranked, non-overlapping set of
// detections sorted ascending by start offset. Rules whose base confidence
// is below minConfidence are skipped entirely. Detect never fails; empty or
// whitespace-only input yields no detections.
//
// Overlap resolution: a match is rejected when an already-accepted detection
// overlaps its span with strictly greater confidence; conversely it evicts
// accepted detections it overlaps with strictly lower confidence. Equal
// confidence keeps the earlier-evaluated rule's span, so rule order is the
// final tie-break and decides which entity owns an ambiguous span (a 9-digit
// number can be both a plausible phone number and a plausible BSN).
func (d *Detector) Detect(text string, minConfidence float64) []Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var accepted []Detection

	for _, rule := range d.rules {
		if rule.Confidence < minConfidence {
			continue
		}

		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			candidate := Detection{
				EntityType:  rule.Type,
				MatchedText: text[loc[0]:loc[1]],
				StartOffset: loc[0],
				EndOffset:   loc[1],
				Confidence:  rule.Confidence,
			}

			// BSN candidates are structural matches only; discard the ones
			// that fail the elfproef.
			if rule.Type == EntityBSN && !ValidateBSN(candidate.MatchedText) {
				continue
			}

			accepted = resolveOverlap(accepted, candidate)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].StartOffset < accepted[j].StartOffset
	})

	if len(accepted) > 0 && d.logger != nil {
		d.logger.Debug("sensitive entities detected",
			zap.Int("count", len(accepted)),
			zap.Float64("min_confidence", minConfidence),
		)
	}

	return accepted
}

// resolveOverlap inserts candidate into accepted, keeping the set pairwise
// non-overlapping with the highest-confidence detection winning each span.
func resolveOverlap(accepted []Detection, candidate Detection) []Detection {
	kept := make([]Detection, 0, len(accepted)+1)
	for _, existing := range accepted {
		if !overlaps(existing, candidate) {
			kept = append(kept, existing)
			continue
		}
		if existing.Confidence >= candidate.Confidence {
			// An equal or stronger detection already owns this span.
			return accepted
		}
		// Weaker detection loses the span, drop it.
	}
	return append(kept, candidate)
}

// overlaps reports whether two detections share at least one character.
func overlaps(a, b Detection) bool {
	return a.StartOffset < b.EndOffset && b.StartOffset < a.EndOffset
}

// Types returns the distinct entity types present in detections, in order
// of first appearance.
func Types(detections []Detection) []EntityType {
	seen := make(map[EntityType]bool, len(detections))
	var types []EntityType
	for _, det := range detections {
		if !seen[det.EntityType] {
			seen[det.EntityType] = true
			types = append(types, det.EntityType)
		}
	}
	return types
}

// MeanConfidence returns the average confidence across detections, or 0 for
// an empty set.
func MeanConfidence(detections []Detection) float64 {
	if len(detections) == 0 {
		return 0
	}
	sum := 0.0
	for _, det := range detections {
		sum += det.Confidence
	}
	return sum / float64(len(detections))
}
