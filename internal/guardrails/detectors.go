package guardrails

import (
	"context"
	"strings"
)

// JailbreakDetector is the pluggable binary signal behind the jailbreak
// guard. Implementations must respect the context deadline.
type JailbreakDetector interface {
	Check(ctx context.Context, text string) (triggered bool, matched string, err error)
}

// ToxicityScorer is the pluggable detector behind the toxicity guard. The
// score is compared against the policy's threshold.
type ToxicityScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// jailbreakPhrases are checked as case-insensitive substrings. The list
// covers prompt-injection and jailbreak phrasing in one table since both
// feed the same guard.
var jailbreakPhrases = []string{
	"ignore all previous instructions",
	"ignore previous instructions",
	"forget everything",
	"disregard your instructions",
	"ignore your training",
	"pretend you are not an ai",
	"you are now",
	"new instructions",
	"system prompt",
	"dan mode",
	"do anything now",
	"jailbreak",
	"no limitations",
	"without restrictions",
	"ignore safety",
	"bypass guidelines",
	"developer mode",
	"uncensored",
}

// KeywordJailbreakDetector flags known adversarial phrasing. It is the
// default detector; deployments wanting model-based detection plug in their
// own JailbreakDetector.
type KeywordJailbreakDetector struct{}

// NewKeywordJailbreakDetector creates the default phrase-list detector.
func NewKeywordJailbreakDetector() *KeywordJailbreakDetector {
	return &KeywordJailbreakDetector{}
}

// Check reports whether text contains a known jailbreak phrase.
func (d *KeywordJailbreakDetector) Check(_ context.Context, text string) (bool, string, error) {
	lower := strings.ToLower(text)
	for _, phrase := range jailbreakPhrases {
		if strings.Contains(lower, phrase) {
			return true, phrase, nil
		}
	}
	return false, "", nil
}

// toxicTerms map hostile vocabulary to a per-hit weight. Scores accumulate
// across distinct terms and saturate at 1.
var toxicTerms = map[string]float64{
	"idiot":      0.4,
	"stupid":     0.4,
	"moron":      0.5,
	"hate you":   0.6,
	"kill":       0.7,
	"hurt you":   0.7,
	"worthless":  0.5,
	"shut up":    0.4,
	"disgusting": 0.4,
	"go to hell": 0.6,
	"threat":     0.3,
	"violence":   0.5,
}

// KeywordToxicityScorer is the default lexicon-based scorer.
type KeywordToxicityScorer struct{}

// NewKeywordToxicityScorer creates the default lexicon scorer.
func NewKeywordToxicityScorer() *KeywordToxicityScorer {
	return &KeywordToxicityScorer{}
}

// Score returns an accumulated toxicity score in [0,1].
func (s *KeywordToxicityScorer) Score(_ context.Context, text string) (float64, error) {
	lower := strings.ToLower(text)
	score := 0.0
	for term, weight := range toxicTerms {
		if strings.Contains(lower, term) {
			score += weight
		}
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
