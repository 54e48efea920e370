package guardrails

// guard is a tagged variant over the four guardrail checks. Each variant
// carries its own config payload; the engine evaluates them through an
// exhaustive type switch so an unhandled guard type is a loud error instead
// of a silent pass.
type guard interface {
	name() string
	enabled() bool
	action() Action
}

type piiGuard struct{ cfg PIIGuardConfig }

func (g piiGuard) name() string   { return GuardPII }
func (g piiGuard) enabled() bool  { return g.cfg.Enabled }
func (g piiGuard) action() Action { return g.cfg.Action }

type jailbreakGuard struct{ cfg JailbreakGuardConfig }

func (g jailbreakGuard) name() string   { return GuardJailbreak }
func (g jailbreakGuard) enabled() bool  { return g.cfg.Enabled }
func (g jailbreakGuard) action() Action { return g.cfg.Action }

type toxicityGuard struct{ cfg ToxicityGuardConfig }

func (g toxicityGuard) name() string   { return GuardToxicity }
func (g toxicityGuard) enabled() bool  { return g.cfg.Enabled }
func (g toxicityGuard) action() Action { return g.cfg.Action }

func (g toxicityGuard) threshold() float64 {
	if g.cfg.Threshold <= 0 {
		return DefaultToxicityThreshold
	}
	return g.cfg.Threshold
}

type hallucinationGuard struct{ cfg HallucinationGuardConfig }

func (g hallucinationGuard) name() string   { return GuardHallucination }
func (g hallucinationGuard) enabled() bool  { return g.cfg.Enabled }
func (g hallucinationGuard) action() Action { return g.cfg.Action }

// guardsOf returns a policy's guards in the fixed evaluation order:
// PII, jailbreak, toxicity, hallucination. Cheap guards run first so they
// short-circuit before the hallucination guard's external call.
func guardsOf(policy Policy) []guard {
	return []guard{
		piiGuard{cfg: policy.PII},
		jailbreakGuard{cfg: policy.Jailbreak},
		toxicityGuard{cfg: policy.Toxicity},
		hallucinationGuard{cfg: policy.Hallucination},
	}
}
