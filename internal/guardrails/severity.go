package guardrails

// severityFor maps (violationType, actionTaken) to a severity. The mapping
// is deliberately a single deterministic table: jailbreak attempts are the
// most serious signal, PII exposure ranks by how forcefully it was handled,
// and hallucinations are a quality problem rather than an attack.
func severityFor(violationType string, actionTaken ActionTaken) Severity {
	switch violationType {
	case GuardJailbreak:
		if actionTaken == ActionTakenBlocked {
			return SeverityCritical
		}
		return SeverityHigh
	case GuardPII:
		switch actionTaken {
		case ActionTakenBlocked:
			return SeverityHigh
		case ActionTakenRedacted:
			return SeverityMedium
		default:
			return SeverityLow
		}
	case GuardToxicity:
		if actionTaken == ActionTakenBlocked {
			return SeverityHigh
		}
		return SeverityMedium
	case GuardHallucination:
		if actionTaken == ActionTakenBlocked {
			return SeverityHigh
		}
		return SeverityMedium
	default:
		if actionTaken == ActionTakenBlocked {
			return SeverityHigh
		}
		return SeverityLow
	}
}
