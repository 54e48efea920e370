package detect

import "regexp"

// DefaultRules returns the built-in detection rules in evaluation order.
// The table is built once at startup and shared read-only between detectors;
// callers must not mutate the returned slice.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:       EntityEmail,
			Pattern:    regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			Confidence: 0.95,
		},
		// BSN matches are structural only; candidates are confirmed by the
		// elfproef checksum before they are accepted.
		{
			Type:       EntityBSN,
			Pattern:    regexp.MustCompile(`\b\d{8,9}\b|\b\d{4}[ .]\d{2}[ .]\d{3}\b`),
			Confidence: 0.90,
		},
		{
			Type:       EntityIPAddress,
			Pattern:    regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
			Confidence: 0.90,
		},
		{
			Type:       EntityPhone,
			Pattern:    regexp.MustCompile(`(?:\+31|0031|0)[\s\-]?[1-9](?:[\s\-]?\d){8}\b`),
			Confidence: 0.85,
		},
		{
			Type:       EntityCreditCard,
			Pattern:    regexp.MustCompile(`\b(?:\d{4}[\s\-]){3}\d{4}\b|\b\d{15,16}\b`),
			Confidence: 0.80,
		},
		{
			Type:       EntityMedicalRecord,
			Pattern:    regexp.MustCompile(`(?i)\b(?:MRN|dossier(?:nummer)?|patient(?:en)?nummer)[:\s#]*\d{5,10}\b`),
			Confidence: 0.75,
		},
		{
			Type:       EntityDateOfBirth,
			Pattern:    regexp.MustCompile(`\b(?:0[1-9]|[12]\d|3[01])[\-/](?:0[1-9]|1[0-2])[\-/](?:19|20)\d{2}\b`),
			Confidence: 0.70,
		},
		{
			Type:       EntityAddress,
			Pattern:    regexp.MustCompile(`\b[A-Z][a-z]+(?:straat|laan|weg|plein|kade|singel|dijk)\s+\d+[a-zA-Z]?\b|\b\d+\s+[A-Z][a-z]+\s+(?:Street|Avenue|Road|Lane|Drive|Boulevard)\b`),
			Confidence: 0.60,
		},
	}
}
