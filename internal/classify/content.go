package classify

import (
	"regexp"
	"strings"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
)

// phiKeywords flags medical context in either English or Dutch. Prefixes
// like "diagnos" and "medicat" cover both languages at once.
var phiKeywords = []string{
	"diagnos",
	"patient",
	"patiënt",
	"prescription",
	"recept",
	"medicat",
	"hospital",
	"ziekenhuis",
	"blood pressure",
	"bloeddruk",
	"symptom",
	"symptoom",
	"treatment",
	"behandeling",
	"huisarts",
	"specialist",
}

// financialPatterns match IBAN-like codes, account-number phrases and
// currency amounts.
var financialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`),
	regexp.MustCompile(`(?i)\b(?:account number|rekeningnummer|bankrekening)\b`),
	regexp.MustCompile(`[€$]\s?\d+(?:[.,]\d{3})*(?:[.,]\d{2})?|\b\d+(?:[.,]\d{2})?\s?(?:euro|EUR|dollar|USD)\b`),
}

// AnalyzeContent runs entity detection plus keyword and pattern scans over
// content and summarizes the signals the classification engine escalates on.
//
// PHI is flagged when a medical keyword appears or when a BSN or medical
// record reference is detected: an identifier inside clinical text is health
// information in its own right.
func AnalyzeContent(detector *detect.Detector, content string, minConfidence float64) Signals {
	detections := detector.Detect(content, minConfidence)

	signals := Signals{
		HasPII:          len(detections) > 0,
		DetectedTypes:   detect.Types(detections),
		ConfidenceScore: detect.MeanConfidence(detections),
	}

	lower := strings.ToLower(content)
	for _, keyword := range phiKeywords {
		if strings.Contains(lower, keyword) {
			signals.HasPHI = true
			break
		}
	}
	if !signals.HasPHI {
		for _, det := range detections {
			if det.EntityType == detect.EntityBSN || det.EntityType == detect.EntityMedicalRecord {
				signals.HasPHI = true
				break
			}
		}
	}

	for _, pattern := range financialPatterns {
		if pattern.MatchString(content) {
			signals.HasFinancialData = true
			break
		}
	}

	return signals
}
