package detect

import "regexp"

// EntityType identifies a category of sensitive data
type EntityType string

const (
	// EntityEmail matches email addresses
	EntityEmail EntityType = "email"
	// EntityPhone matches Dutch and international phone numbers
	EntityPhone EntityType = "phone"
	// EntityBSN matches Dutch national identification numbers (burgerservicenummer)
	EntityBSN EntityType = "bsn"
	// EntityCreditCard matches payment card numbers
	EntityCreditCard EntityType = "credit_card"
	// EntityMedicalRecord matches medical record / dossier references
	EntityMedicalRecord EntityType = "medical_record"
	// EntityDateOfBirth matches dd-mm-yyyy style dates
	EntityDateOfBirth EntityType = "date_of_birth"
	// EntityIPAddress matches IPv4 addresses
	EntityIPAddress EntityType = "ip_address"
	// EntityAddress matches street addresses
	EntityAddress EntityType = "address"
)

// Rule pairs a compiled pattern with the base confidence assigned to its
// matches. Rule order is significant: when two matches overlap with equal
// confidence, the rule evaluated first keeps the span.
type Rule struct {
	Type       EntityType
	Pattern    *regexp.Regexp
	Confidence float64
}

// Detection is a single sensitive span found in a text. Offsets are byte
// offsets into the scanned string, end-exclusive.
type Detection struct {
	EntityType  EntityType `json:"entityType"`
	MatchedText string     `json:"matchedText"`
	StartOffset int        `json:"startOffset"`
	EndOffset   int        `json:"endOffset"`
	Confidence  float64    `json:"confidence"`
}

// Utterance is a timestamped transcript segment attributed to one speaker turn.
// Times are seconds from the start of the recording.
type Utterance struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// AlignedDetection is a Detection mapped onto the audio time range of the
// utterance it was found in. Offsets are valid against the concatenation of
// all utterance texts joined with UtteranceSeparator.
type AlignedDetection struct {
	Detection
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}
