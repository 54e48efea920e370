package classify

import "github.com/Inovico-app/inovy-sub006/internal/detect"

// Level is a data-sensitivity classification. The ordering is total:
// public < internal < confidential < restricted.
type Level string

const (
	LevelPublic       Level = "public"
	LevelInternal     Level = "internal"
	LevelConfidential Level = "confidential"
	LevelRestricted   Level = "restricted"
)

var levelRank = map[Level]int{
	LevelPublic:       0,
	LevelInternal:     1,
	LevelConfidential: 2,
	LevelRestricted:   3,
}

// Rank returns the position of the level in the total ordering. Unknown
// levels rank below public.
func (l Level) Rank() int {
	if rank, ok := levelRank[l]; ok {
		return rank
	}
	return -1
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// MaxLevel returns the higher of two levels.
func MaxLevel(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// DataType identifies the kind of resource being classified.
type DataType string

const (
	DataTypeRecording     DataType = "recording"
	DataTypeTranscription DataType = "transcription"
	DataTypeChatMessage   DataType = "chat_message"
	DataTypeConsentRecord DataType = "consent_record"
	DataTypeAPIResponse   DataType = "api_response"
	DataTypeAuditLog      DataType = "audit_log"
)

// defaultLevels is the static per-data-type default table, used when no
// organization or global policy matches.
var defaultLevels = map[DataType]Level{
	DataTypeRecording:     LevelConfidential,
	DataTypeTranscription: LevelConfidential,
	DataTypeChatMessage:   LevelConfidential,
	DataTypeConsentRecord: LevelRestricted,
	DataTypeAPIResponse:   LevelInternal,
	DataTypeAuditLog:      LevelInternal,
}

// DefaultLevel returns the static default level for a data type. Unknown
// data types default to confidential, the safe middle ground for a
// healthcare product.
func DefaultLevel(dataType DataType) Level {
	if level, ok := defaultLevels[dataType]; ok {
		return level
	}
	return LevelConfidential
}

// LevelRules carries the storage-policy consequences of a level.
type LevelRules struct {
	RequiresEncryption  bool
	EncryptionAlgorithm string
	RetentionDays       int // 0 means no fixed retention period
}

// retentionHealthcare is roughly seven years, the Dutch medical
// record-keeping term (WGBO).
const retentionHealthcare = 2555

var levelRules = map[Level]LevelRules{
	LevelPublic:       {},
	LevelInternal:     {RequiresEncryption: true, EncryptionAlgorithm: "AES-256-GCM"},
	LevelConfidential: {RequiresEncryption: true, EncryptionAlgorithm: "AES-256-GCM", RetentionDays: retentionHealthcare},
	LevelRestricted:   {RequiresEncryption: true, EncryptionAlgorithm: "AES-256-GCM", RetentionDays: retentionHealthcare},
}

// RulesFor maps a level to its encryption and retention rules.
func RulesFor(level Level) LevelRules {
	return levelRules[level]
}

// Signals summarizes what content analysis found in a resource.
type Signals struct {
	HasPII           bool                `json:"hasPII"`
	HasPHI           bool                `json:"hasPHI"`
	HasFinancialData bool                `json:"hasFinancialData"`
	DetectedTypes    []detect.EntityType `json:"detectedTypes"`
	ConfidenceScore  float64             `json:"confidenceScore"`
}

// Result is the outcome of classifying one resource.
type Result struct {
	Level               Level   `json:"level"`
	RequiresEncryption  bool    `json:"requiresEncryption"`
	EncryptionAlgorithm string  `json:"encryptionAlgorithm,omitempty"`
	RetentionDays       int     `json:"retentionPeriodDays,omitempty"`
	Reason              string  `json:"reason"`
	Signals             Signals `json:"signals"`
}

// Policy is a stored classification policy for a data type, scoped to one
// organization or global when OrganizationID is empty.
type Policy struct {
	DataType       DataType `db:"data_type" json:"dataType"`
	OrganizationID string   `db:"organization_id" json:"organizationId,omitempty"`
	Level          Level    `db:"level" json:"level"`
	RetentionDays  int      `db:"retention_days" json:"retentionDays,omitempty"`
	Active         bool     `db:"active" json:"active"`
}

// Request carries the inputs for one classification.
type Request struct {
	DataType       DataType `json:"dataType"`
	Content        string   `json:"content,omitempty"`
	OrganizationID string   `json:"organizationId"`
	ExplicitLevel  Level    `json:"explicitLevel,omitempty"`
}
