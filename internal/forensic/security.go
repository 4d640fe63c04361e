package forensic

// Classification levels for stored biometric artifacts.
const (
	ClassificationConfidential = "confidential"
	ClassificationRestricted   = "restricted"
)

// RoleInvestigator is the minimum role required to access biometric
// artifacts by default.
const RoleInvestigator = "investigator"

// EncryptionInfo states whether (and how) the artifact is encrypted.
// The engine never encrypts anything itself; encryption is applied by the
// downstream transport or storage layer.
type EncryptionInfo struct {
	Algorithm string `json:"algorithm"`
	Encrypted bool   `json:"encrypted"`
}

// AccessControlInfo states the access requirements enforced elsewhere.
type AccessControlInfo struct {
	RequiresAuth bool   `json:"requiresAuth"`
	MinimumRole  string `json:"minimumRole"`
}

// AuditInfo states the audit expectations for the artifact.
type AuditInfo struct {
	Enabled         bool   `json:"enabled"`
	RetentionPeriod string `json:"retentionPeriod"`
}

// GDPRCompliance mirrors the retention/legal-basis block on log entries.
type GDPRCompliance struct {
	LegalBasis        string `json:"legalBasis"`
	RetentionPeriod   string `json:"retentionPeriod"`
	ProcessingPurpose string `json:"processingPurpose"`
}

// SecurityMetadata annotates an artifact with classification, retention and
// access-control expectations before hand-off to storage.
type SecurityMetadata struct {
	StandardID     string            `json:"standardId"`
	ArtifactType   string            `json:"artifactType"`
	Classification string            `json:"classification"`
	Encryption     EncryptionInfo    `json:"encryption"`
	AccessControl  AccessControlInfo `json:"accessControl"`
	Audit          AuditInfo         `json:"audit"`
	GDPRCompliance GDPRCompliance    `json:"gdprCompliance"`
}

// MetadataFactory builds security metadata records with conservative
// defaults.
type MetadataFactory struct{}

// NewMetadataFactory creates a security metadata factory.
func NewMetadataFactory() *MetadataFactory {
	return &MetadataFactory{}
}

// ForArtifact returns security metadata for the given artifact type
// (e.g. "biometric_template", "photo", "recognition_log"): confidential
// classification, not yet encrypted, investigator-gated, audited, ten-year
// retention.
func (f *MetadataFactory) ForArtifact(artifactType string) *SecurityMetadata {
	return &SecurityMetadata{
		StandardID:     StandardID,
		ArtifactType:   artifactType,
		Classification: ClassificationConfidential,
		Encryption: EncryptionInfo{
			Algorithm: "AES-256-GCM",
			Encrypted: false,
		},
		AccessControl: AccessControlInfo{
			RequiresAuth: true,
			MinimumRole:  RoleInvestigator,
		},
		Audit: AuditInfo{
			Enabled:         true,
			RetentionPeriod: defaultRetentionPeriod,
		},
		GDPRCompliance: GDPRCompliance{
			LegalBasis:        defaultLegalBasis,
			RetentionPeriod:   defaultRetentionPeriod,
			ProcessingPurpose: defaultProcessingPurpose,
		},
	}
}
