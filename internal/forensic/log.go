package forensic

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StandardID identifies the forensic logging profile the entries follow.
const StandardID = "ISO/IEC 30137-4"

// LogTypeRecognition is the log type for comparison/recognition events.
const LogTypeRecognition = "RECOGNITION_EVENT"

// GDPR defaults applied to every recognition log entry.
const (
	defaultLegalBasis        = "legal_obligation"
	defaultRetentionPeriod   = "10 years"
	defaultProcessingPurpose = "criminal identification"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Operator identifies who performed the comparison.
type Operator struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// SourceRef points at the probe image the comparison ran against.
type SourceRef struct {
	Path       string    `json:"path"`
	Digest     string    `json:"digest"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// MatchResult describes the outcome of the comparison. Nil on a log entry
// means the search completed with no candidate evaluated.
type MatchResult struct {
	MatchFound         bool    `json:"matchFound"`
	MatchedSubjectID   string  `json:"matchedSubjectId,omitempty"`
	MatchedSubjectName string  `json:"matchedSubjectName,omitempty"`
	ConfidenceScore    float64 `json:"confidenceScore"`
	Threshold          float64 `json:"threshold"`
}

// Method records how the comparison was performed.
type Method struct {
	ComparisonType string `json:"comparisonType"`
	Algorithm      string `json:"algorithm"`
	ModelVersion   string `json:"modelVersion"`
	DistanceMetric string `json:"distanceMetric"`
}

// ForensicContext ties the event to a case and an evidence item.
type ForensicContext struct {
	CaseID         string `json:"caseId"`
	EvidenceID     string `json:"evidenceId"`
	ChainOfCustody bool   `json:"chainOfCustody"`
}

// GDPRInfo records the legal basis and retention applied to the event.
type GDPRInfo struct {
	LegalBasis        string `json:"legalBasis"`
	RetentionPeriod   string `json:"retentionPeriod"`
	ProcessingPurpose string `json:"processingPurpose"`
}

// RecognitionLogEntry is one append-only, self-contained forensic record of a
// recognition/comparison event. Entries are never mutated after creation.
type RecognitionLogEntry struct {
	StandardID string          `json:"standardId"`
	LogType    string          `json:"logType"`
	LogID      string          `json:"logId"`
	Operator   Operator        `json:"operator"`
	Source     SourceRef       `json:"source"`
	Result     *MatchResult    `json:"result,omitempty"`
	Method     Method          `json:"method"`
	Forensic   ForensicContext `json:"forensic"`
	GDPR       GDPRInfo        `json:"gdpr"`
	Timestamp  time.Time       `json:"timestamp"`
}

// LogParams collects the caller-supplied context for one recognition event.
type LogParams struct {
	Operator Operator
	Source   SourceRef
	Result   *MatchResult
	Method   Method
	CaseID   string
	// EvidenceID is generated when empty.
	EvidenceID        string
	ChainOfCustody    bool
	ProcessingPurpose string
}

// LogFactory builds immutable recognition log entries. It performs no I/O;
// persisting or transmitting the entry is the caller's concern.
type LogFactory struct {
	logger *zap.Logger
}

// NewLogFactory creates a recognition log factory.
func NewLogFactory(logger *zap.Logger) *LogFactory {
	return &LogFactory{logger: logger.Named("recognition_log")}
}

// NewEntry returns a fully populated log entry with fresh unique log and
// evidence identifiers. Every call yields a new record.
func (f *LogFactory) NewEntry(p LogParams) *RecognitionLogEntry {
	now := time.Now().UTC()

	evidenceID := p.EvidenceID
	if evidenceID == "" {
		evidenceID = "EV-" + strings.ToUpper(uuid.New().String())
	}

	purpose := p.ProcessingPurpose
	if purpose == "" {
		purpose = defaultProcessingPurpose
	}

	entry := &RecognitionLogEntry{
		StandardID: StandardID,
		LogType:    LogTypeRecognition,
		LogID:      generateLogID(now),
		Operator:   p.Operator,
		Source:     p.Source,
		Result:     p.Result,
		Method:     p.Method,
		Forensic: ForensicContext{
			CaseID:         p.CaseID,
			EvidenceID:     evidenceID,
			ChainOfCustody: p.ChainOfCustody,
		},
		GDPR: GDPRInfo{
			LegalBasis:        defaultLegalBasis,
			RetentionPeriod:   defaultRetentionPeriod,
			ProcessingPurpose: purpose,
		},
		Timestamp: now,
	}

	f.logger.Debug("Recognition log entry created",
		zap.String("log_id", entry.LogID),
		zap.String("case_id", p.CaseID),
		zap.String("operator_id", p.Operator.UserID))

	return entry
}

// generateLogID produces a date-prefixed unique identifier, e.g.
// FRL-20260831-K3J2M9QX7B1D. The suffix combines the wall clock at
// nanosecond resolution with random characters so sequential calls in the
// same nanosecond still diverge.
func generateLogID(now time.Time) string {
	timePart := strings.ToUpper(strconv.FormatInt(now.UnixNano(), 36))
	return "FRL-" + now.Format("20060102") + "-" + timePart + randomID(6)
}

// randomID returns n uppercase alphanumeric characters from crypto/rand.
func randomID(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}
