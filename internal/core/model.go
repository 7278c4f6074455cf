package core

import (
	"time"
)

// Status is the lifecycle state of an analysis report. Transitions are
// forward-only: pending -> processing -> complete|error.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// IsTerminal reports whether no further mutation of the record is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// Verdict is the final classification label for an analyzed email
type Verdict string

const (
	VerdictSafe      Verdict = "Safe"
	VerdictSpam      Verdict = "Spam"
	VerdictMalicious Verdict = "Malicious"
)

// ThreatSignal holds aggregate reputation counts for a single indicator
type ThreatSignal struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
}

// AnalysisReport is the unit of work and its persisted outcome
type AnalysisReport struct {
	ID            string
	RawEmail      string
	Status        Status
	Verdict       Verdict
	Confidence    float64
	Summary       string
	ExtractedURLs []string
	Enrichment    map[string]ThreatSignal
	CreatedAt     time.Time
}

// ClassificationResult is the structured verdict returned by the reasoning
// service. Confidence is a pointer so an absent field can be told apart from
// an explicit zero.
type ClassificationResult struct {
	Verdict    Verdict  `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	Summary    string   `json:"summary"`
}

// ClassificationOutcome is the typed result of a classification attempt.
// Unavailable covers an unreachable service and a malformed response alike;
// it is a normal code path, not an error.
type ClassificationOutcome struct {
	Result      ClassificationResult
	Unavailable bool
}

// ClassificationOK wraps a successful classification
func ClassificationOK(result ClassificationResult) ClassificationOutcome {
	return ClassificationOutcome{Result: result}
}

// ClassificationUnavailable signals that no usable classification was produced
func ClassificationUnavailable() ClassificationOutcome {
	return ClassificationOutcome{Unavailable: true}
}

// StatusEvent is emitted after each persisted status transition
type StatusEvent struct {
	ReportID string `json:"report_id"`
	Status   Status `json:"status"`
}

// Campaign represents a phishing-simulation campaign
type Campaign struct {
	ID        string
	Name      string
	Template  string
	Status    string
	Targets   int
	Opened    int
	Clicked   int
	Reported  int
	CreatedAt time.Time
}
