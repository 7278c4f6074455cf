package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a report or campaign does not exist
var ErrNotFound = errors.New("record not found")

// ErrNoJob is returned by a queue dequeue that timed out with nothing to do
var ErrNoJob = errors.New("no job available")

// Classifier defines the interface for the external reasoning service
type Classifier interface {
	// Classify produces a structured verdict for an email excerpt. It never
	// fails hard: unreachable services and unparseable responses come back
	// as an Unavailable outcome.
	Classify(ctx context.Context, excerpt string, signals map[string]ThreatSignal) ClassificationOutcome
}

// ReputationClient defines the interface for the external reputation service
type ReputationClient interface {
	// Lookup fetches the threat signal for a single indicator. An error
	// means "no signal" for that indicator only.
	Lookup(ctx context.Context, indicator string) (ThreatSignal, error)
}

// ReportStore defines the interface for report persistence
type ReportStore interface {
	// InsertReport stores a new report
	InsertReport(ctx context.Context, report *AnalysisReport) error

	// GetReport retrieves a report by id, or ErrNotFound
	GetReport(ctx context.Context, id string) (*AnalysisReport, error)

	// ListReports returns the most recent reports, newest first
	ListReports(ctx context.Context, limit int) ([]*AnalysisReport, error)

	// TransitionStatus atomically moves a report from one status to another.
	// It returns false when the report is not in the expected status. Both
	// the processing claim and the error flip go through this guard, so a
	// terminal record can never be mutated again.
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// CompleteReport persists all derived fields plus the complete status
	// in a single update
	CompleteReport(ctx context.Context, report *AnalysisReport) error
}

// CampaignStore defines the interface for campaign persistence
type CampaignStore interface {
	InsertCampaign(ctx context.Context, campaign *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context) ([]*Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
}

// JobQueue defines the interface for the analysis job broker
type JobQueue interface {
	// Enqueue submits a report id for analysis. The report must already
	// exist in pending status.
	Enqueue(ctx context.Context, reportID string) error

	// Dequeue blocks for the broker's poll interval and returns the next
	// report id, or ErrNoJob when the queue stayed empty.
	Dequeue(ctx context.Context) (string, error)
}

// EventPublisher defines the interface for relaying status transitions to
// interested listeners. Publishing is best-effort.
type EventPublisher interface {
	PublishStatus(ctx context.Context, event StatusEvent) error
}
