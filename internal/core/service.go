package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sentinelsec/sentinel/internal/utils"
	"go.uber.org/zap"
)

const defaultClassifyTimeout = 30 * time.Second

// AnalysisService is the job driver: it owns every status transition of an
// analysis report and runs the pipeline stages against it.
type AnalysisService struct {
	store           ReportStore
	classifier      Classifier
	reputation      ReputationClient
	events          EventPublisher
	logger          *zap.Logger
	textProcessor   *utils.TextProcessor
	excerptSize     int
	maxIndicators   int
	classifyTimeout time.Duration
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	store ReportStore,
	classifier Classifier,
	reputation ReputationClient,
	events EventPublisher,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	excerptSize int,
	maxIndicators int,
	classifyTimeout time.Duration,
) *AnalysisService {
	if maxIndicators <= 0 {
		maxIndicators = MaxIndicators
	}
	if classifyTimeout <= 0 {
		classifyTimeout = defaultClassifyTimeout
	}
	return &AnalysisService{
		store:           store,
		classifier:      classifier,
		reputation:      reputation,
		events:          events,
		logger:          logger,
		textProcessor:   textProcessor,
		excerptSize:     excerptSize,
		maxIndicators:   maxIndicators,
		classifyTimeout: classifyTimeout,
	}
}

// Process drives one report from pending to a terminal status. Component
// failures (enrichment, classification) are absorbed into fallback data;
// only infrastructure faults return an error, after a best-effort flip of
// the report to the error status. Redelivered jobs for reports that already
// left pending are a no-op.
func (s *AnalysisService) Process(ctx context.Context, reportID string) error {
	moved, err := s.store.TransitionStatus(ctx, reportID, StatusPending, StatusProcessing)
	if err != nil {
		s.failJob(ctx, reportID, err)
		return err
	}
	if !moved {
		// Not in pending: either removed, already processed (at-least-once
		// redelivery), or claimed by another worker. All are no-ops.
		report, getErr := s.store.GetReport(ctx, reportID)
		if errors.Is(getErr, ErrNotFound) {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		s.logger.Info("Skipping redelivered job",
			zap.String("report_id", reportID),
			zap.String("status", string(report.Status)))
		return nil
	}
	s.publish(ctx, reportID, StatusProcessing)

	report, err := s.store.GetReport(ctx, reportID)
	if errors.Is(err, ErrNotFound) {
		// Removed by an external actor while queued; not a pipeline error.
		return nil
	}
	if err != nil {
		s.failJob(ctx, reportID, err)
		return err
	}

	indicators := CapIndicators(ExtractIndicators(report.RawEmail), s.maxIndicators)
	signals := s.enrich(ctx, indicators)

	excerpt := s.textProcessor.Excerpt(report.RawEmail, s.excerptSize)
	classifyCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	outcome := s.classifier.Classify(classifyCtx, excerpt, signals)
	cancel()
	final := Aggregate(outcome)

	report.Status = StatusComplete
	report.Verdict = final.Verdict
	report.Confidence = *final.Confidence
	report.Summary = final.Summary
	report.ExtractedURLs = indicators
	report.Enrichment = signals

	if err := s.store.CompleteReport(ctx, report); err != nil {
		s.failJob(ctx, reportID, err)
		return err
	}
	s.publish(ctx, reportID, StatusComplete)

	s.logger.Info("Report analysis complete",
		zap.String("report_id", reportID),
		zap.String("verdict", string(final.Verdict)),
		zap.Float64("confidence", report.Confidence),
		zap.Int("indicators", len(indicators)),
		zap.Bool("classification_unavailable", outcome.Unavailable))
	return nil
}

// enrich looks up every indicator concurrently. A failed lookup is recorded
// as absence of a signal for that indicator only; the full set is awaited
// before returning.
func (s *AnalysisService) enrich(ctx context.Context, indicators []string) map[string]ThreatSignal {
	signals := make(map[string]ThreatSignal, len(indicators))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, indicator := range indicators {
		wg.Add(1)
		go func(indicator string) {
			defer wg.Done()
			signal, err := s.reputation.Lookup(ctx, indicator)
			if err != nil {
				s.logger.Debug("Reputation lookup failed",
					zap.String("indicator", indicator),
					zap.Error(err))
				return
			}
			mu.Lock()
			signals[indicator] = signal
			mu.Unlock()
		}(indicator)
	}
	wg.Wait()

	return signals
}

// failJob flips the report to the error status. The flip is guarded: only a
// record this driver owns (still in processing) may be marked errored, so a
// terminal record hit by a redelivered job stays untouched and a pending
// record never skips processing. The flip itself is best-effort: if it fails
// the record stays in processing and an external reconciliation sweep has to
// requeue it.
func (s *AnalysisService) failJob(ctx context.Context, reportID string, cause error) {
	s.logger.Error("Report analysis failed",
		zap.String("report_id", reportID),
		zap.Error(cause))
	moved, err := s.store.TransitionStatus(ctx, reportID, StatusProcessing, StatusError)
	if err != nil {
		s.logger.Error("Failed to mark report as errored",
			zap.String("report_id", reportID),
			zap.Error(err))
		return
	}
	if !moved {
		s.logger.Debug("Skipping error flip for report not in processing",
			zap.String("report_id", reportID))
		return
	}
	s.publish(ctx, reportID, StatusError)
}

func (s *AnalysisService) publish(ctx context.Context, reportID string, status Status) {
	if s.events == nil {
		return
	}
	event := StatusEvent{ReportID: reportID, Status: status}
	if err := s.events.PublishStatus(ctx, event); err != nil {
		s.logger.Warn("Failed to publish status event",
			zap.String("report_id", reportID),
			zap.Error(err))
	}
}
