package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelsec/sentinel/internal/utils"
)

type fakeStore struct {
	mu      sync.Mutex
	reports map[string]*AnalysisReport

	// transitionErr fires on the transition call numbered transitionErrAt
	// (1-based); zero means every call fails
	transitionErr   error
	transitionErrAt int
	transitionCalls int

	getErr      error
	completeErr error

	completed []*AnalysisReport
}

func newFakeStore(reports ...*AnalysisReport) *fakeStore {
	s := &fakeStore{reports: make(map[string]*AnalysisReport)}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *fakeStore) InsertReport(_ context.Context, report *AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report
	return nil
}

func (s *fakeStore) GetReport(_ context.Context, id string) (*AnalysisReport, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (s *fakeStore) ListReports(_ context.Context, _ int) ([]*AnalysisReport, error) {
	return nil, nil
}

func (s *fakeStore) TransitionStatus(_ context.Context, id string, from, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionCalls++
	if s.transitionErr != nil && (s.transitionErrAt == 0 || s.transitionCalls == s.transitionErrAt) {
		return false, s.transitionErr
	}
	report, ok := s.reports[id]
	if !ok || report.Status != from {
		return false, nil
	}
	report.Status = to
	return true, nil
}

func (s *fakeStore) CompleteReport(_ context.Context, report *AnalysisReport) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *report
	s.reports[report.ID] = &clone
	s.completed = append(s.completed, &clone)
	return nil
}

type fakeClassifier struct {
	outcome     ClassificationOutcome
	excerpts    []string
	signals     []map[string]ThreatSignal
	hadDeadline bool
}

func (c *fakeClassifier) Classify(ctx context.Context, excerpt string, signals map[string]ThreatSignal) ClassificationOutcome {
	_, c.hadDeadline = ctx.Deadline()
	c.excerpts = append(c.excerpts, excerpt)
	c.signals = append(c.signals, signals)
	return c.outcome
}

type fakeReputation struct {
	mu      sync.Mutex
	signals map[string]ThreatSignal
	errs    map[string]error
	lookups []string
}

func (r *fakeReputation) Lookup(_ context.Context, indicator string) (ThreatSignal, error) {
	r.mu.Lock()
	r.lookups = append(r.lookups, indicator)
	r.mu.Unlock()
	if err, ok := r.errs[indicator]; ok {
		return ThreatSignal{}, err
	}
	return r.signals[indicator], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []StatusEvent
	err    error
}

func (p *fakePublisher) PublishStatus(_ context.Context, event StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newTestService(store ReportStore, classifier Classifier, reputation ReputationClient, events EventPublisher) *AnalysisService {
	logger := zap.NewNop()
	return NewAnalysisService(store, classifier, reputation, events, logger,
		utils.NewTextProcessor(logger), 1000, MaxIndicators, 30*time.Second)
}

func okOutcome(verdict Verdict, confidence float64, summary string) ClassificationOutcome {
	return ClassificationOK(ClassificationResult{
		Verdict:    verdict,
		Confidence: &confidence,
		Summary:    summary,
	})
}

func pendingReport(id, rawEmail string) *AnalysisReport {
	return &AnalysisReport{
		ID:            id,
		RawEmail:      rawEmail,
		Status:        StatusPending,
		ExtractedURLs: []string{},
		Enrichment:    map[string]ThreatSignal{},
	}
}

func TestProcessHappyPath(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "Visit http://a.com and http://b.com now"))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictMalicious, 0.9, "Phishing lure")}
	reputation := &fakeReputation{signals: map[string]ThreatSignal{
		"http://a.com": {Malicious: 3, Harmless: 10},
		"http://b.com": {Suspicious: 1, Harmless: 20},
	}}
	publisher := &fakePublisher{}

	service := newTestService(store, classifier, reputation, publisher)
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
	assert.Equal(t, VerdictMalicious, report.Verdict)
	assert.Equal(t, 0.9, report.Confidence)
	assert.Equal(t, "Phishing lure", report.Summary)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, report.ExtractedURLs)
	assert.Equal(t, reputation.signals, report.Enrichment)

	assert.Equal(t, []StatusEvent{
		{ReportID: "r1", Status: StatusProcessing},
		{ReportID: "r1", Status: StatusComplete},
	}, publisher.events)
}

func TestProcessNoIndicators(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "Just a plain newsletter, no links."))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.99, "Benign newsletter")}
	reputation := &fakeReputation{}

	service := newTestService(store, classifier, reputation, &fakePublisher{})
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
	assert.Empty(t, report.ExtractedURLs)
	assert.Empty(t, report.Enrichment)
	assert.Empty(t, reputation.lookups)
}

func TestProcessCapsIndicatorsAtFive(t *testing.T) {
	raw := "http://u1.com http://u2.com http://u3.com http://u4.com http://u5.com http://u6.com http://u7.com"
	store := newFakeStore(pendingReport("r1", raw))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSpam, 0.6, "Link farm")}
	reputation := &fakeReputation{}

	service := newTestService(store, classifier, reputation, &fakePublisher{})
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://u1.com", "http://u2.com", "http://u3.com", "http://u4.com", "http://u5.com"}, report.ExtractedURLs)
	assert.Len(t, reputation.lookups, 5)
	assert.NotContains(t, reputation.lookups, "http://u6.com")
}

func TestProcessHonorsConfiguredIndicatorCap(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "http://a.com http://b.com http://c.com"))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSpam, 0.6, "Link farm")}
	reputation := &fakeReputation{}

	logger := zap.NewNop()
	service := NewAnalysisService(store, classifier, reputation, nil, logger,
		utils.NewTextProcessor(logger), 1000, 2, 30*time.Second)
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, report.ExtractedURLs)
	assert.Len(t, reputation.lookups, 2)
}

func TestProcessBoundsClassificationByTimeout(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "hello"))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.9, "fine")}

	logger := zap.NewNop()
	service := NewAnalysisService(store, classifier, &fakeReputation{}, nil, logger,
		utils.NewTextProcessor(logger), 1000, MaxIndicators, 250*time.Millisecond)
	require.NoError(t, service.Process(context.Background(), "r1"))

	// The classifier saw a deadline even though the job context had none
	assert.True(t, classifier.hadDeadline)
}

func TestProcessPartialEnrichmentFailure(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "http://a.com http://b.com http://c.com"))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSpam, 0.7, "Suspicious links")}
	reputation := &fakeReputation{
		signals: map[string]ThreatSignal{
			"http://a.com": {Malicious: 1},
			"http://c.com": {Harmless: 5},
		},
		errs: map[string]error{"http://b.com": errors.New("rate limited")},
	}

	service := newTestService(store, classifier, reputation, &fakePublisher{})
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
	assert.Len(t, report.Enrichment, 2)
	assert.Contains(t, report.Enrichment, "http://a.com")
	assert.Contains(t, report.Enrichment, "http://c.com")
	assert.NotContains(t, report.Enrichment, "http://b.com")
}

func TestProcessClassifierUnavailableFallsBack(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "Visit http://a.com now"))
	classifier := &fakeClassifier{outcome: ClassificationUnavailable()}
	reputation := &fakeReputation{signals: map[string]ThreatSignal{
		"http://a.com": {Malicious: 4},
	}}

	service := newTestService(store, classifier, reputation, &fakePublisher{})
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
	assert.Equal(t, VerdictSafe, report.Verdict)
	assert.Equal(t, 0.95, report.Confidence)
	assert.Equal(t, "Email analyzed successfully", report.Summary)
	// Enrichment data is still persisted alongside the fallback verdict
	assert.Contains(t, report.Enrichment, "http://a.com")
}

func TestProcessRedeliveredJobIsNoOp(t *testing.T) {
	report := pendingReport("r1", "hello")
	report.Status = StatusComplete
	report.Verdict = VerdictSpam
	report.Confidence = 0.8
	report.Summary = "done earlier"
	store := newFakeStore(report)
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.1, "should not be used")}
	publisher := &fakePublisher{}

	service := newTestService(store, classifier, &fakeReputation{}, publisher)
	require.NoError(t, service.Process(context.Background(), "r1"))

	// The terminal record is untouched and no pipeline stage ran
	got, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, VerdictSpam, got.Verdict)
	assert.Equal(t, "done earlier", got.Summary)
	assert.Empty(t, classifier.excerpts)
	assert.Empty(t, publisher.events)
	assert.Empty(t, store.completed)
}

func TestProcessMissingReportIsNoOp(t *testing.T) {
	store := newFakeStore()
	classifier := &fakeClassifier{outcome: ClassificationUnavailable()}

	service := newTestService(store, classifier, &fakeReputation{}, &fakePublisher{})
	require.NoError(t, service.Process(context.Background(), "ghost"))
	assert.Empty(t, classifier.excerpts)
}

func TestProcessTransientFaultLeavesTerminalRecord(t *testing.T) {
	// A redelivered job for a completed report hits a transient store fault
	// on the processing claim. The error flip is guarded, so the terminal
	// record keeps its status and verdict.
	report := pendingReport("r1", "hello")
	report.Status = StatusComplete
	report.Verdict = VerdictMalicious
	report.Confidence = 0.9
	report.Summary = "caught earlier"
	store := newFakeStore(report)
	store.transitionErr = errors.New("connection reset by peer")
	store.transitionErrAt = 1
	publisher := &fakePublisher{}

	service := newTestService(store, &fakeClassifier{}, &fakeReputation{}, publisher)
	err := service.Process(context.Background(), "r1")
	require.Error(t, err)

	got, getErr := store.GetReport(context.Background(), "r1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, VerdictMalicious, got.Verdict)
	assert.Equal(t, "caught earlier", got.Summary)
	assert.Empty(t, publisher.events)
}

func TestProcessTransientFaultLeavesPendingRecord(t *testing.T) {
	// When the processing claim itself fails the record is still pending; it
	// must not jump straight to error and stays eligible for a retry.
	store := newFakeStore(pendingReport("r1", "hello"))
	store.transitionErr = errors.New("connection refused")
	store.transitionErrAt = 1
	publisher := &fakePublisher{}

	service := newTestService(store, &fakeClassifier{}, &fakeReputation{}, publisher)
	err := service.Process(context.Background(), "r1")
	require.Error(t, err)

	got, getErr := store.GetReport(context.Background(), "r1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, got.Status)
	assert.Empty(t, publisher.events)
}

func TestProcessCompleteFaultFlipsOwnedRecordToError(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "Visit http://a.com"))
	store.completeErr = errors.New("disk full")
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.9, "fine")}
	publisher := &fakePublisher{}

	service := newTestService(store, classifier, &fakeReputation{}, publisher)
	err := service.Process(context.Background(), "r1")
	require.Error(t, err)

	// The record was in processing, owned by this driver, so the flip lands
	got, getErr := store.GetReport(context.Background(), "r1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusError, got.Status)
	assert.Empty(t, got.Verdict)
	assert.Equal(t, []StatusEvent{
		{ReportID: "r1", Status: StatusProcessing},
		{ReportID: "r1", Status: StatusError},
	}, publisher.events)
}

func TestProcessErrorFlipFailureIsSwallowed(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "hello"))
	store.completeErr = errors.New("disk full")
	store.transitionErr = errors.New("still down")
	store.transitionErrAt = 2
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.9, "fine")}
	publisher := &fakePublisher{}

	service := newTestService(store, classifier, &fakeReputation{}, publisher)
	err := service.Process(context.Background(), "r1")
	require.Error(t, err)

	// No error event when the flip itself failed; the record stays in
	// processing for a reconciliation sweep
	got, getErr := store.GetReport(context.Background(), "r1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, []StatusEvent{{ReportID: "r1", Status: StatusProcessing}}, publisher.events)
}

func TestProcessPublisherFailureDoesNotFailJob(t *testing.T) {
	store := newFakeStore(pendingReport("r1", "hello"))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.9, "fine")}
	publisher := &fakePublisher{err: errors.New("channel gone")}

	service := newTestService(store, classifier, &fakeReputation{}, publisher)
	require.NoError(t, service.Process(context.Background(), "r1"))

	report, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
}

func TestProcessExcerptIsTruncated(t *testing.T) {
	longBody := make([]byte, 5000)
	for i := range longBody {
		longBody[i] = 'a'
	}
	store := newFakeStore(pendingReport("r1", string(longBody)))
	classifier := &fakeClassifier{outcome: okOutcome(VerdictSafe, 0.9, "fine")}

	service := newTestService(store, classifier, &fakeReputation{}, &fakePublisher{})
	require.NoError(t, service.Process(context.Background(), "r1"))

	require.Len(t, classifier.excerpts, 1)
	assert.Len(t, classifier.excerpts[0], 1000)
}
