package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ReportStore and
// CampaignStore interfaces, used for development and tests
type MemoryStore struct {
	reports   map[string]*core.AnalysisReport
	campaigns map[string]*core.Campaign
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		reports:   make(map[string]*core.AnalysisReport),
		campaigns: make(map[string]*core.Campaign),
		logger:    logger,
	}
}

// InsertReport stores a new report
func (s *MemoryStore) InsertReport(ctx context.Context, report *core.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *report
	s.reports[report.ID] = &clone
	return nil
}

// GetReport retrieves a report by id
func (s *MemoryStore) GetReport(ctx context.Context, id string) (*core.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *report
	return &clone, nil
}

// ListReports returns the most recent reports, newest first
func (s *MemoryStore) ListReports(ctx context.Context, limit int) ([]*core.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*core.AnalysisReport, 0, len(s.reports))
	for _, report := range s.reports {
		clone := *report
		reports = append(reports, &clone)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// TransitionStatus atomically moves a report from one status to another
func (s *MemoryStore) TransitionStatus(ctx context.Context, id string, from, to core.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok || report.Status != from {
		return false, nil
	}
	report.Status = to
	return true, nil
}

// CompleteReport persists all derived fields plus the complete status
func (s *MemoryStore) CompleteReport(ctx context.Context, report *core.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reports[report.ID]
	if !ok {
		return core.ErrNotFound
	}
	stored.Status = core.StatusComplete
	stored.Verdict = report.Verdict
	stored.Confidence = report.Confidence
	stored.Summary = report.Summary
	stored.ExtractedURLs = append([]string(nil), report.ExtractedURLs...)
	stored.Enrichment = make(map[string]core.ThreatSignal, len(report.Enrichment))
	for indicator, signal := range report.Enrichment {
		stored.Enrichment[indicator] = signal
	}
	return nil
}

// InsertCampaign stores a new campaign
func (s *MemoryStore) InsertCampaign(ctx context.Context, campaign *core.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *campaign
	s.campaigns[campaign.ID] = &clone
	return nil
}

// GetCampaign retrieves a campaign by id
func (s *MemoryStore) GetCampaign(ctx context.Context, id string) (*core.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, ok := s.campaigns[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *campaign
	return &clone, nil
}

// ListCampaigns returns all campaigns, newest first
func (s *MemoryStore) ListCampaigns(ctx context.Context) ([]*core.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaigns := make([]*core.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		clone := *campaign
		campaigns = append(campaigns, &clone)
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

// DeleteCampaign removes a campaign
func (s *MemoryStore) DeleteCampaign(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.campaigns, id)
	return nil
}
