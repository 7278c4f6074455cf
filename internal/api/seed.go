package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// sampleCampaigns mirror the demo data the dashboard expects
var sampleCampaigns = []core.Campaign{
	{Name: "Q3 Credential Harvest Drill", Template: "password-reset", Status: "active", Targets: 120, Opened: 64, Clicked: 18, Reported: 9},
	{Name: "Invoice Fraud Awareness", Template: "fake-invoice", Status: "active", Targets: 80, Opened: 41, Clicked: 7, Reported: 12},
	{Name: "Holiday Gift Card Scam", Template: "gift-card", Status: "completed", Targets: 200, Opened: 150, Clicked: 35, Reported: 22},
}

var sampleEmails = []string{
	"From: it-support@secure-notice.example\nSubject: Password expires today\n\nYour password expires in 2 hours. Visit http://secure-notice.example/reset immediately to keep access.",
	"From: billing@vendor-portal.example\nSubject: Overdue invoice #8841\n\nPlease review the attached invoice at http://vendor-portal.example/inv/8841 and remit payment.",
	"From: newsletter@community.example\nSubject: Monthly digest\n\nThanks for being a subscriber! This month's highlights are inside.",
}

// Seed handles POST /api/v1/seed: inserts sample campaigns and reports and
// queues the reports for analysis.
func (h *Handlers) Seed(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	for i := range sampleCampaigns {
		campaign := sampleCampaigns[i]
		campaign.ID = uuid.NewString()
		campaign.CreatedAt = now
		if err := h.campaigns.InsertCampaign(r.Context(), &campaign); err != nil {
			h.logger.Error("Failed to seed campaign", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to seed campaigns")
			return
		}
	}

	reportIDs := make([]string, 0, len(sampleEmails))
	for _, email := range sampleEmails {
		report := &core.AnalysisReport{
			ID:            uuid.NewString(),
			RawEmail:      email,
			Status:        core.StatusPending,
			ExtractedURLs: []string{},
			Enrichment:    map[string]core.ThreatSignal{},
			CreatedAt:     now,
		}
		if err := h.reports.InsertReport(r.Context(), report); err != nil {
			h.logger.Error("Failed to seed report", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to seed reports")
			return
		}
		if err := h.queue.Enqueue(r.Context(), report.ID); err != nil {
			h.logger.Error("Failed to enqueue seeded report", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to queue seeded reports")
			return
		}
		reportIDs = append(reportIDs, report.ID)
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"campaigns": len(sampleCampaigns),
		"reports":   reportIDs,
	})
}
