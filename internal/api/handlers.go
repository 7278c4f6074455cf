package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

const listLimit = 50

// Handlers carries the API's collaborators: the pipeline only ever sees the
// pending record this layer inserts and the job id it enqueues.
type Handlers struct {
	reports     core.ReportStore
	campaigns   core.CampaignStore
	queue       core.JobQueue
	broadcaster *Broadcaster
	logger      *zap.Logger
}

// NewHandlers creates the API handler set
func NewHandlers(
	reports core.ReportStore,
	campaigns core.CampaignStore,
	queue core.JobQueue,
	broadcaster *Broadcaster,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		reports:     reports,
		campaigns:   campaigns,
		queue:       queue,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

type reportCreateRequest struct {
	RawEmail string `json:"raw_email"`
}

type reportResponse struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
	Verdict      string    `json:"verdict,omitempty"`
	AISummary    string    `json:"ai_summary,omitempty"`
	AIConfidence *float64  `json:"ai_confidence,omitempty"`
}

type reportDetailResponse struct {
	reportResponse
	RawEmail      string                       `json:"raw_email"`
	ExtractedURLs []string                     `json:"extracted_urls"`
	Enrichment    map[string]core.ThreatSignal `json:"virustotal_results"`
}

func toReportResponse(report *core.AnalysisReport) reportResponse {
	resp := reportResponse{
		ID:        report.ID,
		CreatedAt: report.CreatedAt,
		Status:    string(report.Status),
	}
	// Verdict fields are only populated on complete records
	if report.Status == core.StatusComplete {
		resp.Verdict = string(report.Verdict)
		resp.AISummary = report.Summary
		confidence := report.Confidence
		resp.AIConfidence = &confidence
	}
	return resp
}

// CreateReport handles POST /api/v1/reports: insert a pending record, then
// enqueue its id for analysis.
func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RawEmail == "" {
		h.writeError(w, http.StatusBadRequest, "raw_email is required")
		return
	}

	report := &core.AnalysisReport{
		ID:            uuid.NewString(),
		RawEmail:      req.RawEmail,
		Status:        core.StatusPending,
		ExtractedURLs: []string{},
		Enrichment:    map[string]core.ThreatSignal{},
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.reports.InsertReport(r.Context(), report); err != nil {
		h.logger.Error("Failed to insert report", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}
	if err := h.queue.Enqueue(r.Context(), report.ID); err != nil {
		h.logger.Error("Failed to enqueue report",
			zap.String("report_id", report.ID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to queue report for analysis")
		return
	}

	h.writeJSON(w, http.StatusAccepted, toReportResponse(report))
}

// ListReports handles GET /api/v1/reports
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListReports(r.Context(), listLimit)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	responses := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, toReportResponse(report))
	}
	h.writeJSON(w, http.StatusOK, responses)
}

// GetReport handles GET /api/v1/reports/{id}
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.reports.GetReport(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get report", zap.String("report_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}

	h.writeJSON(w, http.StatusOK, reportDetailResponse{
		reportResponse: toReportResponse(report),
		RawEmail:       report.RawEmail,
		ExtractedURLs:  report.ExtractedURLs,
		Enrichment:     report.Enrichment,
	})
}

// StreamReportEvents handles GET /api/v1/reports/{id}/events: a
// server-sent-events stream of the report's status transitions.
func (h *Handlers) StreamReportEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	id := chi.URLParam(r, "id")
	listenerID, events := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listenerID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.ReportID != id {
				continue
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if event.Status.IsTerminal() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

type campaignRequest struct {
	Name     string `json:"name"`
	Template string `json:"template"`
	Targets  int    `json:"targets"`
}

type campaignResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	Targets   int       `json:"targets"`
	Opened    int       `json:"opened"`
	Clicked   int       `json:"clicked"`
	Reported  int       `json:"reported"`
	CreatedAt time.Time `json:"created_at"`
}

func toCampaignResponse(campaign *core.Campaign) campaignResponse {
	return campaignResponse{
		ID:        campaign.ID,
		Name:      campaign.Name,
		Template:  campaign.Template,
		Status:    campaign.Status,
		Targets:   campaign.Targets,
		Opened:    campaign.Opened,
		Clicked:   campaign.Clicked,
		Reported:  campaign.Reported,
		CreatedAt: campaign.CreatedAt,
	}
}

// CreateCampaign handles POST /api/v1/campaigns
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	campaign := &core.Campaign{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Template:  req.Template,
		Status:    "draft",
		Targets:   req.Targets,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.campaigns.InsertCampaign(r.Context(), campaign); err != nil {
		h.logger.Error("Failed to insert campaign", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store campaign")
		return
	}
	h.writeJSON(w, http.StatusCreated, toCampaignResponse(campaign))
}

// ListCampaigns handles GET /api/v1/campaigns
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.ListCampaigns(r.Context())
	if err != nil {
		h.logger.Error("Failed to list campaigns", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	responses := make([]campaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		responses = append(responses, toCampaignResponse(campaign))
	}
	h.writeJSON(w, http.StatusOK, responses)
}

// GetCampaign handles GET /api/v1/campaigns/{id}
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	campaign, err := h.campaigns.GetCampaign(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get campaign", zap.String("campaign_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(campaign))
}

// DeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.campaigns.DeleteCampaign(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete campaign", zap.String("campaign_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to delete campaign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}
