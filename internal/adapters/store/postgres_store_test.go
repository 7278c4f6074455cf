package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelsec/sentinel/internal/core"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreFromDB(db, zap.NewNop()), mock
}

var reportColumns = []string{
	"id", "created_at", "status", "verdict", "confidence", "summary",
	"raw_email", "extracted_urls", "enrichment",
}

func TestPostgresInsertReport(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WithArgs("r1", createdAt, "pending", "", 0.0, "", "raw body", "[]", "{}").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.InsertReport(context.Background(), &core.AnalysisReport{
		ID:        "r1",
		RawEmail:  "raw body",
		Status:    core.StatusPending,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetReport(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, status, verdict, confidence, summary, raw_email, extracted_urls, enrichment")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(reportColumns).AddRow(
			"r1", createdAt, "complete", "Malicious", 0.9, "Phishing lure",
			"raw body", `["http://a.com"]`, `{"http://a.com":{"malicious":3,"suspicious":0,"harmless":10}}`,
		))

	report, err := s.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusComplete, report.Status)
	assert.Equal(t, core.VerdictMalicious, report.Verdict)
	assert.Equal(t, 0.9, report.Confidence)
	assert.Equal(t, []string{"http://a.com"}, report.ExtractedURLs)
	assert.Equal(t, core.ThreatSignal{Malicious: 3, Harmless: 10}, report.Enrichment["http://a.com"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetReportNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, status")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(reportColumns))

	_, err := s.GetReport(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReports(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow("r2", createdAt, "pending", "", 0.0, "", "b", "[]", "{}").
			AddRow("r1", createdAt.Add(-time.Hour), "complete", "Safe", 0.95, "ok", "a", "[]", "{}"))

	reports, err := s.ListReports(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r2", reports[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransitionStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status = $1 WHERE id = $2 AND status = $3")).
		WithArgs("processing", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := s.TransitionStatus(context.Background(), "r1", core.StatusPending, core.StatusProcessing)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransitionStatusGuarded(t *testing.T) {
	s, mock := newMockStore(t)

	// The report already left pending; the guarded update touches no rows
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status = $1 WHERE id = $2 AND status = $3")).
		WithArgs("processing", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := s.TransitionStatus(context.Background(), "r1", core.StatusPending, core.StatusProcessing)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteReport(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET")).
		WithArgs("complete", "Spam", 0.7, "Bulk mail", `["http://a.com"]`,
			`{"http://a.com":{"malicious":0,"suspicious":1,"harmless":2}}`, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CompleteReport(context.Background(), &core.AnalysisReport{
		ID:            "r1",
		Status:        core.StatusComplete,
		Verdict:       core.VerdictSpam,
		Confidence:    0.7,
		Summary:       "Bulk mail",
		ExtractedURLs: []string{"http://a.com"},
		Enrichment:    map[string]core.ThreatSignal{"http://a.com": {Suspicious: 1, Harmless: 2}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresErrorFlipUsesGuard(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status = $1 WHERE id = $2 AND status = $3")).
		WithArgs("error", "r1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := s.TransitionStatus(context.Background(), "r1", core.StatusProcessing, core.StatusError)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCampaigns(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO campaigns")).
		WithArgs("c1", "Drill", "password-reset", "draft", 100, 0, 0, 0, createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.InsertCampaign(context.Background(), &core.Campaign{
		ID: "c1", Name: "Drill", Template: "password-reset", Status: "draft",
		Targets: 100, CreatedAt: createdAt,
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "template", "status", "targets", "opened", "clicked", "reported", "created_at"}).
			AddRow("c1", "Drill", "password-reset", "draft", 100, 0, 0, 0, createdAt))

	campaign, err := s.GetCampaign(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Drill", campaign.Name)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM campaigns WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteCampaign(context.Background(), "ghost"), core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
