package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ReportStore and
// CampaignStore interfaces
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			verdict TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT '',
			raw_email TEXT NOT NULL,
			extracted_urls TEXT NOT NULL DEFAULT '[]',
			enrichment TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reports table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			template TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			targets INTEGER NOT NULL DEFAULT 0,
			opened INTEGER NOT NULL DEFAULT 0,
			clicked INTEGER NOT NULL DEFAULT 0,
			reported INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create campaigns table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// InsertReport stores a new report
func (s *SQLiteStore) InsertReport(ctx context.Context, report *core.AnalysisReport) error {
	urls, err := encodeURLs(report.ExtractedURLs)
	if err != nil {
		return err
	}
	enrichment, err := encodeEnrichment(report.Enrichment)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, created_at, status, verdict, confidence, summary, raw_email, extracted_urls, enrichment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.CreatedAt, string(report.Status), string(report.Verdict),
		report.Confidence, report.Summary, report.RawEmail, urls, enrichment)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by id
func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*core.AnalysisReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, status, verdict, confidence, summary, raw_email, extracted_urls, enrichment
		FROM reports
		WHERE id = ?
	`, id)
	return scanReport(row)
}

// ListReports returns the most recent reports, newest first
func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]*core.AnalysisReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, status, verdict, confidence, summary, raw_email, extracted_urls, enrichment
		FROM reports
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*core.AnalysisReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// TransitionStatus atomically moves a report from one status to another
func (s *SQLiteStore) TransitionStatus(ctx context.Context, id string, from, to core.Status) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reports SET status = ? WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition report status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// CompleteReport persists all derived fields plus the complete status in one
// update statement
func (s *SQLiteStore) CompleteReport(ctx context.Context, report *core.AnalysisReport) error {
	urls, err := encodeURLs(report.ExtractedURLs)
	if err != nil {
		return err
	}
	enrichment, err := encodeEnrichment(report.Enrichment)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE reports SET
			status = ?,
			verdict = ?,
			confidence = ?,
			summary = ?,
			extracted_urls = ?,
			enrichment = ?
		WHERE id = ?
	`, string(core.StatusComplete), string(report.Verdict), report.Confidence,
		report.Summary, urls, enrichment, report.ID)
	if err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}
	return nil
}

// InsertCampaign stores a new campaign
func (s *SQLiteStore) InsertCampaign(ctx context.Context, campaign *core.Campaign) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, template, status, targets, opened, clicked, reported, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, campaign.ID, campaign.Name, campaign.Template, campaign.Status,
		campaign.Targets, campaign.Opened, campaign.Clicked, campaign.Reported, campaign.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by id
func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*core.Campaign, error) {
	var campaign core.Campaign
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, template, status, targets, opened, clicked, reported, created_at
		FROM campaigns
		WHERE id = ?
	`, id).Scan(&campaign.ID, &campaign.Name, &campaign.Template, &campaign.Status,
		&campaign.Targets, &campaign.Opened, &campaign.Clicked, &campaign.Reported, &campaign.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

// ListCampaigns returns all campaigns, newest first
func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]*core.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, template, status, targets, opened, clicked, reported, created_at
		FROM campaigns
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*core.Campaign
	for rows.Next() {
		var campaign core.Campaign
		if err := rows.Scan(&campaign.ID, &campaign.Name, &campaign.Template, &campaign.Status,
			&campaign.Targets, &campaign.Opened, &campaign.Clicked, &campaign.Reported, &campaign.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, &campaign)
	}
	return campaigns, rows.Err()
}

// DeleteCampaign removes a campaign
func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
