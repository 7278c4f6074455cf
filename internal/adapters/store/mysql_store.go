package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ReportStore and CampaignStore
// interfaces
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store. The DSN must include
// parseTime=true so TIMESTAMP columns scan into time.Time.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id VARCHAR(36) PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			status VARCHAR(16) NOT NULL,
			verdict VARCHAR(16) NOT NULL DEFAULT '',
			confidence DOUBLE NOT NULL DEFAULT 0,
			summary TEXT NOT NULL,
			raw_email MEDIUMTEXT NOT NULL,
			extracted_urls TEXT NOT NULL,
			enrichment TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reports table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS campaigns (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			template TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'draft',
			targets INT NOT NULL DEFAULT 0,
			opened INT NOT NULL DEFAULT 0,
			clicked INT NOT NULL DEFAULT 0,
			reported INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create campaigns table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// InsertReport stores a new report
func (s *MySQLStore) InsertReport(ctx context.Context, report *core.AnalysisReport) error {
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
func (s *MySQLStore) GetReport(ctx context.Context, id string) (*core.AnalysisReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, status, verdict, confidence, summary, raw_email, extracted_urls, enrichment
		FROM reports
		WHERE id = ?
	`, id)
	return scanReport(row)
}

// ListReports returns the most recent reports, newest first
func (s *MySQLStore) ListReports(ctx context.Context, limit int) ([]*core.AnalysisReport, error) {
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
func (s *MySQLStore) TransitionStatus(ctx context.Context, id string, from, to core.Status) (bool, error) {
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
func (s *MySQLStore) CompleteReport(ctx context.Context, report *core.AnalysisReport) error {
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
func (s *MySQLStore) InsertCampaign(ctx context.Context, campaign *core.Campaign) error {
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
func (s *MySQLStore) GetCampaign(ctx context.Context, id string) (*core.Campaign, error) {
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
func (s *MySQLStore) ListCampaigns(ctx context.Context) ([]*core.Campaign, error) {
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
func (s *MySQLStore) DeleteCampaign(ctx context.Context, id string) error {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
