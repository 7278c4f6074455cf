package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sentinelsec/sentinel/internal/core"
)

// SQL backends persist the indicator list and enrichment map as JSON text.

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReport reads one report row in the shared column order:
// id, created_at, status, verdict, confidence, summary, raw_email,
// extracted_urls, enrichment.
func scanReport(row rowScanner) (*core.AnalysisReport, error) {
	var report core.AnalysisReport
	var status, verdict, urls, enrichment string

	err := row.Scan(&report.ID, &report.CreatedAt, &status, &verdict,
		&report.Confidence, &report.Summary, &report.RawEmail, &urls, &enrichment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	report.Status = core.Status(status)
	report.Verdict = core.Verdict(verdict)
	if report.ExtractedURLs, err = decodeURLs(urls); err != nil {
		return nil, err
	}
	if report.Enrichment, err = decodeEnrichment(enrichment); err != nil {
		return nil, err
	}
	return &report, nil
}

func encodeURLs(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("failed to encode extracted urls: %w", err)
	}
	return string(data), nil
}

func decodeURLs(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(data), &urls); err != nil {
		return nil, fmt.Errorf("failed to decode extracted urls: %w", err)
	}
	return urls, nil
}

func encodeEnrichment(signals map[string]core.ThreatSignal) (string, error) {
	if signals == nil {
		signals = map[string]core.ThreatSignal{}
	}
	data, err := json.Marshal(signals)
	if err != nil {
		return "", fmt.Errorf("failed to encode enrichment: %w", err)
	}
	return string(data), nil
}

func decodeEnrichment(data string) (map[string]core.ThreatSignal, error) {
	if data == "" {
		return map[string]core.ThreatSignal{}, nil
	}
	var signals map[string]core.ThreatSignal
	if err := json.Unmarshal([]byte(data), &signals); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment: %w", err)
	}
	return signals, nil
}
