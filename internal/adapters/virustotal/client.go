package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// Client is an implementation of the core.ReputationClient interface against
// the VirusTotal v3 URL API. Every lookup is an independent request; any
// failure means "no signal" for that indicator only.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *zap.Logger
}

// analysisResponse is the subset of the VirusTotal URL object we consume
type analysisResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewClient creates a new VirusTotal client
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Lookup fetches the aggregate analysis stats for a URL indicator
func (c *Client) Lookup(ctx context.Context, indicator string) (core.ThreatSignal, error) {
	// VirusTotal addresses URL objects by the unpadded base64url of the URL
	urlID := base64.RawURLEncoding.EncodeToString([]byte(indicator))
	requestURL := fmt.Sprintf("%s/urls/%s", c.endpoint, urlID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return core.ThreatSignal{}, fmt.Errorf("failed to build reputation request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.ThreatSignal{}, fmt.Errorf("reputation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ThreatSignal{}, fmt.Errorf("reputation service returned status %d", resp.StatusCode)
	}

	var parsed analysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.ThreatSignal{}, fmt.Errorf("failed to decode reputation response: %w", err)
	}

	stats := parsed.Data.Attributes.LastAnalysisStats
	signal := core.ThreatSignal{
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Harmless:   stats.Harmless,
	}

	c.logger.Debug("Reputation lookup succeeded",
		zap.String("indicator", indicator),
		zap.Int("malicious", signal.Malicious),
		zap.Int("suspicious", signal.Suspicious),
		zap.Int("harmless", signal.Harmless))

	return signal, nil
}
