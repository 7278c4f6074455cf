package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// systemInstruction is the fixed instruction requesting the exact verdict shape
const systemInstruction = `Analyze this email for threats. Reply with JSON: {"verdict": "Safe"|"Spam"|"Malicious", "confidence": 0-1, "summary": "text"}. Respond only with the JSON object and nothing else.`

// Classifier is an implementation of the core.Classifier interface using
// Google Gemini
type Classifier struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// classificationResponse represents the structured response from the LLM.
// Confidence stays a pointer so a response that omits the field can be told
// apart from one that reports an explicit zero.
type classificationResponse struct {
	Verdict    string   `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	Summary    string   `json:"summary"`
}

// NewClassifier creates a new Gemini classifier
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*Classifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify sends the email excerpt plus enrichment signals to Gemini and
// parses the structured verdict. Any failure comes back as Unavailable.
func (c *Classifier) Classify(ctx context.Context, excerpt string, signals map[string]core.ThreatSignal) core.ClassificationOutcome {
	prompt := fmt.Sprintf("%s\n\n%s", systemInstruction, buildUserPayload(excerpt, signals))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Warn("Classification request failed", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		c.logger.Warn("Empty response from Gemini")
		return core.ClassificationUnavailable()
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	result, err := parseClassification(responseText.String())
	if err != nil {
		c.logger.Warn("Failed to parse classification response", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	return core.ClassificationOK(result)
}

// buildUserPayload appends the enrichment signals to the email excerpt
func buildUserPayload(excerpt string, signals map[string]core.ThreatSignal) string {
	if len(signals) == 0 {
		return excerpt
	}

	indicators := make([]string, 0, len(signals))
	for indicator := range signals {
		indicators = append(indicators, indicator)
	}
	sort.Strings(indicators)

	var b strings.Builder
	b.WriteString(excerpt)
	b.WriteString("\n\nReputation signals:\n")
	for _, indicator := range indicators {
		signal := signals[indicator]
		fmt.Fprintf(&b, "%s: malicious=%d suspicious=%d harmless=%d\n",
			indicator, signal.Malicious, signal.Suspicious, signal.Harmless)
	}
	return b.String()
}

// parseClassification parses the LLM's JSON response, salvaging a JSON
// object embedded in surrounding prose before giving up.
func parseClassification(responseText string) (core.ClassificationResult, error) {
	var parsed classificationResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.IndexByte(responseText, '{')
		jsonEnd := strings.LastIndexByte(responseText, '}')
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return core.ClassificationResult{}, fmt.Errorf("no JSON object in response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
			return core.ClassificationResult{}, fmt.Errorf("failed to parse response as JSON: %w", err)
		}
	}

	return core.ClassificationResult{
		Verdict:    core.Verdict(parsed.Verdict),
		Confidence: parsed.Confidence,
		Summary:    parsed.Summary,
	}, nil
}
