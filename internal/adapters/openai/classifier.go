package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// systemInstruction is the fixed instruction requesting the exact verdict
// shape; any response that does not parse as it is a classification failure.
const systemInstruction = `Analyze this email for threats. Reply with JSON: {"verdict": "Safe"|"Spam"|"Malicious", "confidence": 0-1, "summary": "text"}. Respond only with the JSON object and nothing else.`

// Classifier is an implementation of the core.Classifier interface using
// OpenAI chat completions
type Classifier struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// classificationResponse represents the structured response from the LLM.
// Confidence stays a pointer so a response that omits the field can be told
// apart from one that reports an explicit zero.
type classificationResponse struct {
	Verdict    string   `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	Summary    string   `json:"summary"`
}

// NewClassifier creates a new OpenAI classifier
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Classifier {
	client := openai.NewClient(apiKey)

	return &Classifier{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Classify sends the email excerpt plus enrichment signals to OpenAI and
// parses the structured verdict. Any failure comes back as Unavailable.
func (c *Classifier) Classify(ctx context.Context, excerpt string, signals map[string]core.ThreatSignal) core.ClassificationOutcome {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPayload(excerpt, signals),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("Classification request failed", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("Empty response from OpenAI")
		return core.ClassificationUnavailable()
	}

	result, err := parseClassification(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("Failed to parse classification response", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	return core.ClassificationOK(result)
}

// buildUserPayload appends the enrichment signals to the email excerpt so
// the reasoning service can weigh reputation context.
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
