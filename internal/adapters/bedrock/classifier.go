package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// systemInstruction is the fixed instruction requesting the exact verdict shape
const systemInstruction = `Analyze this email for threats. Reply with JSON: {"verdict": "Safe"|"Spam"|"Malicious", "confidence": 0-1, "summary": "text"}. Respond only with the JSON object and nothing else.`

// Classifier is an implementation of the core.Classifier interface using
// Amazon Bedrock
type Classifier struct {
	client      *bedrockruntime.Client
	modelID     string
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

// NewClassifier creates a new Bedrock classifier
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *Classifier) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// Classify sends the email excerpt plus enrichment signals to Bedrock and
// parses the structured verdict. Any failure comes back as Unavailable.
func (c *Classifier) Classify(ctx context.Context, excerpt string, signals map[string]core.ThreatSignal) core.ClassificationOutcome {
	prompt := fmt.Sprintf("%s\n\n%s", systemInstruction, buildUserPayload(excerpt, signals))

	// Request payload shape depends on the model family
	var payload []byte
	var err error
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		c.logger.Warn("Failed to marshal Bedrock request payload", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		c.logger.Warn("Classification request failed", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	responseText, err := c.extractResponseText(resp.Body)
	if err != nil {
		c.logger.Warn("Failed to read Bedrock response", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	result, err := parseClassification(responseText)
	if err != nil {
		c.logger.Warn("Failed to parse classification response", zap.Error(err))
		return core.ClassificationUnavailable()
	}

	return core.ClassificationOK(result)
}

// extractResponseText pulls the generated text out of the model-specific
// response envelope.
func (c *Classifier) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(body), nil
	}
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
