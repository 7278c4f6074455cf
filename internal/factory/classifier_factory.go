package factory

import (
	"context"
	"fmt"

	"github.com/sentinelsec/sentinel/internal/adapters/bedrock"
	"github.com/sentinelsec/sentinel/internal/adapters/gemini"
	"github.com/sentinelsec/sentinel/internal/adapters/openai"
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// ClassifierFactory creates classifiers
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a classifier based on the configured provider.
// A provider without credentials yields the disabled classifier, which
// forces the aggregator's fallback path on every job.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		classifier, ok := openai.NewFactory(f.cfg, f.logger).CreateClassifier()
		if !ok {
			f.logger.Warn("OpenAI API key not configured, classification disabled")
			return NewDisabledClassifier(), nil
		}
		return classifier, nil
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateClassifier()
	case "gemini":
		classifier, ok, err := gemini.NewFactory(f.cfg, f.logger).CreateClassifier()
		if err != nil {
			return nil, err
		}
		if !ok {
			f.logger.Warn("Gemini API key not configured, classification disabled")
			return NewDisabledClassifier(), nil
		}
		return classifier, nil
	case "disabled":
		return NewDisabledClassifier(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// DisabledClassifier always reports classification as unavailable
type DisabledClassifier struct{}

// NewDisabledClassifier creates a classifier that never classifies
func NewDisabledClassifier() *DisabledClassifier {
	return &DisabledClassifier{}
}

// Classify always returns the unavailable outcome
func (c *DisabledClassifier) Classify(ctx context.Context, excerpt string, signals map[string]core.ThreatSignal) core.ClassificationOutcome {
	return core.ClassificationUnavailable()
}
