package openai

import (
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// Factory creates OpenAI classifiers
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new OpenAI factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a new OpenAI classifier from configuration.
// An empty API key yields no classifier; the caller falls back to the
// disabled path.
func (f *Factory) CreateClassifier() (core.Classifier, bool) {
	openaiConfig := f.cfg.GetOpenAI()
	if openaiConfig.APIKey == "" {
		return nil, false
	}

	return NewClassifier(
		openaiConfig.APIKey,
		openaiConfig.ModelName,
		openaiConfig.MaxTokens,
		openaiConfig.Temperature,
		openaiConfig.TopP,
		f.logger,
	), true
}
