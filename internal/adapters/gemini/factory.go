package gemini

import (
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// Factory creates Gemini classifiers
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Gemini factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a new Gemini classifier from configuration.
// An empty API key yields no classifier; the caller falls back to the
// disabled path.
func (f *Factory) CreateClassifier() (core.Classifier, bool, error) {
	geminiConfig := f.cfg.GetGemini()
	if geminiConfig.APIKey == "" {
		return nil, false, nil
	}

	classifier, err := NewClassifier(
		geminiConfig.APIKey,
		geminiConfig.ModelName,
		geminiConfig.MaxTokens,
		geminiConfig.Temperature,
		geminiConfig.TopP,
		f.logger,
	)
	if err != nil {
		return nil, false, err
	}
	return classifier, true, nil
}
