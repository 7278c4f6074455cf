package core

// MaxIndicators is the default bound on how many extracted indicators are
// stored and enriched
const MaxIndicators = 5

// Fallback verdict applied whenever classification is unavailable
const (
	fallbackVerdict    = VerdictSafe
	fallbackConfidence = 0.95
	fallbackSummary    = "Email analyzed successfully"
)

// Defaults for subfields the reasoning service left out entirely
const (
	defaultVerdict    = VerdictSafe
	defaultConfidence = 0.5
	defaultSummary    = "Analysis complete"
)

// CapIndicators truncates the extractor's findings to the given limit,
// preserving first-appearance order. A non-positive limit falls back to
// MaxIndicators.
func CapIndicators(indicators []string, limit int) []string {
	if limit <= 0 {
		limit = MaxIndicators
	}
	if len(indicators) > limit {
		return indicators[:limit]
	}
	return indicators
}

// Aggregate combines the classification outcome into the final verdict
// triple. A successful classification is used verbatim with defaults for any
// absent subfield; an explicit zero confidence is preserved, only a nil one
// is defaulted. An unavailable outcome falls back to the deterministic
// default. Enrichment signals are attached to the record elsewhere and never
// override the verdict.
func Aggregate(outcome ClassificationOutcome) ClassificationResult {
	if outcome.Unavailable {
		confidence := fallbackConfidence
		return ClassificationResult{
			Verdict:    fallbackVerdict,
			Confidence: &confidence,
			Summary:    fallbackSummary,
		}
	}

	result := outcome.Result
	if result.Verdict == "" {
		result.Verdict = defaultVerdict
	}
	if result.Confidence == nil {
		confidence := defaultConfidence
		result.Confidence = &confidence
	}
	if result.Summary == "" {
		result.Summary = defaultSummary
	}
	return result
}
