package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confidenceOf(v float64) *float64 {
	return &v
}

func TestAggregateUnavailableFallsBack(t *testing.T) {
	result := Aggregate(ClassificationUnavailable())

	assert.Equal(t, VerdictSafe, result.Verdict)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.95, *result.Confidence)
	assert.Equal(t, "Email analyzed successfully", result.Summary)
}

func TestAggregateUsesClassificationVerbatim(t *testing.T) {
	result := Aggregate(ClassificationOK(ClassificationResult{
		Verdict:    VerdictMalicious,
		Confidence: confidenceOf(0.87),
		Summary:    "Credential phishing attempt",
	}))

	assert.Equal(t, VerdictMalicious, result.Verdict)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.87, *result.Confidence)
	assert.Equal(t, "Credential phishing attempt", result.Summary)
}

func TestAggregateDefaultsAbsentSubfields(t *testing.T) {
	tests := []struct {
		name     string
		partial  ClassificationResult
		expected ClassificationResult
	}{
		{
			name:     "all subfields absent",
			partial:  ClassificationResult{},
			expected: ClassificationResult{Verdict: VerdictSafe, Confidence: confidenceOf(0.5), Summary: "Analysis complete"},
		},
		{
			name:     "verdict absent",
			partial:  ClassificationResult{Confidence: confidenceOf(0.8), Summary: "Looks fine"},
			expected: ClassificationResult{Verdict: VerdictSafe, Confidence: confidenceOf(0.8), Summary: "Looks fine"},
		},
		{
			name:     "confidence absent",
			partial:  ClassificationResult{Verdict: VerdictSpam, Summary: "Bulk mail"},
			expected: ClassificationResult{Verdict: VerdictSpam, Confidence: confidenceOf(0.5), Summary: "Bulk mail"},
		},
		{
			name:     "summary absent",
			partial:  ClassificationResult{Verdict: VerdictSpam, Confidence: confidenceOf(0.7)},
			expected: ClassificationResult{Verdict: VerdictSpam, Confidence: confidenceOf(0.7), Summary: "Analysis complete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Aggregate(ClassificationOK(tt.partial)))
		})
	}
}

func TestAggregatePreservesExplicitZeroConfidence(t *testing.T) {
	// Only an absent confidence is defaulted; a reported zero survives
	result := Aggregate(ClassificationOK(ClassificationResult{
		Verdict:    VerdictSpam,
		Confidence: confidenceOf(0),
		Summary:    "Uncertain bulk mail",
	}))

	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.0, *result.Confidence)
	assert.Equal(t, VerdictSpam, result.Verdict)
}

func TestCapIndicators(t *testing.T) {
	t.Run("under the cap", func(t *testing.T) {
		indicators := []string{"http://a.com", "http://b.com"}
		assert.Equal(t, indicators, CapIndicators(indicators, 5))
	})

	t.Run("at the cap", func(t *testing.T) {
		indicators := []string{"a", "b", "c", "d", "e"}
		assert.Equal(t, indicators, CapIndicators(indicators, 5))
	})

	t.Run("over the cap keeps first five", func(t *testing.T) {
		indicators := []string{"a", "b", "c", "d", "e", "f", "g"}
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, CapIndicators(indicators, 5))
	})

	t.Run("configured limit wins", func(t *testing.T) {
		indicators := []string{"a", "b", "c"}
		assert.Equal(t, []string{"a", "b"}, CapIndicators(indicators, 2))
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		indicators := []string{"a", "b", "c", "d", "e", "f"}
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, CapIndicators(indicators, 0))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, CapIndicators([]string{}, 5))
	})
}
