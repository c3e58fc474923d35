package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func worstCase() []Answer {
	return []Answer{
		{BusinessCriticality, "critical"},
		{CustomerImpact, "high"},
		{FinancialImpact, "high"},
		{SystemComplexity, "high"},
		{ChangeReversibility, "irreversible"},
		{TestingCoverage, "none"},
		{DowntimeRequirement, "emergency"},
		{ResourceRequirement, "critical"},
		{ComplianceImpact, "high"},
	}
}

func TestScoreNoAnswers(t *testing.T) {
	a := Score(nil)

	assert.False(t, a.Assessed())
	assert.Equal(t, Level(""), a.Risk)
	assert.Equal(t, Level(""), a.Impact)
	assert.Nil(t, Indicators(a))
	assert.Empty(t, ImpactSummary(a, nil))
}

func TestScoreWorstCase(t *testing.T) {
	a := Score(worstCase())

	assert.InDelta(t, 10.0/3, a.BusinessScore, 1e-9)
	assert.InDelta(t, 11.0/3, a.TechnicalScore, 1e-9)
	assert.InDelta(t, 10.0/3, a.OperationalScore, 1e-9)
	assert.InDelta(t, 3.4667, a.RiskScore, 1e-3)
	assert.InDelta(t, 3.3333, a.ImpactScore, 1e-3)
	assert.Equal(t, Critical, a.Risk)
	assert.Equal(t, High, a.Impact)
}

func TestScoreDividesByThreeRegardlessOfAnsweredCount(t *testing.T) {
	a := Score([]Answer{{BusinessCriticality, "critical"}})

	assert.InDelta(t, 4.0/3, a.BusinessScore, 1e-9)
	assert.Zero(t, a.TechnicalScore)
	assert.Zero(t, a.OperationalScore)
	// risk = 0.3 * 1.333 = 0.4, impact = 0.6 * 1.333 = 0.8
	assert.Equal(t, Low, a.Risk)
	assert.Equal(t, Low, a.Impact)
}

func TestScoreLevels(t *testing.T) {
	tests := []struct {
		name    string
		answers []Answer
		risk    Level
		impact  Level
	}{
		{
			name: "all minimal",
			answers: []Answer{
				{BusinessCriticality, "low"}, {CustomerImpact, "none"}, {FinancialImpact, "none"},
				{SystemComplexity, "low"}, {ChangeReversibility, "easy"}, {TestingCoverage, "comprehensive"},
				{DowntimeRequirement, "none"}, {ResourceRequirement, "minimal"}, {ComplianceImpact, "none"},
			},
			// business 1/3, technical 1, operational 1/3 -> risk 0.6, impact 0.333
			risk:   Low,
			impact: Low,
		},
		{
			name: "technical only maxed",
			answers: []Answer{
				{SystemComplexity, "high"}, {ChangeReversibility, "irreversible"}, {TestingCoverage, "none"},
			},
			// technical 11/3 -> risk 1.467
			risk:   Medium,
			impact: Low,
		},
		{
			name: "elevated technical",
			answers: []Answer{
				{BusinessCriticality, "medium"}, {CustomerImpact, "medium"}, {FinancialImpact, "medium"},
				{SystemComplexity, "high"}, {ChangeReversibility, "difficult"}, {TestingCoverage, "minimal"},
				{DowntimeRequirement, "extended"}, {ResourceRequirement, "extensive"}, {ComplianceImpact, "medium"},
			},
			// business 2, technical 3, operational 7/3 -> risk 2.5, impact 2.133
			risk:   High,
			impact: Medium,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Score(tt.answers)
			assert.Equal(t, tt.risk, a.Risk)
			assert.Equal(t, tt.impact, a.Impact)
		})
	}
}

func TestScoreIgnoresUnknownAndKeepsLastAnswer(t *testing.T) {
	only := Score([]Answer{{Question("colour"), "blue"}, {SystemComplexity, "extreme"}})
	assert.False(t, only.Assessed())

	a := Score([]Answer{{BusinessCriticality, "low"}, {BusinessCriticality, "critical"}})
	assert.InDelta(t, 4.0/3, a.BusinessScore, 1e-9)
}

func TestParseAnswers(t *testing.T) {
	answers, err := ParseAnswers(map[string]string{
		"testingCoverage":     "partial",
		"businessCriticality": "high",
	})
	require.NoError(t, err)
	assert.Equal(t, []Answer{{BusinessCriticality, "high"}, {TestingCoverage, "partial"}}, answers)

	_, err = ParseAnswers(map[string]string{"colour": "blue"})
	assert.Error(t, err)
	_, err = ParseAnswers(map[string]string{"testingCoverage": "lots"})
	assert.Error(t, err)
}

func TestBucketOf(t *testing.T) {
	b, ok := BucketOf(ChangeReversibility)
	assert.True(t, ok)
	assert.Equal(t, Technical, b)

	_, ok = BucketOf(Question("nope"))
	assert.False(t, ok)
}
