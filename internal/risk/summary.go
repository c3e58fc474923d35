package risk

import (
	"fmt"
	"strings"
)

var labels = map[Question]string{
	BusinessCriticality: "Business Criticality",
	CustomerImpact:      "Customer Impact",
	FinancialImpact:     "Financial Impact",
	SystemComplexity:    "System Complexity",
	ChangeReversibility: "Change Reversibility",
	TestingCoverage:     "Testing Coverage",
	DowntimeRequirement: "Downtime Requirement",
	ResourceRequirement: "Resource Requirement",
	ComplianceImpact:    "Compliance Impact",
}

var riskMessages = map[Level]string{
	Low:      "Low Risk: Minimal risk expected. Standard procedures apply. No special approvals required.",
	Medium:   "Medium Risk: Moderate risk possible. Additional review recommended. Team lead approval required.",
	High:     "High Risk: Significant risk possible. Requires thorough review and approval. Department head approval required.",
	Critical: "Critical Risk: Major risk possible. Requires executive approval. C-level approval required.",
}

var impactMessages = map[Level]string{
	Low:    "Low Impact: Minimal impact on business operations. Limited scope of affected systems.",
	Medium: "Medium Impact: Moderate impact on business operations. Multiple systems affected.",
	High:   "High Impact: Significant impact on business operations. Critical systems affected.",
}

// Label is the human-readable name of q.
func Label(q Question) string {
	if label, ok := labels[q]; ok {
		return label
	}
	return string(q)
}

// RiskMessage explains a risk level.
func RiskMessage(l Level) string { return riskMessages[l] }

// ImpactMessage explains an impact level.
func ImpactMessage(l Level) string { return impactMessages[l] }

// Indicator is a rendered badge next to the questionnaire.
type Indicator struct {
	Class string `json:"class"`
	Text  string `json:"text"`
}

// Indicators returns the impact and risk badges for a, replacing any shown before.
// Nothing is returned for an unassessed questionnaire.
func Indicators(a Assessment) []Indicator {
	if !a.Assessed() {
		return nil
	}
	return []Indicator{
		{Class: "risk-indicator impact-" + string(a.Impact), Text: ImpactMessage(a.Impact)},
		{Class: "risk-indicator risk-" + string(a.Risk), Text: RiskMessage(a.Risk)},
	}
}

// ImpactSummary renders the impact analysis text written into the form.
// Output depends only on a and answers.
func ImpactSummary(a Assessment, answers []Answer) string {
	if !a.Assessed() {
		return ""
	}
	selected := latest(answers)

	var b strings.Builder
	b.WriteString("Impact Analysis Summary:\n")
	fmt.Fprintf(&b, "Level: %s\n\n", a.Impact.Upper())
	b.WriteString("Business Impact Assessment:\n")
	b.WriteString(details(Business, selected))
	b.WriteString("\n\nOperational Impact Assessment:\n")
	b.WriteString(details(Operational, selected))
	fmt.Fprintf(&b, "\n\nOverall Impact: %s", ImpactMessage(a.Impact))
	return b.String()
}

func details(bucket Bucket, selected map[Question]string) string {
	lines := make([]string, 0, bucketSize)
	for _, q := range buckets[bucket] {
		if value, ok := selected[q]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", Label(q), strings.ToUpper(value)))
		}
	}
	return strings.Join(lines, "\n")
}
