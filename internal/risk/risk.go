// Package risk turns the change questionnaire into risk and impact levels.
//
// Each of the nine questions belongs to one of three buckets. A bucket's score
// is the sum of its answered weights divided by three, whether or not all three
// questions were answered, so a missing answer lowers its bucket.
package risk

import (
	"fmt"
	"sort"
	"strings"
)

// Question names a questionnaire category.
type Question string

const (
	BusinessCriticality Question = "businessCriticality"
	CustomerImpact      Question = "customerImpact"
	FinancialImpact     Question = "financialImpact"
	SystemComplexity    Question = "systemComplexity"
	ChangeReversibility Question = "changeReversibility"
	TestingCoverage     Question = "testingCoverage"
	DowntimeRequirement Question = "downtimeRequirement"
	ResourceRequirement Question = "resourceRequirement"
	ComplianceImpact    Question = "complianceImpact"
)

// Bucket groups three questions.
type Bucket string

const (
	Business    Bucket = "business"
	Technical   Bucket = "technical"
	Operational Bucket = "operational"
)

// Level is a risk or impact classification. The zero value means "not assessed".
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

// Upper returns the level in capitals, as shown to users.
func (l Level) Upper() string { return strings.ToUpper(string(l)) }

// Answer is the selected value for one question.
type Answer struct {
	Question Question `json:"question"`
	Value    string   `json:"value"`
}

// Assessment is the derived score set. Risk and Impact are empty when nothing was answered.
type Assessment struct {
	BusinessScore    float64 `json:"business_score"`
	TechnicalScore   float64 `json:"technical_score"`
	OperationalScore float64 `json:"operational_score"`
	RiskScore        float64 `json:"risk_score"`
	ImpactScore      float64 `json:"impact_score"`
	Risk             Level   `json:"risk"`
	Impact           Level   `json:"impact"`
}

// Assessed reports whether at least one valid answer contributed.
func (a Assessment) Assessed() bool { return a.Risk != "" }

const bucketSize = 3

var buckets = map[Bucket][bucketSize]Question{
	Business:    {BusinessCriticality, CustomerImpact, FinancialImpact},
	Technical:   {SystemComplexity, ChangeReversibility, TestingCoverage},
	Operational: {DowntimeRequirement, ResourceRequirement, ComplianceImpact},
}

var noneToHigh = map[string]int{"none": 0, "low": 1, "medium": 2, "high": 3}

var weights = map[Question]map[string]int{
	BusinessCriticality: {"low": 1, "medium": 2, "high": 3, "critical": 4},
	CustomerImpact:      noneToHigh,
	FinancialImpact:     noneToHigh,
	SystemComplexity:    {"low": 1, "medium": 2, "high": 3},
	ChangeReversibility: {"easy": 1, "moderate": 2, "difficult": 3, "irreversible": 4},
	TestingCoverage:     {"comprehensive": 1, "partial": 2, "minimal": 3, "none": 4},
	DowntimeRequirement: {"none": 0, "scheduled": 1, "extended": 2, "emergency": 3},
	ResourceRequirement: {"minimal": 1, "moderate": 2, "extensive": 3, "critical": 4},
	ComplianceImpact:    noneToHigh,
}

// BucketOf returns the bucket q belongs to.
func BucketOf(q Question) (Bucket, bool) {
	for bucket, questions := range buckets {
		for _, member := range questions {
			if member == q {
				return bucket, true
			}
		}
	}
	return "", false
}

// Weight looks up the weight of value for q.
func Weight(q Question, value string) (int, bool) {
	table, ok := weights[q]
	if !ok {
		return 0, false
	}
	w, ok := table[value]
	return w, ok
}

// Score maps answers to bucket scores and levels. Unknown questions or values
// are ignored and a repeated question keeps its last answer.
func Score(answers []Answer) Assessment {
	selected := latest(answers)
	if len(selected) == 0 {
		return Assessment{}
	}

	sums := make(map[Bucket]int, len(buckets))
	for q, value := range selected {
		bucket, _ := BucketOf(q)
		w, _ := Weight(q, value)
		sums[bucket] += w
	}

	a := Assessment{
		BusinessScore:    float64(sums[Business]) / bucketSize,
		TechnicalScore:   float64(sums[Technical]) / bucketSize,
		OperationalScore: float64(sums[Operational]) / bucketSize,
	}
	a.RiskScore = 0.3*a.BusinessScore + 0.4*a.TechnicalScore + 0.3*a.OperationalScore
	a.ImpactScore = 0.6*a.BusinessScore + 0.4*a.OperationalScore
	a.Risk = riskLevel(a.RiskScore)
	a.Impact = impactLevel(a.ImpactScore)
	return a
}

// latest keeps the last valid answer per question.
func latest(answers []Answer) map[Question]string {
	selected := make(map[Question]string, len(answers))
	for _, ans := range answers {
		if _, ok := Weight(ans.Question, ans.Value); ok {
			selected[ans.Question] = ans.Value
		}
	}
	return selected
}

func riskLevel(score float64) Level {
	switch {
	case score >= 3.0:
		return Critical
	case score >= 2.0:
		return High
	case score >= 1.0:
		return Medium
	default:
		return Low
	}
}

func impactLevel(score float64) Level {
	switch {
	case score >= 3.0:
		return High
	case score >= 2.0:
		return Medium
	default:
		return Low
	}
}

// ParseAnswers validates raw question/value pairs coming from a form.
func ParseAnswers(raw map[string]string) ([]Answer, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	answers := make([]Answer, 0, len(raw))
	for _, name := range names {
		q, value := Question(name), raw[name]
		if _, ok := weights[q]; !ok {
			return nil, fmt.Errorf("unknown question %q", name)
		}
		if _, ok := Weight(q, value); !ok {
			return nil, fmt.Errorf("invalid answer %q for question %q", value, name)
		}
		answers = append(answers, Answer{Question: q, Value: value})
	}
	return answers, nil
}
