package change

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/risk"
	"goflare.io/changedesk/pkg/serialization"
)

// Payload is the createChange request body.
type Payload struct {
	Change Change `json:"change"`
}

// Change is the change record sent to the ticketing API.
type Change struct {
	Subject          string       `json:"subject"`
	Description      string       `json:"description"`
	Risk             risk.Level   `json:"risk"`
	Impact           risk.Level   `json:"impact"`
	ChangeType       string       `json:"change_type"`
	RequesterID      *int64       `json:"requester_id"`
	GroupID          *int64       `json:"group_id"`
	PlannedStartDate string       `json:"planned_start_date"`
	PlannedEndDate   string       `json:"planned_end_date"`
	CustomFields     CustomFields `json:"custom_fields"`
}

// CustomFields are the workspace-specific fields of a change.
type CustomFields struct {
	Workspace           string `json:"workspace"`
	ImplementationGroup string `json:"implementation_group"`
	MaintenanceWindow   string `json:"maintenance_window"`
	AssociatedAssets    []any  `json:"associated_assets"`
	ImpactAnalysis      string `json:"impact_analysis"`
	RolloutPlan         string `json:"rollout_plan"`
	RollbackPlan        string `json:"rollback_plan"`
	PotentialImpact     string `json:"potential_impact"`
}

// ErrNotAssessed is returned when a change is built before any questionnaire answer.
var ErrNotAssessed = models.NewValidationError("Please complete the risk assessment questionnaire")

// BuildPayload maps form fields onto the wire shape. Requester and group IDs
// that do not start with an integer become null. The workspace is always
// the configured one, whatever the form says.
func BuildPayload(fields map[string]string, a risk.Assessment, workspace string) (*Payload, error) {
	if !a.Assessed() {
		return nil, ErrNotAssessed
	}
	assets, err := parseAssets(fields[FieldAssociatedAssets])
	if err != nil {
		return nil, err
	}

	return &Payload{Change: Change{
		Subject:          fields[FieldSubject],
		Description:      fields[FieldDescription],
		Risk:             a.Risk,
		Impact:           a.Impact,
		ChangeType:       fields[FieldChangeType],
		RequesterID:      parseLeadingInt(fields[FieldRequester]),
		GroupID:          parseLeadingInt(fields[FieldDepartment]),
		PlannedStartDate: fields[FieldPlannedStart],
		PlannedEndDate:   fields[FieldPlannedEnd],
		CustomFields: CustomFields{
			Workspace:           workspace,
			ImplementationGroup: fields[FieldImplementationGroup],
			MaintenanceWindow:   fields[FieldMaintenanceWindow],
			AssociatedAssets:    assets,
			ImpactAnalysis:      fields[FieldImpact],
			RolloutPlan:         fields[FieldRolloutPlan],
			RollbackPlan:        fields[FieldRollbackPlan],
			PotentialImpact:     fields[FieldPotentialImpact],
		},
	}}, nil
}

func parseAssets(raw string) ([]any, error) {
	if strings.TrimSpace(raw) == "" {
		return []any{}, nil
	}
	var assets []any
	if err := serialization.Unmarshal([]byte(raw), &assets); err != nil {
		return nil, models.NewValidationError("Associated assets must be a JSON array")
	}
	if assets == nil {
		assets = []any{}
	}
	return assets, nil
}

// parseLeadingInt reads an optionally signed run of digits after leading
// whitespace and ignores the rest. It returns nil when there is none.
func parseLeadingInt(s string) *int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}

	// out of range IDs are sent as null like any other unusable value
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Encode serializes p as sent on the wire.
func Encode(p *Payload) ([]byte, error) {
	return serialization.Marshal(p)
}

// ValidateSize rejects a payload whose serialized form is larger than limit bytes.
func ValidateSize(p *Payload, limit int) ([]byte, error) {
	body, err := Encode(p)
	if err != nil {
		return nil, err
	}
	if len(body) > limit {
		return nil, models.NewValidationError(
			"Change request payload exceeds size limit (%s of %s allowed). Please reduce the content size.",
			humanize.IBytes(uint64(len(body))), humanize.IBytes(uint64(limit)))
	}
	return body, nil
}

// ConfirmationMessage is the text of the dialog shown before submitting.
func ConfirmationMessage(p *Payload) string {
	c := p.Change
	msg := fmt.Sprintf("Change Request Details:\nSubject: %s\nChange Type: %s\nRisk Level: %s\nImpact Level: %s\nPlanned Start: %s\nPlanned End: %s",
		c.Subject, c.ChangeType, c.Risk.Upper(), c.Impact.Upper(),
		formatDateTime(c.PlannedStartDate), formatDateTime(c.PlannedEndDate))
	if c.Risk == risk.High || c.Risk == risk.Critical {
		msg += fmt.Sprintf("\n\n⚠️ WARNING: This change has been assessed as %s risk. CAB approval may be required before implementation.", c.Risk.Upper())
	}
	return msg
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func formatDateTime(value string) string {
	if value == "" {
		return "Not specified"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 2, 2006 3:04 PM")
		}
	}
	return value
}
