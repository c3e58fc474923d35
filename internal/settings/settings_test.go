package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestValidate(t *testing.T) {
	v := NewValidator(zap.NewNop())

	tests := []struct {
		name     string
		settings Settings
		want     Report
	}{
		{
			name:     "minimal",
			settings: Settings{DefaultRiskLevel: "medium"},
			want:     Report{Message: "Settings validated successfully"},
		},
		{
			name: "everything set",
			settings: Settings{
				DefaultRiskLevel:   "critical",
				NotificationEmail:  "cab@acme.test",
				MaintenanceWindows: `[{"day":"sunday","start":"22:00"}]`,
			},
			want: Report{Message: "Settings validated successfully"},
		},
		{
			name:     "missing risk level",
			settings: Settings{},
			want:     Report{Message: "Validation failed", Errors: []string{"Invalid default risk level"}},
		},
		{
			name:     "unknown risk level",
			settings: Settings{DefaultRiskLevel: "extreme"},
			want:     Report{Message: "Validation failed", Errors: []string{"Invalid default risk level"}},
		},
		{
			name:     "bad email",
			settings: Settings{DefaultRiskLevel: "low", NotificationEmail: "not an email"},
			want:     Report{Message: "Validation failed", Errors: []string{"Invalid notification email"}},
		},
		{
			name:     "windows not json",
			settings: Settings{DefaultRiskLevel: "low", MaintenanceWindows: "sunday"},
			want:     Report{Message: "Validation failed", Errors: []string{"Invalid maintenance windows format"}},
		},
		{
			name:     "windows not an array",
			settings: Settings{DefaultRiskLevel: "low", MaintenanceWindows: `{"day":"sunday"}`},
			want:     Report{Message: "Validation failed", Errors: []string{"Maintenance windows must be an array"}},
		},
		{
			name:     "quoted local part",
			settings: Settings{DefaultRiskLevel: "low", NotificationEmail: `"a b"@c.d`},
			want:     Report{Message: "Validation failed", Errors: []string{"Invalid notification email"}},
		},
		{
			name:     "email without domain dot",
			settings: Settings{DefaultRiskLevel: "low", NotificationEmail: "cab@localhost"},
			want:     Report{Message: "Validation failed", Errors: []string{"Invalid notification email"}},
		},
		{
			name:     "windows null",
			settings: Settings{DefaultRiskLevel: "low", MaintenanceWindows: "null"},
			want:     Report{Message: "Validation failed", Errors: []string{"Maintenance windows must be an array"}},
		},
		{
			name:     "windows empty object",
			settings: Settings{DefaultRiskLevel: "low", MaintenanceWindows: "{}"},
			want:     Report{Message: "Validation failed", Errors: []string{"Maintenance windows must be an array"}},
		},
		{
			name:     "windows empty array",
			settings: Settings{DefaultRiskLevel: "low", MaintenanceWindows: " [] "},
			want:     Report{Message: "Settings validated successfully"},
		},
		{
			name: "all wrong",
			settings: Settings{
				DefaultRiskLevel:   "LOW",
				NotificationEmail:  "a@",
				MaintenanceWindows: `"x"`,
			},
			want: Report{Message: "Validation failed", Errors: []string{
				"Invalid default risk level",
				"Invalid notification email",
				"Maintenance windows must be an array",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.settings)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want.Errors) == 0, got.OK())
		})
	}
}
