// Package settings validates the administrator settings screen.
package settings

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Settings is the object the settings screen submits.
type Settings struct {
	DefaultRiskLevel   string `json:"defaultRiskLevel" validate:"required,oneof=low medium high critical"`
	NotificationEmail  string `json:"notificationEmail,omitempty" validate:"omitempty,email,plain_email"`
	MaintenanceWindows string `json:"maintenanceWindows,omitempty" validate:"omitempty,json,json_array"`
}

// Report is returned to the settings screen.
type Report struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// OK reports whether the settings passed.
func (r Report) OK() bool { return len(r.Errors) == 0 }

const (
	messageFailed = "Validation failed"
	messageOK     = "Settings validated successfully"
)

// messages maps a failing field and tag to the text shown for it.
var messages = map[string]map[string]string{
	"DefaultRiskLevel": {
		"": "Invalid default risk level",
	},
	"NotificationEmail": {
		"": "Invalid notification email",
	},
	"MaintenanceWindows": {
		"json":       "Invalid maintenance windows format",
		"json_array": "Maintenance windows must be an array",
	},
}

// Validator checks Settings. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	logger   *zap.Logger
}

// NewValidator creates a new Validator instance.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("json_array", isJSONArray)
	_ = v.RegisterValidation("plain_email", isPlainEmail)
	return &Validator{validate: v, logger: logger}
}

// Validate checks s and lists every problem in field order.
func (v *Validator) Validate(s Settings) Report {
	err := v.validate.Struct(s)
	if err == nil {
		return Report{Message: messageOK}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("Settings validation could not run", zap.Error(err))
		return Report{Message: messageFailed, Errors: []string{err.Error()}}
	}

	report := Report{Message: messageFailed}
	for _, fe := range fieldErrs {
		report.Errors = append(report.Errors, messageFor(fe))
	}
	v.logger.Info("Settings rejected", zap.Strings("errors", report.Errors))
	return report
}

func messageFor(fe validator.FieldError) string {
	byTag := messages[fe.StructField()]
	if msg, ok := byTag[fe.Tag()]; ok {
		return msg
	}
	if msg, ok := byTag[""]; ok {
		return msg
	}
	return "Invalid " + strings.ToLower(fe.Field())
}

// plainEmail is what the settings screen has always accepted: no whitespace,
// one @ and a dot in the domain.
var plainEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func isPlainEmail(fl validator.FieldLevel) bool {
	return plainEmail.MatchString(fl.Field().String())
}

// isJSONArray accepts only an array; null decodes without error but is not one.
func isJSONArray(fl validator.FieldLevel) bool {
	var windows []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(fl.Field().String())), &windows); err != nil {
		return false
	}
	return windows != nil
}
