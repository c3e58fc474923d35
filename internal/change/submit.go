package change

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/risk"
)

var (
	// ErrMissingRequester is returned when no requester was selected.
	ErrMissingRequester = models.NewValidationError("Please select a requester")
	// ErrMissingDepartment is returned when no department was selected.
	ErrMissingDepartment = models.NewValidationError("Please select a department")
)

// Outcome of a submission.
type Outcome string

const (
	Created  Outcome = "created"
	Declined Outcome = "declined"
	Rejected Outcome = "rejected"
	Failed   Outcome = "failed"
)

// Caller issues a call that must not be repeated.
type Caller interface {
	InvokeOnce(ctx context.Context, name string, req platform.Request) (*platform.Response, error)
}

// Result describes what happened to one submission.
type Result struct {
	DraftID    string          `json:"draft_id"`
	Outcome    Outcome         `json:"outcome"`
	ChangeID   int64           `json:"change_id,omitempty"`
	Assessment risk.Assessment `json:"assessment"`
	Payload    *Payload        `json:"payload,omitempty"`
}

// Preview is the confirmation a submission would show, computed without any call.
type Preview struct {
	Assessment   risk.Assessment       `json:"assessment"`
	Summary      string                `json:"impact_summary"`
	Indicators   []risk.Indicator      `json:"indicators"`
	Payload      *Payload              `json:"payload"`
	Confirmation platform.Confirmation `json:"confirmation"`
	Size         int                   `json:"size"`
}

// Submitter runs the submission flow for a Form.
type Submitter struct {
	caller     Caller
	notifier   *platform.Notifier
	workspace  string
	maxPayload int
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewSubmitter creates a new Submitter instance.
func NewSubmitter(caller Caller, notifier *platform.Notifier, cfg *config.Config) *Submitter {
	return &Submitter{
		caller:     caller,
		notifier:   notifier,
		workspace:  cfg.Workspace,
		maxPayload: cfg.SubmitConfig.MaxPayloadBytes,
		tracer:     otel.Tracer("changedesk/change"),
		logger:     cfg.Logger,
	}
}

// Assess scores answers and writes the impact summary into the form.
func (s *Submitter) Assess(form *Form, answers []risk.Answer) risk.Assessment {
	a := risk.Score(answers)
	form.Set(FieldImpact, risk.ImpactSummary(a, answers))
	return a
}

// Prepare assesses the form, builds the payload and checks its size.
func (s *Submitter) Prepare(form *Form, answers []risk.Answer) (*Preview, []byte, error) {
	a := s.Assess(form, answers)
	payload, err := BuildPayload(form.Values(), a, s.workspace)
	if err != nil {
		return nil, nil, err
	}
	body, err := ValidateSize(payload, s.maxPayload)
	if err != nil {
		return nil, nil, err
	}
	return &Preview{
		Assessment:   a,
		Summary:      form.Get(FieldImpact),
		Indicators:   risk.Indicators(a),
		Payload:      payload,
		Confirmation: Confirmation(payload),
		Size:         len(body),
	}, body, nil
}

// Confirmation builds the dialog shown before submitting p.
func Confirmation(p *Payload) platform.Confirmation {
	return platform.Confirmation{
		Title:       "Confirm Change Request",
		Message:     ConfirmationMessage(p),
		SaveLabel:   "Submit",
		CancelLabel: "Cancel",
	}
}

// Submit validates the required selections, builds the payload, asks for
// confirmation and creates the change. Every failure ends in exactly one
// notification. Declining the dialog is not an error.
func (s *Submitter) Submit(ctx context.Context, form *Form, answers []risk.Answer) (res *Result, err error) {
	res = &Result{DraftID: uuid.NewString()}
	ctx, span := s.tracer.Start(ctx, "Submitter.Submit", trace.WithAttributes(attribute.String("draft_id", res.DraftID)))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	logger := s.logger.With(zap.String("draft_id", res.DraftID))

	switch {
	case form.Get(FieldRequester) == "":
		res.Outcome = Rejected
		s.notifier.Error(ctx, models.UserMessage(ErrMissingRequester))
		return res, ErrMissingRequester
	case form.Get(FieldDepartment) == "":
		res.Outcome = Rejected
		s.notifier.Error(ctx, models.UserMessage(ErrMissingDepartment))
		return res, ErrMissingDepartment
	}

	preview, body, err := s.Prepare(form, answers)
	if err != nil {
		return s.fail(ctx, logger, res, err)
	}
	res.Assessment = preview.Assessment
	res.Payload = preview.Payload

	if !s.notifier.Confirm(ctx, preview.Confirmation) {
		logger.Info("Change request not confirmed")
		res.Outcome = Declined
		return res, nil
	}

	resp, err := s.caller.InvokeOnce(ctx, platform.CreateChange, platform.Request{Body: body})
	if err != nil {
		return s.fail(ctx, logger, res, err)
	}
	if resp.Status != http.StatusCreated {
		return s.fail(ctx, logger, res, &models.APIError{Status: resp.Status, Message: "Failed to create change request"})
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := resp.Decode(&created); err != nil {
		logger.Warn("Created change has an unreadable body", zap.Error(err))
	}
	res.ChangeID = created.ID
	res.Outcome = Created

	s.notifier.Success(ctx, fmt.Sprintf("Change request created successfully with ID: %d", created.ID))
	form.Reset()
	logger.Info("Change request created", zap.Int64("change_id", created.ID), zap.String("risk", string(res.Assessment.Risk)))
	return res, nil
}

func (s *Submitter) fail(ctx context.Context, logger *zap.Logger, res *Result, err error) (*Result, error) {
	logger.Error("Change request submission failed", zap.Error(err))
	res.Outcome = Failed
	s.notifier.Error(ctx, FailureMessage(err))
	return res, err
}

// FailureMessage is the single notification shown when a submission fails.
func FailureMessage(err error) string {
	msg := models.UserMessage(err)
	if msg == models.UnknownErrorMessage {
		msg = err.Error()
	}
	return "An error occurred. " + msg
}
