package platform

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends notifications and swallows delivery failures after logging them.
type Notifier struct {
	ui     Interface
	logger *zap.Logger
}

// NewNotifier creates a new Notifier instance.
func NewNotifier(ui Interface, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{ui: ui, logger: logger}
}

// Send shows message with the given severity.
func (n *Notifier) Send(ctx context.Context, typ NotificationType, message string) {
	if n.ui == nil {
		n.logger.Error("Client interface not available for notification", zap.String("message", message))
		return
	}
	if err := n.ui.Notify(ctx, Notification{Type: typ, Message: message}); err != nil {
		n.logger.Error("Failed to show notification",
			zap.String("type", string(typ)),
			zap.String("message", message),
			zap.Error(err))
	}
}

func (n *Notifier) Info(ctx context.Context, message string)    { n.Send(ctx, Info, message) }
func (n *Notifier) Success(ctx context.Context, message string) { n.Send(ctx, Success, message) }
func (n *Notifier) Error(ctx context.Context, message string)   { n.Send(ctx, Failure, message) }

// Confirm asks the user to approve c. A failing dialog counts as a refusal.
func (n *Notifier) Confirm(ctx context.Context, c Confirmation) bool {
	if n.ui == nil {
		return false
	}
	ok, err := n.ui.Confirm(ctx, c)
	if err != nil {
		n.logger.Error("Failed to show confirmation", zap.String("title", c.Title), zap.Error(err))
		return false
	}
	return ok
}
