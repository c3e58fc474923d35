package server

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"goflare.io/changedesk/internal/platform"
)

// ErrNoSession is returned when a dialog is requested outside an HTTP request.
var ErrNoSession = errors.New("no request session to show the dialog in")

// Session collects what one request showed the user and answers its confirmation.
type Session struct {
	mu            sync.Mutex
	confirm       bool
	notifications []platform.Notification
	confirmations []platform.Confirmation
}

// NewSession creates a new Session that answers every confirmation with confirm.
func NewSession(confirm bool) *Session {
	return &Session{confirm: confirm}
}

// SetConfirm changes the answer given to confirmations.
func (s *Session) SetConfirm(confirm bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm = confirm
}

// Notifications returns the notifications shown so far.
func (s *Session) Notifications() []platform.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]platform.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Confirmations returns the dialogs shown so far.
func (s *Session) Confirmations() []platform.Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]platform.Confirmation, len(s.confirmations))
	copy(out, s.confirmations)
	return out
}

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached to ctx.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}

// UI is a platform.Interface that delivers to the session of the calling request.
type UI struct {
	logger *zap.Logger
}

// NewUI creates a new UI instance.
func NewUI(logger *zap.Logger) *UI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UI{logger: logger}
}

// Notify records n on the request session. Without one it is only logged.
func (u *UI) Notify(ctx context.Context, n platform.Notification) error {
	u.logger.Info("Notification", zap.String("type", string(n.Type)), zap.String("message", n.Message))
	s, ok := SessionFrom(ctx)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

// Confirm records c and returns the session's answer.
func (u *UI) Confirm(ctx context.Context, c platform.Confirmation) (bool, error) {
	s, ok := SessionFrom(ctx)
	if !ok {
		return false, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = append(s.confirmations, c)
	return s.confirm, nil
}
