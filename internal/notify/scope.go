package notify

import (
	"context"
	"time"

	"golang.org/x/text/message"

	"github.com/iliyamo/lube-storefront/internal/i18n"
)

// Scope binds a hub to one audience and one language so components can
// publish without knowing who is looking.
type Scope struct {
	hub      *Hub
	audience string
	p        *message.Printer
}

func NewScope(h *Hub, audience string, p *message.Printer) Scope {
	return Scope{hub: h, audience: audience, p: p}
}

func (s Scope) Audience() string { return s.audience }

// T translates a message key.
func (s Scope) T(key string, args ...any) string {
	if s.p == nil {
		return key
	}
	return s.p.Sprintf(key, args...)
}

func (s Scope) Info(msg string) string    { return s.publish(msg, SeverityInfo, DefaultDuration) }
func (s Scope) Success(msg string) string { return s.publish(msg, SeveritySuccess, DefaultDuration) }
func (s Scope) Warning(msg string) string { return s.publish(msg, SeverityWarning, DefaultDuration) }
func (s Scope) Error(msg string) string   { return s.publish(msg, SeverityError, ErrorDuration) }

// Confirm publishes a sticky warning with Confirm and Cancel actions.
// onDecide runs once with the visitor's choice; if the notification is
// dismissed instead, it never runs.
func (s Scope) Confirm(msg string, onDecide func(ctx context.Context, confirmed bool)) string {
	return s.hub.Publish(s.audience, Notification{
		Message:  msg,
		Severity: SeverityWarning,
		Actions: []Action{
			{Label: s.T(i18n.MsgConfirm), Run: func(ctx context.Context) { onDecide(ctx, true) }},
			{Label: s.T(i18n.MsgCancel), Run: func(ctx context.Context) { onDecide(ctx, false) }},
		},
	})
}

func (s Scope) publish(msg string, sev Severity, d time.Duration) string {
	return s.hub.Publish(s.audience, Notification{Message: msg, Severity: sev, Duration: d})
}
