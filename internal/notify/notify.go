/*
Package notify composes event update emails from actionable search results and
hands them to an SMTP transport.
*/
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shanehull/preminder/internal/types"
)

type Status string

const (
	StatusSent         Status = "sent"
	StatusSkippedEmpty Status = "skipped-empty"
	StatusFailed       Status = "failed"
)

// Outcome records what happened to one dispatch. Reason is set only for
// StatusFailed.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Status)
	}
	return fmt.Sprintf("%s(%s)", o.Status, o.Reason)
}

// Sender delivers a rendered message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg *RenderedMessage) error
}

type Renderer interface {
	Render(data NotificationData) (*RenderedMessage, error)
}

type NotificationData struct {
	Label   string
	Results []types.SearchResult
	Footer  string
}

type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

const footer = "This email was sent by preminder."

type Dispatcher struct {
	sender   Sender
	renderer Renderer
	logger   *zap.Logger
}

func NewDispatcher(sender Sender, renderer Renderer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		renderer: renderer,
		logger:   logger.Named("dispatcher"),
	}
}

// ComposeAndSend never returns an error and never panics; every failure is
// reported through the Outcome.
func (d *Dispatcher) ComposeAndSend(ctx context.Context, recipient string, eventLabel string, actionable []types.SearchResult) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{Status: StatusFailed, Reason: fmt.Sprintf("panic: %v", rec)}
		}
		notificationsTotal.WithLabelValues(string(out.Status)).Inc()
	}()

	if len(actionable) == 0 {
		return Outcome{Status: StatusSkippedEmpty}
	}
	if recipient == "" {
		return Outcome{Status: StatusFailed, Reason: "no recipient address"}
	}

	msg, err := d.renderer.Render(NotificationData{
		Label:   eventLabel,
		Results: actionable,
		Footer:  footer,
	})
	if err != nil {
		d.logger.Error("Failed to render notification", zap.String("event", eventLabel), zap.Error(err))
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}

	if err := d.sender.Send(ctx, recipient, msg); err != nil {
		d.logger.Warn("Notification send failed",
			zap.String("to", recipient),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}

	d.logger.Info("Notification sent",
		zap.String("to", recipient),
		zap.String("subject", msg.Subject),
		zap.Int("results", len(actionable)),
	)
	return Outcome{Status: StatusSent}
}
