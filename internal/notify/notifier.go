// Package notify delivers outbound notifications. The core treats delivery
// as fire-and-forget: failures are logged by callers and retried only by
// the natural cadence of the escalation sweep.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends a templated notification to a recipient list.
type Notifier interface {
	Send(ctx context.Context, recipients []string, template string, variables map[string]any) error
}

// LogNotifier writes notifications to the structured log. It is the default
// sink in development and the fallback when no transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs the log sink.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification payload.
func (n *LogNotifier) Send(ctx context.Context, recipients []string, template string, variables map[string]any) error {
	n.logger.Info("notification",
		zap.Strings("recipients", recipients),
		zap.String("template", template),
		zap.Any("variables", variables))
	return nil
}
