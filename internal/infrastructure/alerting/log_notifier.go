package alerting

import (
	"context"

	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
)

// LogNotifier writes alerts to the structured log. Critical alerts are logged
// at error level, everything else at warn.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger.Named("alerts")}
}

func (n *LogNotifier) Notify(ctx context.Context, alert usecase.Alert) {
	args := []any{
		"subject", alert.Subject,
		"severity", string(alert.Severity),
		"alert_message", alert.Message,
	}
	if len(alert.Context) > 0 {
		args = append(args, "alert_context", alert.Context)
	}

	if alert.Severity == usecase.AlertSeverityCritical {
		n.logger.ErrorContext(ctx, "alert raised", args...)
		return
	}
	n.logger.WarnContext(ctx, "alert raised", args...)
}

// Fanout delivers every alert to each notifier in order.
type Fanout []usecase.AlertNotifier

func (f Fanout) Notify(ctx context.Context, alert usecase.Alert) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, alert)
		}
	}
}
