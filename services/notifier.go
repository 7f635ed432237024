package services

import (
	"context"
	"log/slog"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/metrics"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
)

// notifier publishes committed state changes. Failures are logged and
// counted, never returned.
type notifier struct {
	publisher realtime.Publisher
	metrics   metrics.Metrics
	logger    *slog.Logger
}

func newNotifier(publisher realtime.Publisher, m metrics.Metrics, logger *slog.Logger) *notifier {
	return &notifier{publisher: publisher, metrics: m, logger: logger}
}

func (n *notifier) publish(ctx context.Context, room string, eventType realtime.EventType, payload any) {
	if n.publisher == nil {
		return
	}
	// The request context may be canceled once the response is written.
	if err := n.publisher.Publish(context.WithoutCancel(ctx), room, eventType, payload); err != nil {
		n.metrics.IncNotificationsFailed()
		n.logger.WarnContext(ctx, "failed to publish event",
			slog.String("room", room), slog.String("type", string(eventType)), slog.Any("error", err))
	}
}
