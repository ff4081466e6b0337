package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes events to the application log. It is wired when no
// broker is configured so lifecycle code never has to nil-check.
type LogDispatcher struct {
	lg *zap.Logger
}

var _ Dispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(lg *zap.Logger) *LogDispatcher {
	return &LogDispatcher{lg: lg}
}

func (d *LogDispatcher) Dispatch(_ context.Context, ev Event) error {
	d.lg.Info("Notification",
		zap.String("kind", ev.Kind),
		zap.String("order_number", ev.Order.OrderNumber),
		zap.String("status", ev.Order.Status),
		zap.Any("extras", ev.Extras),
	)
	return nil
}
