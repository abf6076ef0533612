package status

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OnlineCounter is the remote source of the online player count.
type OnlineCounter interface {
	OnlineCount(ctx context.Context) (int, error)
}

// RunPoller polls the online player count on a fixed interval and writes it
// into the monitor. A fetch failure is logged and the last known count stays
// in place, so a flaky endpoint never forces an offline transition. Runs
// until the context is cancelled.
func RunPoller(ctx context.Context, client OnlineCounter, monitor *Monitor, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	poll := func() {
		count, err := client.OnlineCount(ctx)
		if err != nil {
			logger.Warn("online count fetch failed", zap.Error(err))
			return
		}
		monitor.SetCount(count)
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
