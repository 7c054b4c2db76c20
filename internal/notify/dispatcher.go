// Package notify fans alerts out to independent notification channels.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
	"github.com/miradorstack/mirador-sentinel/internal/utils"
)

// Notifier is the contract implemented by external channels (chat, email,
// webhooks). Send must respect the supplied context deadline.
type Notifier interface {
	Name() string
	Send(ctx context.Context, alerts []models.Alert) error
}

// ChannelError records one channel's delivery failure.
type ChannelError struct {
	Channel string
	Err     error
}

// Dispatcher delivers alerts to every channel with per-channel isolation:
// each channel gets its own goroutine and timeout, and the join settles all
// channels before reporting failures. One bad channel never suppresses
// delivery to the rest.
type Dispatcher struct {
	logger   *slog.Logger
	channels []Notifier
	timeout  time.Duration
}

// NewDispatcher constructs a Dispatcher with the given per-channel timeout.
func NewDispatcher(logger *slog.Logger, timeout time.Duration, channels ...Notifier) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{logger: logger, channels: channels, timeout: timeout}
}

// ChannelCount returns the number of configured channels.
func (d *Dispatcher) ChannelCount() int {
	return len(d.channels)
}

// Dispatch sends the alerts to every channel and returns the per-channel
// failures after all channels have settled. An empty alert batch is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []models.Alert) []ChannelError {
	if len(alerts) == 0 || len(d.channels) == 0 {
		return nil
	}

	results := make([]ChannelError, len(d.channels))
	var wg sync.WaitGroup
	for i, channel := range d.channels {
		wg.Add(1)
		go func(i int, channel Notifier) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := channel.Send(sendCtx, alerts); err != nil {
				results[i] = ChannelError{
					Channel: channel.Name(),
					Err:     utils.NewAppError("notify.Send", channel.Name(), err),
				}
			}
		}(i, channel)
	}
	wg.Wait()

	failures := make([]ChannelError, 0)
	for _, res := range results {
		if res.Err != nil {
			failures = append(failures, res)
			d.logger.Warn("notification channel failed",
				slog.String("channel", res.Channel),
				slog.Any("error", res.Err))
		}
	}
	return failures
}
