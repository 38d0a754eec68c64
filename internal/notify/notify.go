// Package notify pushes batch completion summaries to user-configured
// services through shoutrrr. One optional push per batch; failures are
// logged and never affect the batch outcome.
package notify

import (
	"context"
	"io"
	"log"
	"log/slog"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/privacy"
)

// sendTimeout bounds a single delivery attempt across all services.
const sendTimeout = 30 * time.Second

// Notifier sends a titled message to every configured service URL.
// A disabled notifier is valid and does nothing.
type Notifier struct {
	enabled bool
	urls    []string
	sender  *router.ServiceRouter
}

func getLogger() *slog.Logger {
	return slog.Default().With("service", "notify")
}

// NewNotifier builds a notifier from settings. Service URLs are validated
// up front so a bad URL surfaces at startup, not after the batch.
func NewNotifier(settings *conf.NotificationSettings) (*Notifier, error) {
	if settings == nil || !settings.Enabled {
		return &Notifier{}, nil
	}
	if len(settings.Urls) == 0 {
		return nil, errors.Newf("notifications enabled but no service URLs configured").
			Category(errors.CategoryConfiguration).
			Context("operation", "notify-setup").
			Build()
	}

	sender, err := shoutrrr.CreateSender(settings.Urls...)
	if err != nil {
		// Service URLs carry tokens and credentials, scrub before wrapping.
		return nil, errors.New(privacy.WrapError(err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "notify-setup").
			Context("url_count", len(settings.Urls)).
			Build()
	}
	sender.Timeout = sendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Notifier{
		enabled: true,
		urls:    slices.Clone(settings.Urls),
		sender:  sender,
	}, nil
}

// Enabled reports whether sending is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.enabled
}

// Send delivers a titled message to every configured service. Partial
// delivery returns the first failure; the batch treats any error here as
// log-only.
func (n *Notifier) Send(ctx context.Context, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	errs := n.sender.Send(message, &params)
	for _, err := range errs {
		if err != nil {
			return errors.New(privacy.WrapError(err)).
				Category(errors.CategoryNotification).
				Context("operation", "notify-send").
				Build()
		}
	}

	getLogger().Info("Batch summary delivered", "services", len(n.urls))
	return nil
}
