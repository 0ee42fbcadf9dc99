// Package notifier delivers balance change notifications to users.
package notifier

import (
	"context"

	"github.com/kronevakt/kronevakt/internal/domain"
)

// Notifier sends a balance change notification to the event's user.
// Delivery failures are the caller's to log; the stored snapshot is already
// updated by the time a notification goes out and must not be rolled back.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}
