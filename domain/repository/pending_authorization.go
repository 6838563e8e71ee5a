package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IPendingAuthorization keeps in-flight authorization state between the
// redirect out and the callback in. Entries are single-use and expire on a
// TTL so abandoned flows cannot accumulate or be replayed.
type IPendingAuthorization interface {
	Save(ctx context.Context, pending *model.PendingAuthorization) error
	// Consume atomically retrieves and deletes the entry. Returns
	// model.ErrInvalidOrExpiredState when absent or past its window.
	Consume(ctx context.Context, state string) (*model.PendingAuthorization, error)
}
