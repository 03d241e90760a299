// Package tokens stores the active session tokens of each user, one row per
// token, ordered by insertion.
package tokens

import "context"

type Repository interface {
	Add(ctx context.Context, userID string, token string) error
	// Delete removes a single token. Removing a token that is already gone is
	// not an error.
	Delete(ctx context.Context, userID string, token string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}
