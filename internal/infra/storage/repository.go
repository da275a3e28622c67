// Package storage defines the persistence boundary for encrypted wallet
// material. One logical record per user, addressed by the Telegram user id.
package storage

import (
	"context"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

// SecretRepository stores encrypted blobs keyed by user identity.
// Implementations must return domain.ErrNotFound from Get when no record
// exists. Put overwrites unconditionally: wallet creation is gated by
// Exists at the caller, concurrent writers race last-write-wins.
type SecretRepository interface {
	Put(ctx context.Context, userID int64, blob *domain.EncryptedBlob) error
	Get(ctx context.Context, userID int64) (*domain.EncryptedBlob, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}
