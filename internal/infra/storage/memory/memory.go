// Package memory holds secret blobs in a process-local map. Used by tests
// and ephemeral deployments where persistence is not wanted.
package memory

import (
	"context"
	"sync"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

type Repo struct {
	mu    sync.RWMutex
	blobs map[int64]domain.EncryptedBlob
}

func NewRepo() *Repo {
	return &Repo{blobs: make(map[int64]domain.EncryptedBlob)}
}

func (r *Repo) Put(ctx context.Context, userID int64, blob *domain.EncryptedBlob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[userID] = *blob
	return nil
}

func (r *Repo) Get(ctx context.Context, userID int64) (*domain.EncryptedBlob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.blobs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := blob
	return &out, nil
}

func (r *Repo) Exists(ctx context.Context, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blobs[userID]
	return ok, nil
}
