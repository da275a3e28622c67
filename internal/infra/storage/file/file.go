// Package file implements storage.SecretRepository on the local filesystem:
// one directory per user under a configured root, holding a single
// wallet.enc with the JSON-encoded encrypted blob.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

const recordName = "wallet.enc"

// Repo is the filesystem-backed secret repository.
type Repo struct {
	root string
}

// NewRepo creates the repository rooted at dir, creating it if needed.
func NewRepo(root string) (*Repo, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Repo{root: root}, nil
}

func (r *Repo) recordPath(userID int64) string {
	return filepath.Join(r.root, strconv.FormatInt(userID, 10), recordName)
}

// Put writes the blob for userID, replacing any previous record.
func (r *Repo) Put(ctx context.Context, userID int64, blob *domain.EncryptedBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode blob: %w", err)
	}

	userDir := filepath.Dir(r.recordPath(userID))
	if err := os.MkdirAll(userDir, 0o700); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	if err := os.WriteFile(r.recordPath(userID), data, 0o600); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Get reads the blob for userID.
func (r *Repo) Get(ctx context.Context, userID int64) (*domain.EncryptedBlob, error) {
	data, err := os.ReadFile(r.recordPath(userID))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var blob domain.EncryptedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &blob, nil
}

// Exists reports whether a record is present without reading it.
func (r *Repo) Exists(ctx context.Context, userID int64) (bool, error) {
	_, err := os.Stat(r.recordPath(userID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
