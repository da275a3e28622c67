package wallet

import (
	"context"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/crypto/cipher"
	"github.com/hongbaolabs/hongbao/internal/infra/storage"
)

// Store persists wallet records encrypted under the process master key.
type Store struct {
	repo storage.SecretRepository
	key  []byte
}

func NewStore(repo storage.SecretRepository, masterKey []byte) *Store {
	return &Store{repo: repo, key: masterKey}
}

// Save encrypts and writes the record, replacing any prior one wholesale.
func (s *Store) Save(ctx context.Context, userID int64, rec *domain.WalletRecord) (*domain.EncryptedBlob, error) {
	blob, err := cipher.Encrypt(s.key, rec)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, userID, blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// Load reads and decrypts the record for userID. Missing records surface as
// domain.ErrNotFound, tampered ones as domain.ErrIntegrity.
func (s *Store) Load(ctx context.Context, userID int64) (*domain.WalletRecord, error) {
	blob, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	var rec domain.WalletRecord
	if err := cipher.Decrypt(s.key, blob, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Exists reports whether userID already holds a wallet.
func (s *Store) Exists(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}
