// Package postgres implements storage.SecretRepository on PostgreSQL for
// deployments where the bot host has no durable disk.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DB wraps the PostgreSQL connection.
type DB struct {
	*sqlx.DB
}

// NewDB opens a connection pool and verifies it.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

// Migrate applies goose migrations from dir.
func (db *DB) Migrate(dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db.DB.DB, dir); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

// Health checks if the database is reachable.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// SecretRepo implements storage.SecretRepository using PostgreSQL.
type SecretRepo struct {
	db *DB
}

// NewSecretRepo creates a new PostgreSQL secret repository.
func NewSecretRepo(db *DB) *SecretRepo {
	return &SecretRepo{db: db}
}

type secretRow struct {
	IV         string `db:"iv"`
	AuthTag    string `db:"auth_tag"`
	Ciphertext string `db:"ciphertext"`
}

// Put upserts the single record for userID.
func (r *SecretRepo) Put(ctx context.Context, userID int64, blob *domain.EncryptedBlob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_secrets (user_id, iv, auth_tag, ciphertext, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id)
		DO UPDATE SET iv = $2, auth_tag = $3, ciphertext = $4, updated_at = now()`,
		userID, blob.IV, blob.AuthTag, blob.Ciphertext,
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet secret: %w", err)
	}
	return nil
}

// Get reads the record for userID.
func (r *SecretRepo) Get(ctx context.Context, userID int64) (*domain.EncryptedBlob, error) {
	var row secretRow
	err := r.db.GetContext(ctx, &row, `
		SELECT iv, auth_tag, ciphertext FROM wallet_secrets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet secret: %w", err)
	}
	return &domain.EncryptedBlob{IV: row.IV, AuthTag: row.AuthTag, Ciphertext: row.Ciphertext}, nil
}

// Exists probes for a record without decoding it.
func (r *SecretRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM wallet_secrets WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to probe wallet secret: %w", err)
	}
	return exists, nil
}
