// Package orchestrator composes signed multicalls for the bot's fund-moving
// operations and waits for their on-chain outcome. Every operation is one
// transaction: either all of its calls applied or none did.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/hongbaolabs/hongbao/internal/core/config"
	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
	"github.com/hongbaolabs/hongbao/internal/metrics"
)

// SecretSource yields decrypted wallet records. Satisfied by wallet.Store.
type SecretSource interface {
	Load(ctx context.Context, userID int64) (*domain.WalletRecord, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Locker guards against overlapping submissions from one user.
type Locker interface {
	Acquire(ctx context.Context, userID int64) (bool, error)
	Release(ctx context.Context, userID int64) error
}

// MemoryLocker is the single-process Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[int64]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[int64]bool)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, userID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[userID] {
		return false, nil
	}
	l.held[userID] = true
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, userID)
	return nil
}

// Config holds the parsed contract addresses and policy amounts.
type Config struct {
	ETH              *big.Int
	Points           *big.Int
	Gift             *big.Int
	Market           *big.Int
	AccountClassHash *big.Int

	Faucet          ledger.Identity
	FaucetThreshold *big.Int // wei
	FaucetDrop      *big.Int // wei
	PointsDrop      *big.Int // wei

	GiftExpiry     time.Duration
	ValidateSecret bool

	// SubmitTimeout bounds one submit-and-wait cycle so a never-landing
	// transaction cannot hold a user's submit lock forever.
	SubmitTimeout time.Duration
}

// BuildConfig parses the application configuration into orchestrator form.
func BuildConfig(app *config.AppConfig) (Config, error) {
	cfg := Config{
		GiftExpiry:     app.Gift.Expiry,
		ValidateSecret: app.Gift.ValidateSecret,
		SubmitTimeout:  app.Ledger.Timeout,
	}

	var err error
	parse := func(name, value string) *big.Int {
		if err != nil {
			return nil
		}
		var v *big.Int
		if v, err = starkcurve.ParseFelt(value); err != nil {
			err = fmt.Errorf("parse %s: %w", name, err)
		}
		return v
	}

	cfg.ETH = parse("contracts.eth", app.Ledger.Contracts.ETH)
	cfg.Points = parse("contracts.points", app.Ledger.Contracts.Points)
	cfg.Gift = parse("contracts.gift", app.Ledger.Contracts.Gift)
	cfg.Market = parse("contracts.market", app.Ledger.Contracts.Market)
	cfg.AccountClassHash = parse("contracts.account_class_hash", app.Ledger.Contracts.AccountClassHash)
	cfg.Faucet.Address = parse("faucet.address", app.Faucet.Address)
	cfg.Faucet.PrivateKey = parse("faucet.private_key", app.Faucet.PrivateKey)
	if err != nil {
		return Config{}, err
	}

	if cfg.FaucetThreshold, err = ParseAmount(app.Faucet.Threshold); err != nil {
		return Config{}, fmt.Errorf("parse faucet.threshold: %w", err)
	}
	if cfg.FaucetDrop, err = ParseAmount(app.Faucet.Drop); err != nil {
		return Config{}, fmt.Errorf("parse faucet.drop: %w", err)
	}
	if cfg.PointsDrop, err = ParseAmount(app.Faucet.PointsDrop); err != nil {
		return Config{}, fmt.Errorf("parse faucet.points_drop: %w", err)
	}
	return cfg, nil
}

// Orchestrator executes operations on behalf of users.
type Orchestrator struct {
	gateway ledger.Gateway
	secrets SecretSource
	locker  Locker
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// New creates an orchestrator.
func New(gateway ledger.Gateway, secrets SecretSource, locker Locker, cfg Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway: gateway,
		secrets: secrets,
		locker:  locker,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// identityFor loads and parses the user's signing identity.
func (o *Orchestrator) identityFor(ctx context.Context, userID int64) (ledger.Identity, *domain.WalletRecord, error) {
	rec, err := o.secrets.Load(ctx, userID)
	if err != nil {
		return ledger.Identity{}, nil, err
	}
	address, err := starkcurve.ParseFelt(rec.Address)
	if err != nil {
		return ledger.Identity{}, nil, domain.Wrap(domain.CodeIntegrity, err, "stored address unreadable")
	}
	privateKey, err := starkcurve.ParseFelt(rec.PrivateKey)
	if err != nil {
		return ledger.Identity{}, nil, domain.Wrap(domain.CodeIntegrity, err, "stored key unreadable")
	}
	return ledger.Identity{Address: address, PrivateKey: privateKey}, rec, nil
}

// withSubmitLock serializes fund-moving work per user and bounds it with
// the submit timeout. The lock is released with the original context so a
// timed-out cycle still frees the user.
func (o *Orchestrator) withSubmitLock(ctx context.Context, userID int64, fn func(context.Context) error) error {
	acquired, err := o.locker.Acquire(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquire submit lock: %w", err)
	}
	if !acquired {
		return domain.E(domain.CodeBusy, "another submission is already in flight")
	}
	defer func() {
		if err := o.locker.Release(ctx, userID); err != nil {
			o.log.Warn("failed to release submit lock", "user_id", userID, "error", err)
		}
	}()

	runCtx := ctx
	if o.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.SubmitTimeout)
		defer cancel()
	}
	return fn(runCtx)
}

// submit runs the multicall under the user's submit lock and waits for
// finality, recording the outcome.
func (o *Orchestrator) submit(ctx context.Context, op string, userID int64, sender ledger.Identity, calls []ledger.Call) (*ledger.Receipt, error) {
	var receipt *ledger.Receipt
	err := o.withSubmitLock(ctx, userID, func(ctx context.Context) error {
		txHash, err := o.gateway.SubmitMulticall(ctx, sender, calls)
		if err != nil {
			return err
		}
		receipt, err = o.gateway.WaitForFinality(ctx, txHash)
		return err
	})
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	metrics.SubmissionsTotal.WithLabelValues(op, "ok").Inc()

	o.log.Info("operation confirmed", "operation", op, "user_id", userID, "tx_hash", receipt.TxHash)
	return receipt, nil
}

// tokenBalance reads an ERC20-style balance as a single value.
func (o *Orchestrator) tokenBalance(ctx context.Context, token, holder *big.Int) (*big.Int, error) {
	result, err := o.gateway.CallView(ctx, token, "balanceOf", []*big.Int{holder})
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("malformed balance result: %d felts", len(result))
	}
	return combineU256(result[0], result[1]), nil
}

// Balances holds a user's token balances in wei.
type Balances struct {
	Address string
	ETH     *big.Int
	Points  *big.Int
}

// Balance reads the user's ETH and points balances.
func (o *Orchestrator) Balance(ctx context.Context, userID int64) (*Balances, error) {
	identity, rec, err := o.identityFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	eth, err := o.tokenBalance(ctx, o.cfg.ETH, identity.Address)
	if err != nil {
		return nil, err
	}
	points, err := o.tokenBalance(ctx, o.cfg.Points, identity.Address)
	if err != nil {
		return nil, err
	}
	return &Balances{Address: rec.Address, ETH: eth, Points: points}, nil
}
