package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"regexp"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
)

// Gift contract event data layouts:
//
//	GiftCreated: [gift_id, creator, token, amount_low, amount_high, secret]
//	GiftClaimed: [claimer, amount_low, amount_high]
const (
	giftCreatedSecretIndex = 5
	giftClaimedAmountIndex = 1
)

var secretPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// GiftResult reports a created red envelope.
type GiftResult struct {
	Amount *big.Int
	Count  int
	Secret string
	TxHash string
}

// ClaimResult reports a claimed share.
type ClaimResult struct {
	Amount *big.Int
	TxHash string
}

// CreateGift funds a red envelope splittable into count shares, unlocked by
// the secret returned in the result.
func (o *Orchestrator) CreateGift(ctx context.Context, userID int64, amount *big.Int, count int) (*GiftResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, domain.E(domain.CodeInvalidInput, "amount must be positive")
	}
	if count <= 0 {
		return nil, domain.E(domain.CodeInvalidInput, "share count must be positive")
	}

	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance, err := o.tokenBalance(ctx, o.cfg.ETH, identity.Address)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, domain.E(domain.CodeInsufficientBalance, "balance is below the gift amount")
	}

	expiry := o.now().Add(o.cfg.GiftExpiry).Unix()
	low, high := splitU256(amount)
	calls := []ledger.Call{
		{
			To:         o.cfg.ETH,
			Entrypoint: "approve",
			Calldata:   []*big.Int{o.cfg.Gift, low, high},
		},
		{
			To:         o.cfg.Gift,
			Entrypoint: "create_gift",
			Calldata: []*big.Int{
				o.cfg.ETH,
				big.NewInt(0), // equal-split distribution
				big.NewInt(expiry),
				big.NewInt(int64(count)),
				low,
				high,
			},
		},
	}

	receipt, err := o.submit(ctx, "create_gift", userID, identity, calls)
	if err != nil {
		return nil, err
	}

	event, ok := ledger.EventByName(receipt, o.cfg.Gift, "GiftCreated")
	if !ok || len(event.Data) <= giftCreatedSecretIndex {
		o.log.Error("gift creation receipt carries no usable event", "tx_hash", receipt.TxHash)
		return nil, fmt.Errorf("gift creation event missing from receipt %s", receipt.TxHash)
	}

	return &GiftResult{
		Amount: amount,
		Count:  count,
		Secret: fmt.Sprintf("0x%064x", event.Data[giftCreatedSecretIndex]),
		TxHash: receipt.TxHash,
	}, nil
}

// ClaimGift redeems one share of a red envelope with its secret. The secret
// travels to the contract as entered unless shape validation is enabled.
func (o *Orchestrator) ClaimGift(ctx context.Context, userID int64, secret string) (*ClaimResult, error) {
	if o.cfg.ValidateSecret && !secretPattern.MatchString(secret) {
		return nil, domain.E(domain.CodeInvalidInput, "secret is not a hex token")
	}
	secretFelt, err := starkcurve.ParseFelt(secret)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidInput, "secret is not a valid token")
	}

	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	calls := []ledger.Call{{
		To:         o.cfg.Gift,
		Entrypoint: "claim_gift",
		Calldata:   []*big.Int{secretFelt},
	}}

	receipt, err := o.submit(ctx, "claim_gift", userID, identity, calls)
	if err != nil {
		return nil, err
	}

	event, ok := ledger.EventByName(receipt, o.cfg.Gift, "GiftClaimed")
	if !ok || len(event.Data) <= giftClaimedAmountIndex+1 {
		o.log.Error("gift claim receipt carries no usable event", "tx_hash", receipt.TxHash)
		return nil, fmt.Errorf("gift claim event missing from receipt %s", receipt.TxHash)
	}

	return &ClaimResult{
		Amount: combineU256(event.Data[giftClaimedAmountIndex], event.Data[giftClaimedAmountIndex+1]),
		TxHash: receipt.TxHash,
	}, nil
}
