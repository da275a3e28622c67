package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
)

const shortStringMax = 31

// MarketResult reports a created prediction market.
type MarketResult struct {
	ID       uint64
	Deadline time.Time
	TxHash   string
}

// SettleResult reports a settled market.
type SettleResult struct {
	WinningLabel string
	TxHash       string
}

func encodeLabel(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, domain.E(domain.CodeInvalidInput, field+" is required")
	}
	if len(value) > shortStringMax {
		return nil, domain.E(domain.CodeInvalidInput, fmt.Sprintf("%s exceeds %d characters", field, shortStringMax))
	}
	return starkcurve.EncodeShortString(value), nil
}

// CreateMarket opens a binary prediction market closing after the duration.
func (o *Orchestrator) CreateMarket(ctx context.Context, userID int64, name, description, optionA, optionB string, durationHours int) (*MarketResult, error) {
	if durationHours <= 0 {
		return nil, domain.E(domain.CodeInvalidInput, "duration must be a positive number of hours")
	}

	fields := []struct {
		name  string
		value string
	}{
		{"name", name},
		{"description", description},
		{"option A", optionA},
		{"option B", optionB},
	}
	encoded := make([]*big.Int, len(fields))
	for i, f := range fields {
		v, err := encodeLabel(f.name, f.value)
		if err != nil {
			return nil, err
		}
		encoded[i] = v
	}

	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	deadline := o.now().Add(time.Duration(durationHours) * time.Hour)
	calls := []ledger.Call{{
		To:         o.cfg.Market,
		Entrypoint: "create_market",
		Calldata:   append(encoded, big.NewInt(deadline.Unix())),
	}}

	receipt, err := o.submit(ctx, "create_market", userID, identity, calls)
	if err != nil {
		return nil, err
	}

	event, ok := ledger.EventByName(receipt, o.cfg.Market, "MarketCreated")
	if !ok || len(event.Data) == 0 {
		o.log.Error("market creation receipt carries no usable event", "tx_hash", receipt.TxHash)
		return nil, fmt.Errorf("market creation event missing from receipt %s", receipt.TxHash)
	}

	return &MarketResult{
		ID:       event.Data[0].Uint64(),
		Deadline: deadline.UTC(),
		TxHash:   receipt.TxHash,
	}, nil
}

// PlaceBet buys shares of one outcome with points.
func (o *Orchestrator) PlaceBet(ctx context.Context, userID int64, marketID uint64, option uint8, amount *big.Int) (string, error) {
	if option > 1 {
		return "", domain.E(domain.CodeInvalidInput, "option must be 0 or 1")
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", domain.E(domain.CodeInvalidInput, "amount must be positive")
	}

	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return "", err
	}

	low, high := splitU256(amount)
	calls := []ledger.Call{
		{
			To:         o.cfg.Points,
			Entrypoint: "approve",
			Calldata:   []*big.Int{o.cfg.Market, low, high},
		},
		{
			To:         o.cfg.Market,
			Entrypoint: "buy_shares",
			Calldata:   []*big.Int{new(big.Int).SetUint64(marketID), big.NewInt(int64(option)), low, high},
		},
	}

	receipt, err := o.submit(ctx, "place_bet", userID, identity, calls)
	if err != nil {
		return "", err
	}
	return receipt.TxHash, nil
}

// getMarket reads the market view: owner, both option labels, deadline,
// settled flag and winning option.
func (o *Orchestrator) getMarket(ctx context.Context, marketID uint64) (*domain.Market, error) {
	result, err := o.gateway.CallView(ctx, o.cfg.Market, "get_market", []*big.Int{new(big.Int).SetUint64(marketID)})
	if err != nil {
		return nil, err
	}
	if len(result) < 6 {
		return nil, fmt.Errorf("malformed market view: %d felts", len(result))
	}
	return &domain.Market{
		ID:            marketID,
		Owner:         result[0],
		OptionA:       starkcurve.DecodeShortString(result[1]),
		OptionB:       starkcurve.DecodeShortString(result[2]),
		Deadline:      result[3].Uint64(),
		Settled:       result[4].Sign() != 0,
		WinningOption: uint8(result[5].Uint64()),
	}, nil
}

// SettleMarket records the winning outcome. Only the market owner may
// settle, and only once.
func (o *Orchestrator) SettleMarket(ctx context.Context, userID int64, marketID uint64, option uint8) (*SettleResult, error) {
	if option > 1 {
		return nil, domain.E(domain.CodeInvalidInput, "option must be 0 or 1")
	}

	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	market, err := o.getMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.Owner.Cmp(identity.Address) != 0 {
		return nil, domain.E(domain.CodeNotOwner, "only the market owner can settle")
	}
	if market.Settled {
		return nil, domain.E(domain.CodeAlreadySettled, "market is already settled")
	}

	calls := []ledger.Call{{
		To:         o.cfg.Market,
		Entrypoint: "settle_market",
		Calldata:   []*big.Int{new(big.Int).SetUint64(marketID), big.NewInt(int64(option))},
	}}

	receipt, err := o.submit(ctx, "settle_market", userID, identity, calls)
	if err != nil {
		return nil, err
	}

	label := market.OptionA
	if option == 1 {
		label = market.OptionB
	}
	return &SettleResult{WinningLabel: label, TxHash: receipt.TxHash}, nil
}

// position reads the caller's bet on a market.
func (o *Orchestrator) position(ctx context.Context, marketID uint64, holder *big.Int) (*domain.Position, error) {
	id := new(big.Int).SetUint64(marketID)
	result, err := o.gateway.CallView(ctx, o.cfg.Market, "get_bet", []*big.Int{id, holder})
	if err != nil {
		return nil, err
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("malformed bet view: %d felts", len(result))
	}

	claimed, err := o.gateway.CallView(ctx, o.cfg.Market, "has_claimed", []*big.Int{id, holder})
	if err != nil {
		return nil, err
	}
	if len(claimed) < 1 {
		return nil, fmt.Errorf("malformed claim view: %d felts", len(claimed))
	}

	return &domain.Position{
		Amount:  combineU256(result[0], result[1]),
		Option:  uint8(result[2].Uint64()),
		Claimed: claimed[0].Sign() != 0,
	}, nil
}

// ClaimWinnings pays out a winning position. Every precondition is checked
// with view calls first so losers and double claims never cost a fee.
func (o *Orchestrator) ClaimWinnings(ctx context.Context, userID int64, marketID uint64) (string, error) {
	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return "", err
	}

	market, err := o.getMarket(ctx, marketID)
	if err != nil {
		return "", err
	}
	if !market.Settled {
		return "", domain.E(domain.CodeNotSettled, "market is not settled yet")
	}

	position, err := o.position(ctx, marketID, identity.Address)
	if err != nil {
		return "", err
	}
	if position.Amount.Sign() == 0 {
		return "", domain.E(domain.CodeNoPosition, "no bet recorded on this market")
	}
	if position.Claimed {
		return "", domain.E(domain.CodeWinningsClaimed, "winnings already claimed")
	}
	if position.Option != market.WinningOption {
		return "", domain.E(domain.CodeDidNotWin, "bet was on the losing option")
	}

	calls := []ledger.Call{{
		To:         o.cfg.Market,
		Entrypoint: "claim_winnings",
		Calldata:   []*big.Int{new(big.Int).SetUint64(marketID)},
	}}

	receipt, err := o.submit(ctx, "claim_winnings", userID, identity, calls)
	if err != nil {
		return "", err
	}
	return receipt.TxHash, nil
}
