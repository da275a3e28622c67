package orchestrator

import (
	"context"
	"math/big"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
	"github.com/hongbaolabs/hongbao/internal/metrics"
)

// FaucetResult reports a completed faucet drop.
type FaucetResult struct {
	ETHDrop    *big.Int
	PointsDrop *big.Int
	TxHash     string
}

// Faucet tops up a drained wallet from the faucet identity. Wallets already
// holding at least the threshold are refused without touching the chain.
func (o *Orchestrator) Faucet(ctx context.Context, userID int64) (*FaucetResult, error) {
	identity, _, err := o.identityFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance, err := o.tokenBalance(ctx, o.cfg.ETH, identity.Address)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(o.cfg.FaucetThreshold) >= 0 {
		return nil, domain.E(domain.CodeBalanceSufficient, "balance is above the faucet threshold")
	}

	ethLow, ethHigh := splitU256(o.cfg.FaucetDrop)
	ptsLow, ptsHigh := splitU256(o.cfg.PointsDrop)
	calls := []ledger.Call{
		{
			To:         o.cfg.ETH,
			Entrypoint: "transfer",
			Calldata:   []*big.Int{identity.Address, ethLow, ethHigh},
		},
		{
			To:         o.cfg.Points,
			Entrypoint: "permissioned_mint",
			Calldata:   []*big.Int{identity.Address, ptsLow, ptsHigh},
		},
	}

	receipt, err := o.submit(ctx, "faucet", userID, o.cfg.Faucet, calls)
	if err != nil {
		return nil, err
	}
	return &FaucetResult{
		ETHDrop:    o.cfg.FaucetDrop,
		PointsDrop: o.cfg.PointsDrop,
		TxHash:     receipt.TxHash,
	}, nil
}

// DeployAccount submits the deferred account deployment for the user's
// wallet. The address is counterfactual until this lands.
func (o *Orchestrator) DeployAccount(ctx context.Context, userID int64) (string, error) {
	identity, rec, err := o.identityFor(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec.PublicKey == "" || len(rec.ConstructorCallData) == 0 {
		return "", domain.E(domain.CodeInvalidInput, "wallet record carries no deployment data")
	}

	salt, err := starkcurve.ParseFelt(rec.PublicKey)
	if err != nil {
		return "", domain.Wrap(domain.CodeIntegrity, err, "stored public key unreadable")
	}
	calldata := make([]*big.Int, len(rec.ConstructorCallData))
	for i, s := range rec.ConstructorCallData {
		if calldata[i], err = starkcurve.ParseFelt(s); err != nil {
			return "", domain.Wrap(domain.CodeIntegrity, err, "stored constructor calldata unreadable")
		}
	}

	var txHash string
	err = o.withSubmitLock(ctx, userID, func(ctx context.Context) error {
		hash, err := o.gateway.DeployAccount(ctx, identity, o.cfg.AccountClassHash, salt, calldata)
		if err != nil {
			return err
		}
		txHash = hash
		_, err = o.gateway.WaitForFinality(ctx, txHash)
		return err
	})
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("deploy_account", "error").Inc()
		return "", err
	}
	metrics.SubmissionsTotal.WithLabelValues("deploy_account", "ok").Inc()

	o.log.Info("account deployed", "user_id", userID, "tx_hash", txHash)
	return txHash, nil
}
