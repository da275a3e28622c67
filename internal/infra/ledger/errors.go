package ledger

import (
	"errors"
	"strings"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

func asRPCError(err error, target **rpcError) bool {
	return errors.As(err, target)
}

// revertPatterns maps contract failure messages to domain codes. The
// substrings come from the assert messages of the deployed contracts.
type revertPattern struct {
	substr string
	code   domain.Code
}

var revertPatterns = []revertPattern{
	{"insufficient balance", domain.CodeInsufficientFunds},
	{"insufficient allowance", domain.CodeInsufficientFunds},
	{"insufficient funds", domain.CodeInsufficientFunds},
	{"u256_sub overflow", domain.CodeInsufficientFunds},
	{"already claimed", domain.CodeGiftClaimed},
	{"gift expired", domain.CodeGiftExpired},
	{"gift not found", domain.CodeGiftNotFound},
	{"no packets left", domain.CodeGiftExhausted},
	{"gift exhausted", domain.CodeGiftExhausted},
	{"not the owner", domain.CodeNotOwner},
	{"only owner", domain.CodeNotOwner},
	{"already settled", domain.CodeAlreadySettled},
	{"not settled", domain.CodeNotSettled},
	{"winnings claimed", domain.CodeWinningsClaimed},
	{"did not win", domain.CodeDidNotWin},
	{"market not found", domain.CodeNotFound},
}

// classifyRevert maps a revert reason onto a domain error so the bot can
// answer with a specific message instead of a raw trace.
func classifyRevert(reason string) error {
	lowered := strings.ToLower(reason)
	for _, p := range revertPatterns {
		if strings.Contains(lowered, p.substr) {
			return domain.E(p.code, reason)
		}
	}
	return domain.E(domain.CodeUnknown, reason)
}

// Classify converts gateway errors into domain errors where the failure
// text carries a recognizable contract message. Transport and node errors
// pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return err
	}
	var rpcErr *rpcError
	if !asRPCError(err, &rpcErr) {
		return err
	}

	text := strings.ToLower(rpcErr.Message + " " + string(rpcErr.Data))
	for _, p := range revertPatterns {
		if strings.Contains(text, p.substr) {
			return domain.Wrap(p.code, err, rpcErr.Message)
		}
	}
	return err
}
