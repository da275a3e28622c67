package domain

import (
	"errors"
	"fmt"
)

// Code classifies an operation failure so callers can decide how to react
// (re-prompt, abort the flow, refuse) without matching message text.
type Code string

const (
	// Input validation
	CodeInvalidInput Code = "invalid_input"

	// Wallet / storage state
	CodeNoWallet      Code = "no_wallet"
	CodeWalletExists  Code = "wallet_exists"
	CodeNotFound      Code = "not_found"
	CodeIntegrity     Code = "integrity"
	CodeKeyGeneration Code = "key_generation"

	// Pre-submission checks
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeBalanceSufficient   Code = "balance_sufficient"
	CodeBusy                Code = "busy"

	// Ledger-reported
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeGiftClaimed       Code = "gift_claimed"
	CodeGiftExpired       Code = "gift_expired"
	CodeGiftNotFound      Code = "gift_not_found"
	CodeGiftExhausted     Code = "gift_exhausted"
	CodeNotOwner          Code = "not_owner"
	CodeAlreadySettled    Code = "already_settled"
	CodeNotSettled        Code = "not_settled"
	CodeWinningsClaimed   Code = "winnings_claimed"
	CodeDidNotWin         Code = "did_not_win"
	CodeNoPosition        Code = "no_position"

	CodeUnknown Code = "unknown"
)

// Error is the typed error carried across operation boundaries.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a typed error with no underlying cause.
func E(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the classification from an error chain.
// Unclassified errors report CodeUnknown.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

// Shared sentinels for the storage and cipher layers.
var (
	ErrNotFound     = E(CodeNotFound, "record not found")
	ErrIntegrity    = E(CodeIntegrity, "integrity check failed")
	ErrNoWallet     = E(CodeNoWallet, "no wallet for user")
	ErrWalletExists = E(CodeWalletExists, "wallet already exists")
)
