package domain

import "math/big"

// Market is the on-chain view of a prediction market, decoded from the
// market contract's get_market entrypoint.
type Market struct {
	ID            uint64
	Owner         *big.Int
	OptionA       string
	OptionB       string
	Deadline      uint64 // unix seconds
	Settled       bool
	WinningOption uint8
}

// Position is a user's recorded bet on a market.
type Position struct {
	Amount  *big.Int
	Option  uint8
	Claimed bool
}
