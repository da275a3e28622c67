// Package ledger is the boundary to the chain. The orchestrator sees the
// Gateway interface only; the HTTP client below speaks Starknet JSON-RPC.
package ledger

import (
	"context"
	"math/big"
)

// Call is one contract invocation inside a multicall.
type Call struct {
	To         *big.Int
	Entrypoint string
	Calldata   []*big.Int
}

// Identity is the signing account for a submission.
type Identity struct {
	Address    *big.Int
	PrivateKey *big.Int
}

// Event is a decoded emitted event.
type Event struct {
	From *big.Int
	Keys []*big.Int
	Data []*big.Int
}

// Receipt is the confirmed outcome of a transaction.
type Receipt struct {
	TxHash string
	Events []Event
}

// Gateway is the ledger surface the core consumes. Multicalls are atomic:
// either every call applied or the transaction reverted as a whole.
type Gateway interface {
	// CallView executes a read-only contract call at the latest block.
	CallView(ctx context.Context, to *big.Int, entrypoint string, calldata []*big.Int) ([]*big.Int, error)
	// SubmitMulticall signs and submits the ordered calls as one transaction.
	SubmitMulticall(ctx context.Context, sender Identity, calls []Call) (string, error)
	// DeployAccount submits the deferred account deployment transaction.
	DeployAccount(ctx context.Context, sender Identity, classHash, salt *big.Int, constructorCalldata []*big.Int) (string, error)
	// WaitForFinality blocks until the transaction is confirmed or reverts.
	WaitForFinality(ctx context.Context, txHash string) (*Receipt, error)
}

// EventByName returns the first event emitted by contract with the given
// name key, or false when the receipt carries none.
func EventByName(r *Receipt, contract *big.Int, name string) (Event, bool) {
	key := selectorFor(name)
	for _, ev := range r.Events {
		if ev.From.Cmp(contract) != 0 || len(ev.Keys) == 0 {
			continue
		}
		if ev.Keys[0].Cmp(key) == 0 {
			return ev, true
		}
	}
	return Event{}, false
}
