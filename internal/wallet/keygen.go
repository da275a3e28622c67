// Package wallet produces custodial account material and keeps it encrypted
// at rest. Accounts follow the ArgentX deferred-deployment scheme: the
// address is precomputed from the public key and the account class hash, the
// actual deployment transaction happens later, funded by the user.
package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
)

// addressWidth is the canonical hex width of a Starknet address (32 bytes).
const addressWidth = 64

// Generator creates fresh key pairs bound to a fixed account class.
type Generator struct {
	classHash *big.Int
}

func NewGenerator(classHash *big.Int) *Generator {
	return &Generator{classHash: new(big.Int).Set(classHash)}
}

// Generate draws a random private key, derives the Stark public key and the
// future account address. Constructor calldata is owner=pubkey, guardian=0;
// the public key doubles as the deployment salt.
func (g *Generator) Generate() (*domain.WalletRecord, error) {
	priv, err := starkcurve.RandomPrivateKey()
	if err != nil {
		return nil, domain.Wrap(domain.CodeKeyGeneration, err, "generate private key")
	}
	pub, err := starkcurve.PrivateToPublic(priv)
	if err != nil {
		return nil, domain.Wrap(domain.CodeKeyGeneration, err, "derive public key")
	}

	addr, err := g.AddressFor(pub)
	if err != nil {
		return nil, err
	}

	return &domain.WalletRecord{
		Address:             addr,
		PrivateKey:          starkcurve.Hex(priv),
		PublicKey:           starkcurve.Hex(pub),
		ConstructorCallData: []string{starkcurve.Hex(pub), "0x0"},
	}, nil
}

// AddressFor computes the deterministic future address for a public key.
func (g *Generator) AddressFor(pub *big.Int) (string, error) {
	calldata := []*big.Int{pub, big.NewInt(0)}
	addr, err := starkcurve.ContractAddress(pub, g.classHash, big.NewInt(0), calldata)
	if err != nil {
		return "", domain.Wrap(domain.CodeKeyGeneration, err, "derive account address")
	}
	return FormatAddress(addr), nil
}

// FormatAddress renders an address left-zero-padded to the chain's width so
// stored and displayed addresses compare equal as strings.
func FormatAddress(v *big.Int) string {
	return fmt.Sprintf("0x%0*x", addressWidth, v)
}

// ParseAddress accepts any hex form and returns the numeric address.
func ParseAddress(s string) (*big.Int, error) {
	v, err := starkcurve.ParseFelt(s)
	if err != nil {
		return nil, domain.Wrap(domain.CodeInvalidInput, err, "invalid address")
	}
	return v, nil
}

// NormalizeAddress re-renders an address in canonical fixed-width form.
func NormalizeAddress(s string) (string, error) {
	v, err := ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return FormatAddress(v), nil
}
