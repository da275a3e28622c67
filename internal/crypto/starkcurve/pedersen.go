package starkcurve

import (
	"errors"
	"math/big"
)

// Pedersen hash constant points, from the Starkware reference parameters.
var (
	pedersenShift = newPoint(
		mustInt("2089986280348253421170679821480865132823066470938446095505822317253594081284"),
		mustInt("1713931329540660377023406109199410414810705867260802078187082345529207694986"),
	)
	pedersenP1 = newPoint(
		mustInt("996781205833008774514500082376783249102396023663454813447423147977397232763"),
		mustInt("1668503676786377725805489344771023921079126552019160156920634619255970485781"),
	)
	pedersenP2 = newPoint(
		mustInt("2251563274489750535117886426533222435294046428347329203627021249169616184184"),
		mustInt("1798716007562728905295480679789526322175868328062420237419143593021674992973"),
	)
	pedersenP3 = newPoint(
		mustInt("2138414695194151160943305727036575959195309218611738193261179310511854807447"),
		mustInt("113410276730064486255102093846540133784865286929052426931474106396135072156"),
	)
	pedersenP4 = newPoint(
		mustInt("2379962749567351885752724891227938183011949129833673362440656643086021394946"),
		mustInt("776496453633298175483985398648758586525933812536653089401905292063708816422"),
	)

	low248Mask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 248), big.NewInt(1))

	// addrBound caps contract addresses at 2^251 - 256.
	addrBound = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 251), big.NewInt(256))

	contractAddressPrefix = EncodeShortString("STARKNET_CONTRACT_ADDRESS")
)

// Pedersen computes the two-element Stark Pedersen hash.
func Pedersen(a, b *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || a.Cmp(P) >= 0 || b.Sign() < 0 || b.Cmp(P) >= 0 {
		return nil, errors.New("starkcurve: pedersen input out of field")
	}

	aLow := new(big.Int).And(a, low248Mask)
	aHigh := new(big.Int).Rsh(a, 248)
	bLow := new(big.Int).And(b, low248Mask)
	bHigh := new(big.Int).Rsh(b, 248)

	acc := pedersenShift
	for _, part := range []struct {
		scalar *big.Int
		base   point
	}{
		{aLow, pedersenP1},
		{aHigh, pedersenP2},
		{bLow, pedersenP3},
		{bHigh, pedersenP4},
	} {
		if part.scalar.Sign() != 0 {
			acc = acc.add(part.base.mul(part.scalar))
		}
	}
	return new(big.Int).Set(acc.x), nil
}

// HashOnElements chains Pedersen over the elements and appends the length,
// matching compute_hash_on_elements in the Starknet protocol.
func HashOnElements(elems []*big.Int) (*big.Int, error) {
	h := big.NewInt(0)
	var err error
	for _, e := range elems {
		h, err = Pedersen(h, e)
		if err != nil {
			return nil, err
		}
	}
	return Pedersen(h, big.NewInt(int64(len(elems))))
}

// ContractAddress computes the future address of a not-yet-deployed account
// as a pure function of its deployment parameters. The result is reduced
// modulo 2^251 - 256 per protocol.
func ContractAddress(salt, classHash, deployer *big.Int, constructorCalldata []*big.Int) (*big.Int, error) {
	calldataHash, err := HashOnElements(constructorCalldata)
	if err != nil {
		return nil, err
	}
	h, err := HashOnElements([]*big.Int{
		contractAddressPrefix,
		deployer,
		salt,
		classHash,
		calldataHash,
	})
	if err != nil {
		return nil, err
	}
	return h.Mod(h, addrBound), nil
}
