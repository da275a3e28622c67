// Package starkcurve implements the arithmetic the Starknet account scheme
// needs: the Stark curve (y² = x³ + x + β over the 252-bit Stark prime),
// the Pedersen hash, contract-address derivation and ECDSA signing.
//
// The reference corpus carries no Starknet SDK and the stdlib crypto/elliptic
// API cannot host a custom curve with α=1, so the group operations are done
// directly on big.Int affine coordinates. Performance is irrelevant here:
// the bot signs a handful of transactions per user action.
package starkcurve

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	// P is the Stark field prime: 2^251 + 17·2^192 + 1.
	P = mustInt("3618502788666131213697322783095070105623107215331596699973092056135872020481")
	// N is the order of the curve's generator point.
	N = mustInt("3618502788666131213697322783095070105526743751716087489154079457884512865583")
	// beta in y² = x³ + x + beta.
	beta = mustInt("3141592653589793238462643383279502884197169399375105820974944592307816406665")

	genX = mustInt("874739451078007766457464989774322083649278607533249481151382481072868806602")
	genY = mustInt("152666792071518830868575557812948353041420400780739481342941381225525861407")

	// upperBound is 2^251, signatures and key scalars must stay below it.
	upperBound = new(big.Int).Lsh(big.NewInt(1), 251)
)

func mustInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("starkcurve: bad constant " + s)
	}
	return v
}

// point is an affine curve point. infinity marks the group identity.
type point struct {
	x, y     *big.Int
	infinity bool
}

func newPoint(x, y *big.Int) point {
	return point{x: new(big.Int).Set(x), y: new(big.Int).Set(y)}
}

func generator() point { return newPoint(genX, genY) }

func (p point) equal(q point) bool {
	if p.infinity || q.infinity {
		return p.infinity == q.infinity
	}
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

// add computes p + q in affine coordinates.
func (p point) add(q point) point {
	if p.infinity {
		return q
	}
	if q.infinity {
		return p
	}
	if p.x.Cmp(q.x) == 0 {
		sum := new(big.Int).Add(p.y, q.y)
		sum.Mod(sum, P)
		if sum.Sign() == 0 {
			return point{infinity: true}
		}
		return p.double()
	}

	// lambda = (qy - py) / (qx - px)
	num := new(big.Int).Sub(q.y, p.y)
	den := new(big.Int).Sub(q.x, p.x)
	den.ModInverse(den, P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, P)

	return p.chord(q, lambda)
}

// double computes 2p, the tangent case of the chord rule.
func (p point) double() point {
	if p.infinity {
		return p
	}
	// lambda = (3x² + 1) / 2y   (curve a = 1)
	num := new(big.Int).Mul(p.x, p.x)
	num.Mul(num, big.NewInt(3))
	num.Add(num, big.NewInt(1))
	den := new(big.Int).Lsh(p.y, 1)
	den.ModInverse(den, P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, P)

	return p.chord(p, lambda)
}

func (p point) chord(q point, lambda *big.Int) point {
	rx := new(big.Int).Mul(lambda, lambda)
	rx.Sub(rx, p.x)
	rx.Sub(rx, q.x)
	rx.Mod(rx, P)

	ry := new(big.Int).Sub(p.x, rx)
	ry.Mul(ry, lambda)
	ry.Sub(ry, p.y)
	ry.Mod(ry, P)

	return point{x: rx, y: ry}
}

// mul computes k·p by double-and-add over k's bits, MSB first.
func (p point) mul(k *big.Int) point {
	acc := point{infinity: true}
	for i := k.BitLen() - 1; i >= 0; i-- {
		acc = acc.double()
		if k.Bit(i) == 1 {
			acc = acc.add(p)
		}
	}
	return acc
}

// onCurve reports whether the point satisfies y² = x³ + x + β.
func (p point) onCurve() bool {
	if p.infinity {
		return false
	}
	lhs := new(big.Int).Mul(p.y, p.y)
	lhs.Mod(lhs, P)
	rhs := new(big.Int).Mul(p.x, p.x)
	rhs.Mul(rhs, p.x)
	rhs.Add(rhs, p.x)
	rhs.Add(rhs, beta)
	rhs.Mod(rhs, P)
	return lhs.Cmp(rhs) == 0
}

// RandomPrivateKey draws a uniformly random scalar in [1, N).
func RandomPrivateKey() (*big.Int, error) {
	for {
		k, err := rand.Int(rand.Reader, N)
		if err != nil {
			return nil, err
		}
		if k.Sign() > 0 {
			return k, nil
		}
	}
}

// PrivateToPublic derives the Stark public key, the x-coordinate of priv·G.
func PrivateToPublic(priv *big.Int) (*big.Int, error) {
	if priv.Sign() <= 0 || priv.Cmp(N) >= 0 {
		return nil, errors.New("starkcurve: private key out of range")
	}
	pub := generator().mul(priv)
	return new(big.Int).Set(pub.x), nil
}

// Sign produces a Stark ECDSA signature (r, s) over msgHash.
// msgHash must already be a field element (Pedersen output qualifies).
func Sign(msgHash, priv *big.Int) (r, s *big.Int, err error) {
	if msgHash.Sign() < 0 || msgHash.Cmp(P) >= 0 {
		return nil, nil, errors.New("starkcurve: message hash out of range")
	}
	if priv.Sign() <= 0 || priv.Cmp(N) >= 0 {
		return nil, nil, errors.New("starkcurve: private key out of range")
	}

	for {
		k, err := rand.Int(rand.Reader, N)
		if err != nil {
			return nil, nil, err
		}
		if k.Sign() == 0 {
			continue
		}

		pt := generator().mul(k)
		r = new(big.Int).Set(pt.x)
		if r.Sign() == 0 || r.Cmp(upperBound) >= 0 {
			continue
		}

		// s = k⁻¹ · (z + r·priv) mod N
		s = new(big.Int).Mul(r, priv)
		s.Add(s, msgHash)
		s.Mod(s, N)
		if s.Sign() == 0 {
			continue
		}
		kInv := new(big.Int).ModInverse(k, N)
		s.Mul(s, kInv)
		s.Mod(s, N)

		// The verifier computes w = s⁻¹, which must fit the same bound.
		w := new(big.Int).ModInverse(s, N)
		if w == nil || w.Sign() == 0 || w.Cmp(upperBound) >= 0 {
			continue
		}
		return r, s, nil
	}
}

// verify checks a signature against the full public point. Used by tests,
// on-chain verification is the account contract's job.
func verify(msgHash, r, s *big.Int, pub point) bool {
	if r.Sign() <= 0 || r.Cmp(upperBound) >= 0 {
		return false
	}
	if s.Sign() <= 0 || s.Cmp(N) >= 0 {
		return false
	}
	w := new(big.Int).ModInverse(s, N)
	if w == nil {
		return false
	}
	u1 := new(big.Int).Mul(msgHash, w)
	u1.Mod(u1, N)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, N)

	pt := generator().mul(u1).add(pub.mul(u2))
	if pt.infinity {
		return false
	}
	return pt.x.Cmp(r) == 0
}

// pubPoint reconstructs the full public point from a private key.
func pubPoint(priv *big.Int) point {
	return generator().mul(priv)
}
