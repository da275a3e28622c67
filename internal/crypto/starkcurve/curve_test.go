package starkcurve

import (
	"math/big"
	"testing"
)

func TestGeneratorOnCurve(t *testing.T) {
	if !generator().onCurve() {
		t.Fatal("generator not on curve")
	}
	if !pedersenShift.onCurve() || !pedersenP1.onCurve() || !pedersenP2.onCurve() ||
		!pedersenP3.onCurve() || !pedersenP4.onCurve() {
		t.Fatal("pedersen constant point not on curve")
	}
}

func TestScalarMulMatchesAddition(t *testing.T) {
	g := generator()
	byAdd := g.add(g).add(g)
	byMul := g.mul(big.NewInt(3))
	if !byAdd.equal(byMul) {
		t.Fatal("3G via addition and via scalar mul disagree")
	}
	if !byMul.onCurve() {
		t.Fatal("3G not on curve")
	}
}

func TestGeneratorOrder(t *testing.T) {
	if !generator().mul(N).infinity {
		t.Fatal("N·G is not the identity")
	}
}

func TestPrivateToPublicDeterministic(t *testing.T) {
	priv := big.NewInt(123456789)
	a, err := PrivateToPublic(priv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := PrivateToPublic(priv)
	if a.Cmp(b) != 0 {
		t.Fatal("public key derivation not deterministic")
	}

	_, err = PrivateToPublic(big.NewInt(0))
	if err == nil {
		t.Fatal("expected error for zero private key")
	}
}

func TestSignVerify(t *testing.T) {
	priv, err := RandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	msg, err := Pedersen(big.NewInt(42), big.NewInt(7))
	if err != nil {
		t.Fatalf("pedersen: %v", err)
	}

	r, s, err := Sign(msg, priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	pub := pubPoint(priv)
	if !verify(msg, r, s, pub) {
		t.Fatal("signature does not verify")
	}

	other, _ := Pedersen(big.NewInt(43), big.NewInt(7))
	if verify(other, r, s, pub) {
		t.Fatal("signature verified against a different message")
	}
}

func TestPedersenProperties(t *testing.T) {
	a, err := Pedersen(big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Pedersen(big.NewInt(1), big.NewInt(2))
	if a.Cmp(b) != 0 {
		t.Fatal("pedersen not deterministic")
	}
	c, _ := Pedersen(big.NewInt(2), big.NewInt(1))
	if a.Cmp(c) == 0 {
		t.Fatal("pedersen symmetric, expected order sensitivity")
	}

	if _, err := Pedersen(new(big.Int).Set(P), big.NewInt(0)); err == nil {
		t.Fatal("expected out-of-field rejection")
	}
}

func TestHashOnElementsLengthSensitive(t *testing.T) {
	one := []*big.Int{big.NewInt(5)}
	two := []*big.Int{big.NewInt(5), big.NewInt(0)}
	h1, err := HashOnElements(one)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, _ := HashOnElements(two)
	if h1.Cmp(h2) == 0 {
		t.Fatal("length not mixed into hash")
	}
}

func TestContractAddressDeterminismAndSensitivity(t *testing.T) {
	salt := big.NewInt(111)
	classHash := big.NewInt(222)
	deployer := big.NewInt(0)
	calldata := []*big.Int{big.NewInt(333), big.NewInt(0)}

	a, err := ContractAddress(salt, classHash, deployer, calldata)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := ContractAddress(salt, classHash, deployer, calldata)
	if a.Cmp(b) != 0 {
		t.Fatal("contract address not deterministic")
	}
	if a.Cmp(addrBound) >= 0 {
		t.Fatal("contract address exceeds address bound")
	}

	changedSalt, _ := ContractAddress(big.NewInt(112), classHash, deployer, calldata)
	changedClass, _ := ContractAddress(salt, big.NewInt(223), deployer, calldata)
	changedArgs, _ := ContractAddress(salt, classHash, deployer, []*big.Int{big.NewInt(334), big.NewInt(0)})
	for _, other := range []*big.Int{changedSalt, changedClass, changedArgs} {
		if a.Cmp(other) == 0 {
			t.Fatal("changing a derivation input did not change the address")
		}
	}
}

func TestSelectorKnownValue(t *testing.T) {
	// The canonical ERC-20 transfer selector.
	want, _ := new(big.Int).SetString("83afd3f4caedc6eebf44246fe54e38c95e3179a5ec9ea81740eca5b482d12e", 16)
	if got := Selector("transfer"); got.Cmp(want) != 0 {
		t.Fatalf("selector mismatch: got %s", got.Text(16))
	}
}

func TestShortStringRoundTrip(t *testing.T) {
	for _, s := range []string{"SN_SEPOLIA", "yes", "STARKNET_CONTRACT_ADDRESS"} {
		if got := DecodeShortString(EncodeShortString(s)); got != s {
			t.Fatalf("round trip failed: %q -> %q", s, got)
		}
	}
}

func TestParseFelt(t *testing.T) {
	v, err := ParseFelt("0x0000abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Cmp(big.NewInt(0xabc)) != 0 {
		t.Fatalf("expected 0xabc, got %s", v.Text(16))
	}
	if _, err := ParseFelt("zzz"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseFelt(""); err == nil {
		t.Fatal("expected empty input error")
	}
}
