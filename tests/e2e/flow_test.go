package e2e

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/hongbaolabs/hongbao/internal/bot"
	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/core/session"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
	"github.com/hongbaolabs/hongbao/internal/infra/storage/memory"
	"github.com/hongbaolabs/hongbao/internal/orchestrator"
	"github.com/hongbaolabs/hongbao/internal/wallet"
)

// The full stack minus the two external edges: storage is in-memory and the
// chain is scripted. Everything between, the real code.

type conv struct {
	userID  int64
	text    string
	replies []string
}

func (c *conv) UserID() int64   { return c.userID }
func (c *conv) IsPrivate() bool { return true }
func (c *conv) Text() string    { return c.text }

func (c *conv) Reply(text string) error {
	c.replies = append(c.replies, text)
	return nil
}

func (c *conv) ReplyKeyboard(text string, buttons []bot.Button) error {
	c.replies = append(c.replies, text)
	return nil
}

func (c *conv) ReplyEphemeral(text string, ttl time.Duration) error {
	c.replies = append(c.replies, text)
	return nil
}

type scriptedChain struct {
	views     map[string][]*big.Int
	events    []ledger.Event
	submitted [][]ledger.Call
}

func (g *scriptedChain) CallView(ctx context.Context, to *big.Int, entrypoint string, calldata []*big.Int) ([]*big.Int, error) {
	result, ok := g.views[entrypoint]
	if !ok {
		return nil, domain.E(domain.CodeUnknown, "unexpected view "+entrypoint)
	}
	return result, nil
}

func (g *scriptedChain) SubmitMulticall(ctx context.Context, sender ledger.Identity, calls []ledger.Call) (string, error) {
	g.submitted = append(g.submitted, calls)
	return "0xfeed", nil
}

func (g *scriptedChain) DeployAccount(ctx context.Context, sender ledger.Identity, classHash, salt *big.Int, constructorCalldata []*big.Int) (string, error) {
	return "0xfeed", nil
}

func (g *scriptedChain) WaitForFinality(ctx context.Context, txHash string) (*ledger.Receipt, error) {
	return &ledger.Receipt{TxHash: txHash, Events: g.events}, nil
}

func u256(v *big.Int) []*big.Int {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	return []*big.Int{new(big.Int).And(v, mask), new(big.Int).Rsh(v, 128)}
}

func eth(tokens int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tokens), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func amt(s string) *big.Int {
	v, err := orchestrator.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newStack(t *testing.T, chain *scriptedChain) *bot.Handlers {
	t.Helper()
	key, _ := hex.DecodeString("9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08")
	store := wallet.NewStore(memory.NewRepo(), key)
	classHash, _ := starkcurve.ParseFelt("0x1a736d6ed154502257f02b1ccdf4d9d1089f80811cd6acad48e6b6a9d1f2003")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := orchestrator.Config{
		ETH:              big.NewInt(0x10),
		Points:           big.NewInt(0x20),
		Gift:             big.NewInt(0x30),
		Market:           big.NewInt(0x40),
		AccountClassHash: classHash,
		Faucet:           ledger.Identity{Address: big.NewInt(0xfa), PrivateKey: big.NewInt(0xfb)},
		FaucetThreshold:  amt("0.0005"),
		FaucetDrop:       amt("0.001"),
		PointsDrop:       amt("100"),
		GiftExpiry:       24 * time.Hour,
	}
	orch := orchestrator.New(chain, store, orchestrator.NewMemoryLocker(), cfg, log)
	return bot.NewHandlers(wallet.NewGenerator(classHash), store, orch, session.NewManager(), false, log)
}

func say(ctx context.Context, h *bot.Handlers, userID int64, text string) *conv {
	c := &conv{userID: userID, text: text}
	h.HandleText(ctx, c)
	return c
}

func command(ctx context.Context, h *bot.Handlers, userID int64, cmd, args string) *conv {
	c := &conv{userID: userID}
	h.HandleCommand(ctx, c, cmd, args)
	return c
}

// Scenario A: wallet creation replies with the address and never the key.
func TestScenario_WalletCreation(t *testing.T) {
	h := newStack(t, &scriptedChain{})
	ctx := context.Background()

	created := command(ctx, h, 1, "createwallet", "")
	if len(created.replies) != 1 {
		t.Fatalf("Expected one reply, got %d", len(created.replies))
	}
	reply := created.replies[0]
	if !strings.Contains(reply, "0x") {
		t.Fatalf("Expected an address, got %q", reply)
	}

	keys := command(ctx, h, 1, "showkeys", "")
	keyReply := keys.replies[0]
	privStart := strings.Index(keyReply, "Private key:")
	if privStart < 0 {
		t.Fatal("Expected private key in showkeys reply")
	}
	privLine := strings.Fields(keyReply[privStart:])[2]
	if strings.Contains(reply, privLine) {
		t.Error("Wallet creation reply leaks the private key")
	}
}

// Liveness: every inbound message gets exactly one reply, even junk.
func TestScenario_Liveness(t *testing.T) {
	h := newStack(t, &scriptedChain{})
	ctx := context.Background()

	for _, text := range []string{"hi", "", "/notacommand", "🎉", strings.Repeat("x", 5000)} {
		c := say(ctx, h, 1, text)
		if len(c.replies) != 1 {
			t.Errorf("Message %q got %d replies, want 1", text, len(c.replies))
		}
	}
}

// Scenario B: faucet refuses a wallet at the threshold without submitting.
func TestScenario_FaucetRefusal(t *testing.T) {
	chain := &scriptedChain{views: map[string][]*big.Int{
		"balanceOf": u256(amt("0.0005")),
	}}
	h := newStack(t, chain)
	ctx := context.Background()

	command(ctx, h, 1, "createwallet", "")
	c := command(ctx, h, 1, "faucet", "")
	if !strings.Contains(c.replies[0], "faucet") {
		t.Errorf("Expected refusal mentioning the faucet, got %q", c.replies[0])
	}
	if len(chain.submitted) != 0 {
		t.Error("Expected no transaction")
	}
}

// Scenario C: the complete gift flow submits exactly one two-call
// transaction and replies with a 66-character secret.
func TestScenario_GiftFlow(t *testing.T) {
	secret := new(big.Int).Lsh(big.NewInt(0xbeef), 160)
	chain := &scriptedChain{
		views: map[string][]*big.Int{"balanceOf": u256(eth(500))},
		events: []ledger.Event{{
			From: big.NewInt(0x30),
			Keys: []*big.Int{starkcurve.Selector("GiftCreated")},
			Data: []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(0x10), big.NewInt(0), big.NewInt(0), secret},
		}},
	}
	h := newStack(t, chain)
	ctx := context.Background()

	command(ctx, h, 1, "createwallet", "")
	command(ctx, h, 1, "gift", "")
	say(ctx, h, 1, "100")
	confirm := say(ctx, h, 1, "5")
	if !strings.Contains(confirm.replies[0], "20.00") {
		t.Errorf("Expected average 20.00 in confirmation, got %q", confirm.replies[0])
	}

	done := &conv{userID: 1}
	h.HandleCallback(ctx, done, "gift:confirm:"+eth(100).String()+":5")

	if len(chain.submitted) != 1 {
		t.Fatalf("Expected one transaction, got %d", len(chain.submitted))
	}
	if len(chain.submitted[0]) != 2 {
		t.Fatalf("Expected exactly 2 calls, got %d", len(chain.submitted[0]))
	}

	reply := done.replies[0]
	var secretToken string
	for _, field := range strings.Fields(reply) {
		if strings.HasPrefix(field, "0x") && len(field) == 66 {
			secretToken = field
			break
		}
	}
	if secretToken == "" {
		t.Errorf("Expected a 66-character 0x secret in reply %q", reply)
	}
}

// Scenario D: claiming winnings twice stops at the view check.
func TestScenario_DoubleWinningsClaim(t *testing.T) {
	chain := &scriptedChain{views: map[string][]*big.Int{
		"get_market": {
			big.NewInt(0x999),
			starkcurve.EncodeShortString("Yes"),
			starkcurve.EncodeShortString("No"),
			big.NewInt(1_700_000_000),
			big.NewInt(1),
			big.NewInt(0),
		},
		"get_bet":     append(u256(eth(10)), big.NewInt(0)),
		"has_claimed": {big.NewInt(1)},
	}}
	h := newStack(t, chain)
	ctx := context.Background()

	command(ctx, h, 1, "createwallet", "")
	c := command(ctx, h, 1, "claimwinnings", "7")
	if !strings.Contains(c.replies[0], "already claimed") {
		t.Errorf("Expected already-claimed reply, got %q", c.replies[0])
	}
	if len(chain.submitted) != 0 {
		t.Error("Expected no transaction")
	}
}

// Two users running flows at once never see each other's state.
func TestScenario_IndependentUsers(t *testing.T) {
	h := newStack(t, &scriptedChain{})
	ctx := context.Background()

	command(ctx, h, 1, "gift", "")
	command(ctx, h, 2, "claim", "")

	// User 1 is asked for an amount, user 2 for a secret.
	c1 := say(ctx, h, 1, "not a number")
	if !strings.Contains(c1.replies[0], "amount") {
		t.Errorf("User 1 got %q", c1.replies[0])
	}

	// User 3 with no flow gets the echo.
	c3 := say(ctx, h, 3, "echo me")
	if c3.replies[0] != "echo me" {
		t.Errorf("User 3 got %q", c3.replies[0])
	}
}
