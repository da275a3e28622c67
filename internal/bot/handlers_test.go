package bot

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/core/session"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
	"github.com/hongbaolabs/hongbao/internal/infra/storage/memory"
	"github.com/hongbaolabs/hongbao/internal/orchestrator"
	"github.com/hongbaolabs/hongbao/internal/wallet"
)

type fakeConv struct {
	userID  int64
	private bool
	text    string

	replies   []string
	keyboards [][]Button
	ephemeral []string
}

func (c *fakeConv) UserID() int64   { return c.userID }
func (c *fakeConv) IsPrivate() bool { return c.private }
func (c *fakeConv) Text() string    { return c.text }

func (c *fakeConv) Reply(text string) error {
	c.replies = append(c.replies, text)
	return nil
}

func (c *fakeConv) ReplyKeyboard(text string, buttons []Button) error {
	c.replies = append(c.replies, text)
	c.keyboards = append(c.keyboards, buttons)
	return nil
}

func (c *fakeConv) ReplyEphemeral(text string, ttl time.Duration) error {
	c.ephemeral = append(c.ephemeral, text)
	return nil
}

func (c *fakeConv) lastReply(t *testing.T) string {
	t.Helper()
	if len(c.replies) == 0 {
		t.Fatal("Expected a reply")
	}
	return c.replies[len(c.replies)-1]
}

type fakeGateway struct {
	views     map[string][]*big.Int
	submitted [][]ledger.Call
	receipt   *ledger.Receipt
}

func (g *fakeGateway) CallView(ctx context.Context, to *big.Int, entrypoint string, calldata []*big.Int) ([]*big.Int, error) {
	result, ok := g.views[entrypoint]
	if !ok {
		return nil, domain.E(domain.CodeUnknown, "unexpected view "+entrypoint)
	}
	return result, nil
}

func (g *fakeGateway) SubmitMulticall(ctx context.Context, sender ledger.Identity, calls []ledger.Call) (string, error) {
	g.submitted = append(g.submitted, calls)
	return "0xfeed", nil
}

func (g *fakeGateway) DeployAccount(ctx context.Context, sender ledger.Identity, classHash, salt *big.Int, constructorCalldata []*big.Int) (string, error) {
	return "0xfeed", nil
}

func (g *fakeGateway) WaitForFinality(ctx context.Context, txHash string) (*ledger.Receipt, error) {
	if g.receipt != nil {
		return g.receipt, nil
	}
	return &ledger.Receipt{TxHash: txHash}, nil
}

func u256(v *big.Int) []*big.Int {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	return []*big.Int{new(big.Int).And(v, mask), new(big.Int).Rsh(v, 128)}
}

func wei(tokens int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tokens), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newTestHandlers(t *testing.T, gateway *fakeGateway) (*Handlers, *session.Manager) {
	t.Helper()
	key, _ := hex.DecodeString("9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08")
	store := wallet.NewStore(memory.NewRepo(), key)
	classHash, _ := starkcurve.ParseFelt("0x1a736d6ed154502257f02b1ccdf4d9d1089f80811cd6acad48e6b6a9d1f2003")
	generator := wallet.NewGenerator(classHash)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := orchestrator.Config{
		ETH:              big.NewInt(0x10),
		Points:           big.NewInt(0x20),
		Gift:             big.NewInt(0x30),
		Market:           big.NewInt(0x40),
		AccountClassHash: classHash,
		Faucet:           ledger.Identity{Address: big.NewInt(0xfa), PrivateKey: big.NewInt(0xfb)},
		FaucetThreshold:  big.NewInt(1),
		FaucetDrop:       big.NewInt(1),
		PointsDrop:       big.NewInt(1),
		GiftExpiry:       24 * time.Hour,
	}
	orch := orchestrator.New(gateway, store, orchestrator.NewMemoryLocker(), cfg, log)
	sessions := session.NewManager()
	return NewHandlers(generator, store, orch, sessions, false, log), sessions
}

func private(userID int64, text string) *fakeConv {
	return &fakeConv{userID: userID, private: true, text: text}
}

func TestCreateWallet_RepliesWithAddressOnly(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	conv := private(1, "")

	h.HandleCommand(context.Background(), conv, "createwallet", "")

	reply := conv.lastReply(t)
	if !strings.Contains(reply, "0x") {
		t.Errorf("Expected address in reply, got %q", reply)
	}

	record, err := h.store.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected wallet to be saved: %v", err)
	}
	if !strings.Contains(reply, record.Address) {
		t.Errorf("Reply does not contain the wallet address")
	}
	if strings.Contains(reply, record.PrivateKey) {
		t.Error("Reply leaks the private key")
	}
}

func TestCreateWallet_RejectsSecond(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()

	h.HandleCommand(ctx, private(1, ""), "createwallet", "")
	before, _ := h.store.Load(ctx, 1)

	conv := private(1, "")
	h.HandleCommand(ctx, conv, "createwallet", "")
	if !strings.Contains(conv.lastReply(t), "already have a wallet") {
		t.Errorf("Expected refusal, got %q", conv.lastReply(t))
	}

	after, _ := h.store.Load(ctx, 1)
	if before.Address != after.Address {
		t.Error("Existing wallet was replaced")
	}
}

func TestShowKeys_Ephemeral(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()
	h.HandleCommand(ctx, private(1, ""), "createwallet", "")

	conv := private(1, "")
	h.HandleCommand(ctx, conv, "showkeys", "")

	if len(conv.ephemeral) != 1 {
		t.Fatal("Expected keys in an ephemeral reply")
	}
	record, _ := h.store.Load(ctx, 1)
	if !strings.Contains(conv.ephemeral[0], record.PrivateKey) {
		t.Error("Ephemeral reply missing the private key")
	}
	if len(conv.replies) != 0 {
		t.Error("Keys must not go out as a plain reply")
	}
}

func TestWalletCommands_RefusedInGroups(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	conv := &fakeConv{userID: 1, private: false}

	h.HandleCommand(context.Background(), conv, "createwallet", "")
	if !strings.Contains(conv.lastReply(t), "directly") {
		t.Errorf("Expected group refusal, got %q", conv.lastReply(t))
	}
	if exists, _ := h.store.Exists(context.Background(), 1); exists {
		t.Error("Wallet must not be created from a group chat")
	}
}

func TestEcho_WithoutState(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	conv := private(1, "hello there")

	h.HandleText(context.Background(), conv)
	if conv.lastReply(t) != "hello there" {
		t.Errorf("Expected verbatim echo, got %q", conv.lastReply(t))
	}
}

func TestGiftFlow_AveragesAndConfirmation(t *testing.T) {
	h, sessions := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()

	h.HandleCommand(ctx, private(1, ""), "gift", "")
	if state, ok := sessions.Get(1); !ok || state.Phase != session.PhaseGiftAmount {
		t.Fatal("Expected gift_amount phase")
	}

	// Bad amount re-prompts without leaving the phase.
	h.HandleText(ctx, private(1, "banana"))
	if state, _ := sessions.Get(1); state.Phase != session.PhaseGiftAmount {
		t.Error("Expected to stay in gift_amount phase")
	}

	h.HandleText(ctx, private(1, "100"))
	if state, _ := sessions.Get(1); state.Phase != session.PhaseGiftCount {
		t.Fatal("Expected gift_count phase")
	}

	conv := private(1, "4")
	h.HandleText(ctx, conv)
	if !strings.Contains(conv.lastReply(t), "25.00") {
		t.Errorf("Expected truncated average 25.00, got %q", conv.lastReply(t))
	}
	if len(conv.keyboards) != 1 || len(conv.keyboards[0]) != 2 {
		t.Fatal("Expected confirm/cancel keyboard")
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("Expected state cleared after confirmation prompt")
	}
}

func TestGiftFlow_TruncatedAverage(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()

	h.HandleCommand(ctx, private(1, ""), "gift", "")
	h.HandleText(ctx, private(1, "100"))
	conv := private(1, "3")
	h.HandleText(ctx, conv)
	if !strings.Contains(conv.lastReply(t), "33.33") {
		t.Errorf("Expected truncated average 33.33, got %q", conv.lastReply(t))
	}
}

func TestGiftFlow_BadCountAborts(t *testing.T) {
	h, sessions := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()

	h.HandleCommand(ctx, private(1, ""), "gift", "")
	h.HandleText(ctx, private(1, "100"))

	conv := private(1, "zero")
	h.HandleText(ctx, conv)
	if !strings.Contains(conv.lastReply(t), "Start over") {
		t.Errorf("Expected abort message, got %q", conv.lastReply(t))
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("Expected state cleared on bad count")
	}

	// Next plain message echoes again.
	echo := private(1, "anyone home?")
	h.HandleText(ctx, echo)
	if echo.lastReply(t) != "anyone home?" {
		t.Errorf("Expected echo after abort, got %q", echo.lastReply(t))
	}
}

func TestGiftConfirmCallback_Submits(t *testing.T) {
	secret := new(big.Int).Lsh(big.NewInt(0xbeef), 128)
	gateway := &fakeGateway{
		views: map[string][]*big.Int{"balanceOf": u256(wei(500))},
		receipt: &ledger.Receipt{
			TxHash: "0xfeed",
			Events: []ledger.Event{{
				From: big.NewInt(0x30),
				Keys: []*big.Int{starkcurve.Selector("GiftCreated")},
				Data: []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(0x10), big.NewInt(0), big.NewInt(0), secret},
			}},
		},
	}
	h, _ := newTestHandlers(t, gateway)
	ctx := context.Background()
	h.HandleCommand(ctx, private(1, ""), "createwallet", "")

	conv := private(1, "")
	h.HandleCallback(ctx, conv, "gift:confirm:"+wei(100).String()+":5")

	reply := conv.lastReply(t)
	if !strings.Contains(reply, "0xfeed") {
		t.Errorf("Expected tx hash in reply, got %q", reply)
	}
	idx := strings.Index(reply, "0x00")
	if idx < 0 {
		t.Fatalf("Expected zero-padded secret in reply, got %q", reply)
	}
	if len(gateway.submitted) != 1 || len(gateway.submitted[0]) != 2 {
		t.Error("Expected one multicall with exactly two calls")
	}
}

func TestGiftCancelCallback(t *testing.T) {
	gateway := &fakeGateway{}
	h, _ := newTestHandlers(t, gateway)

	conv := private(1, "")
	h.HandleCallback(context.Background(), conv, "gift:cancel")
	if !strings.Contains(conv.lastReply(t), "cancelled") {
		t.Errorf("Expected cancellation, got %q", conv.lastReply(t))
	}
	if len(gateway.submitted) != 0 {
		t.Error("Expected no submission on cancel")
	}
}

func TestClaimFlow(t *testing.T) {
	gateway := &fakeGateway{
		receipt: &ledger.Receipt{
			TxHash: "0xfeed",
			Events: []ledger.Event{{
				From: big.NewInt(0x30),
				Keys: []*big.Int{starkcurve.Selector("GiftClaimed")},
				Data: append([]*big.Int{big.NewInt(1)}, u256(wei(20))...),
			}},
		},
	}
	h, sessions := newTestHandlers(t, gateway)
	ctx := context.Background()
	h.HandleCommand(ctx, private(1, ""), "createwallet", "")

	h.HandleCommand(ctx, private(1, ""), "claim", "")
	conv := private(1, "  0xabc123  ")
	h.HandleText(ctx, conv)

	if !strings.Contains(conv.lastReply(t), "20") {
		t.Errorf("Expected claimed amount in reply, got %q", conv.lastReply(t))
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("Expected state cleared after claim")
	}
}

func TestBetFlow(t *testing.T) {
	gateway := &fakeGateway{}
	h, sessions := newTestHandlers(t, gateway)
	ctx := context.Background()
	h.HandleCommand(ctx, private(1, ""), "createwallet", "")

	h.HandleCommand(ctx, private(1, ""), "bet", "7 1")
	if state, ok := sessions.Get(1); !ok || state.MarketID != 7 || state.Option != 1 {
		t.Fatalf("Unexpected bet state: %+v", state)
	}

	// Bad amount re-prompts.
	h.HandleText(ctx, private(1, "lots"))
	if _, ok := sessions.Get(1); !ok {
		t.Fatal("Expected to stay in bet_amount phase")
	}

	conv := private(1, "10")
	h.HandleText(ctx, conv)
	if !strings.Contains(conv.lastReply(t), "0xfeed") {
		t.Errorf("Expected tx hash in reply, got %q", conv.lastReply(t))
	}
	if len(gateway.submitted) != 1 {
		t.Error("Expected one submission")
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("Expected state cleared after bet")
	}
}

func TestBet_UsageErrors(t *testing.T) {
	h, sessions := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()

	conv := private(1, "")
	h.HandleCommand(ctx, conv, "bet", "7")
	if !strings.Contains(conv.lastReply(t), "Usage") {
		t.Errorf("Expected usage hint, got %q", conv.lastReply(t))
	}

	h.HandleCommand(ctx, conv, "bet", "7 2")
	if !strings.Contains(conv.lastReply(t), "0 or 1") {
		t.Errorf("Expected option hint, got %q", conv.lastReply(t))
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("Expected no state from invalid command")
	}
}

func TestClaimWinnings_AlreadyClaimedReply(t *testing.T) {
	gateway := &fakeGateway{views: map[string][]*big.Int{
		"get_market": {
			big.NewInt(0x999),
			starkcurve.EncodeShortString("Yes"),
			starkcurve.EncodeShortString("No"),
			big.NewInt(1_700_000_000),
			big.NewInt(1),
			big.NewInt(0),
		},
		"get_bet":     append(u256(wei(10)), big.NewInt(0)),
		"has_claimed": {big.NewInt(1)},
	}}
	h, _ := newTestHandlers(t, gateway)
	ctx := context.Background()
	h.HandleCommand(ctx, private(1, ""), "createwallet", "")

	conv := private(1, "")
	h.HandleCommand(ctx, conv, "claimwinnings", "7")
	if !strings.Contains(conv.lastReply(t), "already claimed") {
		t.Errorf("Expected already-claimed reply, got %q", conv.lastReply(t))
	}
	if len(gateway.submitted) != 0 {
		t.Error("Expected no submission")
	}
}

func TestBalance_WithoutWallet(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	conv := private(1, "")

	h.HandleCommand(context.Background(), conv, "balance", "")
	if !strings.Contains(conv.lastReply(t), "/createwallet") {
		t.Errorf("Expected wallet hint, got %q", conv.lastReply(t))
	}
}

func TestCreateMarket_Usage(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeGateway{})
	conv := private(1, "")

	h.HandleCommand(context.Background(), conv, "createmarket", "only|three|parts")
	if !strings.Contains(conv.lastReply(t), "Usage") {
		t.Errorf("Expected usage hint, got %q", conv.lastReply(t))
	}
}

func TestNewFlowOverwritesOld(t *testing.T) {
	h, sessions := newTestHandlers(t, &fakeGateway{})
	ctx := context.Background()

	h.HandleCommand(ctx, private(1, ""), "gift", "")
	h.HandleCommand(ctx, private(1, ""), "claim", "")

	if state, _ := sessions.Get(1); state.Phase != session.PhaseClaimSecret {
		t.Errorf("Expected claim flow to replace gift flow, got %s", state.Phase)
	}
}
