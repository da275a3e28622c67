package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
	"github.com/hongbaolabs/hongbao/internal/core/session"
	"github.com/hongbaolabs/hongbao/internal/metrics"
	"github.com/hongbaolabs/hongbao/internal/orchestrator"
	"github.com/hongbaolabs/hongbao/internal/wallet"
)

const showKeysTTL = 60 * time.Second

// Handlers routes commands, free text and keyboard callbacks.
type Handlers struct {
	generator     *wallet.Generator
	store         *wallet.Store
	orch          *orchestrator.Orchestrator
	sessions      *session.Manager
	allowRecreate bool
	log           *slog.Logger
}

// NewHandlers wires the bot surface.
func NewHandlers(generator *wallet.Generator, store *wallet.Store, orch *orchestrator.Orchestrator, sessions *session.Manager, allowRecreate bool, log *slog.Logger) *Handlers {
	return &Handlers{
		generator:     generator,
		store:         store,
		orch:          orch,
		sessions:      sessions,
		allowRecreate: allowRecreate,
		log:           log,
	}
}

// walletCommands must not run in group chats; they reply with balances,
// keys or move funds.
var walletCommands = map[string]bool{
	"createwallet":  true,
	"showkeys":      true,
	"balance":       true,
	"deploy":        true,
	"faucet":        true,
	"gift":          true,
	"claim":         true,
	"bet":           true,
	"createmarket":  true,
	"settle":        true,
	"claimwinnings": true,
}

// HandleCommand dispatches one slash command.
func (h *Handlers) HandleCommand(ctx context.Context, conv Conversation, command, args string) {
	metrics.CommandsTotal.WithLabelValues(command).Inc()

	if walletCommands[command] && !conv.IsPrivate() {
		h.send(conv, "Please message me directly for wallet operations.")
		return
	}

	switch command {
	case "start":
		h.send(conv, "Welcome! I manage a wallet for you on Starknet.\n"+
			"Use /createwallet to get started, or /help for the full command list.")
	case "help":
		h.send(conv, helpText)
	case "createwallet":
		h.createWallet(ctx, conv)
	case "showkeys":
		h.showKeys(ctx, conv)
	case "balance":
		h.balance(ctx, conv)
	case "deploy":
		h.deploy(ctx, conv)
	case "faucet":
		h.faucet(ctx, conv)
	case "gift":
		h.sessions.Begin(conv.UserID(), session.State{Phase: session.PhaseGiftAmount})
		h.send(conv, "How much ETH should the red envelope hold?")
	case "claim":
		h.sessions.Begin(conv.UserID(), session.State{Phase: session.PhaseClaimSecret})
		h.send(conv, "Send me the gift secret.")
	case "bet":
		h.startBet(conv, args)
	case "createmarket":
		h.createMarket(ctx, conv, args)
	case "settle":
		h.settle(ctx, conv, args)
	case "claimwinnings":
		h.claimWinnings(ctx, conv, args)
	default:
		h.send(conv, "I don't know that command. Try /help.")
	}
}

const helpText = `Commands:
/createwallet - create your custodial wallet
/showkeys - reveal your keys (auto-deletes)
/balance - show ETH and points balances
/deploy - deploy your account on-chain
/faucet - top up an empty wallet
/gift - create a red envelope
/claim - claim a red envelope share
/createmarket name|description|optionA|optionB|hours
/bet <market id> <0|1> - bet points on an outcome
/settle <market id> <0|1> - settle your market
/claimwinnings <market id> - collect winnings`

// HandleText routes a plain message through the conversation state. With no
// pending state the bot echoes, matching its original party-trick behavior.
func (h *Handlers) HandleText(ctx context.Context, conv Conversation) {
	userID := conv.UserID()
	state, ok := h.sessions.Get(userID)
	if !ok {
		h.send(conv, conv.Text())
		return
	}

	switch state.Phase {
	case session.PhaseGiftAmount:
		h.giftAmount(conv)
	case session.PhaseGiftCount:
		h.giftCount(conv, state)
	case session.PhaseClaimSecret:
		h.sessions.Clear(userID)
		h.claimGift(ctx, conv, strings.TrimSpace(conv.Text()))
	case session.PhaseBetAmount:
		h.betAmount(ctx, conv, state)
	default:
		h.sessions.Clear(userID)
		h.send(conv, conv.Text())
	}
}

// HandleCallback routes an inline keyboard press.
func (h *Handlers) HandleCallback(ctx context.Context, conv Conversation, data string) {
	parts := strings.Split(data, ":")
	switch {
	case data == "gift:cancel":
		h.send(conv, "Gift cancelled.")
	case len(parts) == 4 && parts[0] == "gift" && parts[1] == "confirm":
		amount, ok := new(big.Int).SetString(parts[2], 10)
		count, err := strconv.Atoi(parts[3])
		if !ok || err != nil {
			h.send(conv, "That confirmation has expired. Start over with /gift.")
			return
		}
		h.createGift(ctx, conv, amount, count)
	default:
		h.log.Warn("unrecognized callback", "data", data)
	}
}

func (h *Handlers) createWallet(ctx context.Context, conv Conversation) {
	userID := conv.UserID()

	exists, err := h.store.Exists(ctx, userID)
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	if exists && !h.allowRecreate {
		h.errorReply(conv, domain.ErrWalletExists)
		return
	}

	record, err := h.generator.Generate()
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	if _, err := h.store.Save(ctx, userID, record); err != nil {
		h.errorReply(conv, err)
		return
	}

	h.log.Info("wallet created", "user_id", userID)
	h.send(conv, fmt.Sprintf("Your wallet is ready.\n\nAddress:\n%s\n\n"+
		"Fund it and run /deploy to activate it on-chain. Use /showkeys to back up your keys.",
		record.Address))
}

func (h *Handlers) showKeys(ctx context.Context, conv Conversation) {
	record, err := h.store.Load(ctx, conv.UserID())
	if err != nil {
		h.errorReply(conv, err)
		return
	}

	text := fmt.Sprintf("Address:\n%s\n\nPrivate key:\n%s\n\nPublic key:\n%s\n\n"+
		"This message self-destructs in %d seconds.",
		record.Address, record.PrivateKey, record.PublicKey, int(showKeysTTL.Seconds()))
	if err := conv.ReplyEphemeral(text, showKeysTTL); err != nil {
		h.log.Error("failed to send keys", "user_id", conv.UserID(), "error", err)
	}
}

func (h *Handlers) balance(ctx context.Context, conv Conversation) {
	balances, err := h.orch.Balance(ctx, conv.UserID())
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("Address:\n%s\n\nETH: %s\nPoints: %s",
		balances.Address,
		orchestrator.FormatAmount(balances.ETH),
		orchestrator.FormatAmount(balances.Points)))
}

func (h *Handlers) deploy(ctx context.Context, conv Conversation) {
	txHash, err := h.orch.DeployAccount(ctx, conv.UserID())
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, "Your account is deployed.\nTransaction: "+txHash)
}

func (h *Handlers) faucet(ctx context.Context, conv Conversation) {
	result, err := h.orch.Faucet(ctx, conv.UserID())
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("Sent %s ETH and %s points to your wallet.\nTransaction: %s",
		orchestrator.FormatAmount(result.ETHDrop),
		orchestrator.FormatAmount(result.PointsDrop),
		result.TxHash))
}

func (h *Handlers) giftAmount(conv Conversation) {
	amount, err := orchestrator.ParseAmount(conv.Text())
	if err != nil {
		// Re-prompt; the user can just try again.
		h.send(conv, "That doesn't look like an amount. Send a positive number, like 0.1")
		return
	}
	h.sessions.Transition(conv.UserID(), func(s session.State) session.State {
		s.Phase = session.PhaseGiftCount
		s.Amount = amount
		return s
	})
	h.send(conv, "Into how many shares should it split?")
}

func (h *Handlers) giftCount(conv Conversation, state session.State) {
	userID := conv.UserID()
	count, err := strconv.Atoi(strings.TrimSpace(conv.Text()))
	if err != nil || count <= 0 {
		// Abort the flow; a bad count ends it rather than looping.
		h.sessions.Clear(userID)
		h.send(conv, "The share count must be a positive whole number. Start over with /gift.")
		return
	}

	h.sessions.Clear(userID)
	text := fmt.Sprintf("Gift of %s ETH split into %d shares (avg %s each). Create it?",
		orchestrator.FormatAmount(state.Amount), count, orchestrator.Average(state.Amount, count))
	err = conv.ReplyKeyboard(text, []Button{
		{Label: "Create", Data: fmt.Sprintf("gift:confirm:%s:%d", state.Amount.String(), count)},
		{Label: "Cancel", Data: "gift:cancel"},
	})
	if err != nil {
		h.log.Error("failed to send confirmation", "user_id", userID, "error", err)
	}
}

func (h *Handlers) createGift(ctx context.Context, conv Conversation, amount *big.Int, count int) {
	result, err := h.orch.CreateGift(ctx, conv.UserID(), amount, count)
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("Red envelope created: %s ETH in %d shares.\n\n"+
		"Share this secret with the recipients:\n%s\n\nTransaction: %s",
		orchestrator.FormatAmount(result.Amount), result.Count, result.Secret, result.TxHash))
}

func (h *Handlers) claimGift(ctx context.Context, conv Conversation, secret string) {
	result, err := h.orch.ClaimGift(ctx, conv.UserID(), secret)
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("You claimed %s ETH.\nTransaction: %s",
		orchestrator.FormatAmount(result.Amount), result.TxHash))
}

func (h *Handlers) startBet(conv Conversation, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.send(conv, "Usage: /bet <market id> <0|1>")
		return
	}
	marketID, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		h.send(conv, "The market id must be a number.")
		return
	}
	option, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil || option > 1 {
		h.send(conv, "The option must be 0 or 1.")
		return
	}

	h.sessions.Begin(conv.UserID(), session.State{
		Phase:    session.PhaseBetAmount,
		MarketID: marketID,
		Option:   uint8(option),
	})
	h.send(conv, "How many points do you want to bet?")
}

func (h *Handlers) betAmount(ctx context.Context, conv Conversation, state session.State) {
	amount, err := orchestrator.ParseAmount(conv.Text())
	if err != nil {
		h.send(conv, "That doesn't look like an amount. Send a positive number, like 10")
		return
	}

	h.sessions.Clear(conv.UserID())
	txHash, err := h.orch.PlaceBet(ctx, conv.UserID(), state.MarketID, state.Option, amount)
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("Bet placed: %s points on option %d of market %d.\nTransaction: %s",
		orchestrator.FormatAmount(amount), state.Option, state.MarketID, txHash))
}

func (h *Handlers) createMarket(ctx context.Context, conv Conversation, args string) {
	parts := strings.Split(args, "|")
	if len(parts) != 5 {
		h.send(conv, "Usage: /createmarket name|description|optionA|optionB|hours")
		return
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	hours, err := strconv.Atoi(parts[4])
	if err != nil || hours <= 0 {
		h.send(conv, "The duration must be a positive number of hours.")
		return
	}

	result, err := h.orch.CreateMarket(ctx, conv.UserID(), parts[0], parts[1], parts[2], parts[3], hours)
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("Market #%d is open until %s.\nTransaction: %s",
		result.ID, result.Deadline.Format("2006-01-02 15:04 UTC"), result.TxHash))
}

func (h *Handlers) settle(ctx context.Context, conv Conversation, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.send(conv, "Usage: /settle <market id> <0|1>")
		return
	}
	marketID, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		h.send(conv, "The market id must be a number.")
		return
	}
	option, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil || option > 1 {
		h.send(conv, "The winning option must be 0 or 1.")
		return
	}

	result, err := h.orch.SettleMarket(ctx, conv.UserID(), marketID, uint8(option))
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, fmt.Sprintf("Market %d settled. Winning option: %s\nTransaction: %s",
		marketID, result.WinningLabel, result.TxHash))
}

func (h *Handlers) claimWinnings(ctx context.Context, conv Conversation, args string) {
	marketID, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
	if err != nil {
		h.send(conv, "Usage: /claimwinnings <market id>")
		return
	}

	txHash, err := h.orch.ClaimWinnings(ctx, conv.UserID(), marketID)
	if err != nil {
		h.errorReply(conv, err)
		return
	}
	h.send(conv, "Winnings claimed.\nTransaction: "+txHash)
}

// errorReply converts an operation failure into a user-facing message. The
// process never dies on a user action; unrecognized errors get logged and a
// generic apology.
func (h *Handlers) errorReply(conv Conversation, err error) {
	var text string
	switch domain.CodeOf(err) {
	case domain.CodeInvalidInput:
		text = "Invalid input: " + err.Error()
	case domain.CodeNoWallet, domain.CodeNotFound:
		text = "You don't have a wallet yet. Create one with /createwallet."
	case domain.CodeWalletExists:
		text = "You already have a wallet. Use /showkeys to see it."
	case domain.CodeIntegrity:
		text = "Failed to retrieve your wallet. Please contact support."
	case domain.CodeInsufficientBalance:
		text = "Your balance is too low for that amount."
	case domain.CodeBalanceSufficient:
		text = "Your wallet still has ETH. The faucet only tops up empty wallets."
	case domain.CodeBusy:
		text = "Your previous transaction is still in flight. Please wait a moment."
	case domain.CodeInsufficientFunds:
		text = "The transaction failed: not enough funds to cover it (fees included)."
	case domain.CodeGiftClaimed:
		text = "You have already claimed a share of this gift."
	case domain.CodeGiftExpired:
		text = "This gift has expired."
	case domain.CodeGiftNotFound:
		text = "No gift matches that secret."
	case domain.CodeGiftExhausted:
		text = "All shares of this gift are gone."
	case domain.CodeNotOwner:
		text = "Only the market owner can settle it."
	case domain.CodeAlreadySettled:
		text = "This market is already settled."
	case domain.CodeNotSettled:
		text = "This market hasn't been settled yet."
	case domain.CodeWinningsClaimed:
		text = "You have already claimed your winnings."
	case domain.CodeDidNotWin:
		text = "Your bet was on the losing option."
	case domain.CodeNoPosition:
		text = "You have no bet on this market."
	default:
		h.log.Error("operation failed", "user_id", conv.UserID(), "error", err)
		text = "Something went wrong. Please try again later."
	}
	h.send(conv, text)
}

func (h *Handlers) send(conv Conversation, text string) {
	if err := conv.Reply(text); err != nil {
		h.log.Error("failed to reply", "user_id", conv.UserID(), "error", err)
	}
}
