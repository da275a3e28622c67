package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/hongbaolabs/hongbao/internal/core/config"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/metrics"
)

const (
	invokePrefix        = "invoke"
	deployAccountPrefix = "deploy_account"
	executeEntrypoint   = "__execute__"
)

var (
	selectorMu    sync.Mutex
	selectorCache = map[string]*big.Int{}
)

// selectorFor memoizes sn_keccak selectors; entrypoint names are a small
// fixed set.
func selectorFor(name string) *big.Int {
	selectorMu.Lock()
	defer selectorMu.Unlock()
	if v, ok := selectorCache[name]; ok {
		return v
	}
	v := starkcurve.Selector(name)
	selectorCache[name] = v
	return v
}

// Client talks Starknet JSON-RPC over HTTP.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	chainID      *big.Int
	maxFee       *big.Int
	pollInterval time.Duration
	log          *slog.Logger
}

// NewClient creates a gateway client from ledger configuration.
func NewClient(cfg config.LedgerConfig, log *slog.Logger) (*Client, error) {
	maxFee, ok := new(big.Int).SetString(cfg.MaxFee, 10)
	if !ok || maxFee.Sign() <= 0 {
		return nil, fmt.Errorf("invalid max_fee %q", cfg.MaxFee)
	}
	return &Client{
		endpoint: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		chainID:      starkcurve.EncodeShortString(cfg.ChainID),
		maxFee:       maxFee,
		pollInterval: cfg.PollInterval,
		log:          log,
	}, nil
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call makes a single JSON-RPC call.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	start := time.Now()
	metrics.LedgerCallsTotal.WithLabelValues(method).Inc()

	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("parse response: %w", err)
	}
	if rpcResp.Error != nil {
		metrics.LedgerErrorsTotal.WithLabelValues(method).Inc()
		return rpcResp.Error
	}

	metrics.LedgerLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("parse result: %w", err)
		}
	}
	return nil
}

// CallView executes a read-only contract call at the latest block.
func (c *Client) CallView(ctx context.Context, to *big.Int, entrypoint string, calldata []*big.Int) ([]*big.Int, error) {
	params := map[string]any{
		"request": map[string]any{
			"contract_address":     starkcurve.Hex(to),
			"entry_point_selector": starkcurve.Hex(selectorFor(entrypoint)),
			"calldata":             hexSlice(calldata),
		},
		"block_id": "latest",
	}

	var raw []string
	if err := c.call(ctx, "starknet_call", params, &raw); err != nil {
		return nil, Classify(err)
	}
	return parseFelts(raw)
}

// Nonce fetches the account nonce at the latest block.
func (c *Client) Nonce(ctx context.Context, address *big.Int) (*big.Int, error) {
	var raw string
	err := c.call(ctx, "starknet_getNonce", []any{"latest", starkcurve.Hex(address)}, &raw)
	if err != nil {
		return nil, Classify(err)
	}
	return starkcurve.ParseFelt(raw)
}

// executeCalldata flattens calls into the account __execute__ layout:
// call count, then per call the target, selector, data length and data.
func executeCalldata(calls []Call) []*big.Int {
	out := []*big.Int{big.NewInt(int64(len(calls)))}
	for _, call := range calls {
		out = append(out, call.To, selectorFor(call.Entrypoint), big.NewInt(int64(len(call.Calldata))))
		out = append(out, call.Calldata...)
	}
	return out
}

// invokeV1Hash computes the v1 invoke transaction hash: the calldata is
// hashed first, then folded into the envelope fields.
func invokeV1Hash(sender *big.Int, calldata []*big.Int, maxFee, chainID, nonce *big.Int) (*big.Int, error) {
	calldataHash, err := starkcurve.HashOnElements(calldata)
	if err != nil {
		return nil, fmt.Errorf("hash calldata: %w", err)
	}
	return starkcurve.HashOnElements([]*big.Int{
		starkcurve.EncodeShortString(invokePrefix),
		big.NewInt(1),
		sender,
		big.NewInt(0),
		calldataHash,
		maxFee,
		chainID,
		nonce,
	})
}

// deployAccountV1Hash computes the v1 deploy-account transaction hash.
func deployAccountV1Hash(address, classHash, salt *big.Int, constructorCalldata []*big.Int, maxFee, chainID, nonce *big.Int) (*big.Int, error) {
	ctorHash, err := starkcurve.HashOnElements(append([]*big.Int{classHash, salt}, constructorCalldata...))
	if err != nil {
		return nil, fmt.Errorf("hash constructor calldata: %w", err)
	}
	return starkcurve.HashOnElements([]*big.Int{
		starkcurve.EncodeShortString(deployAccountPrefix),
		big.NewInt(1),
		address,
		big.NewInt(0),
		ctorHash,
		maxFee,
		chainID,
		nonce,
	})
}

// SubmitMulticall signs the calls as a single v1 invoke and submits it.
func (c *Client) SubmitMulticall(ctx context.Context, sender Identity, calls []Call) (string, error) {
	if len(calls) == 0 {
		return "", fmt.Errorf("no calls to submit")
	}

	nonce, err := c.Nonce(ctx, sender.Address)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}

	calldata := executeCalldata(calls)
	txHash, err := invokeV1Hash(sender.Address, calldata, c.maxFee, c.chainID, nonce)
	if err != nil {
		return "", fmt.Errorf("hash transaction: %w", err)
	}

	r, s, err := starkcurve.Sign(txHash, sender.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	params := map[string]any{
		"invoke_transaction": map[string]any{
			"type":           "INVOKE",
			"version":        "0x1",
			"sender_address": starkcurve.Hex(sender.Address),
			"calldata":       hexSlice(calldata),
			"max_fee":        starkcurve.Hex(c.maxFee),
			"signature":      []string{starkcurve.Hex(r), starkcurve.Hex(s)},
			"nonce":          starkcurve.Hex(nonce),
		},
	}

	var result struct {
		TransactionHash string `json:"transaction_hash"`
	}
	if err := c.call(ctx, "starknet_addInvokeTransaction", params, &result); err != nil {
		return "", Classify(err)
	}

	c.log.Info("transaction submitted",
		"tx_hash", result.TransactionHash,
		"calls", len(calls),
	)
	return result.TransactionHash, nil
}

// DeployAccount signs and submits the v1 deploy-account transaction. The
// account contract pays its own deployment fee, so it must be funded first.
func (c *Client) DeployAccount(ctx context.Context, sender Identity, classHash, salt *big.Int, constructorCalldata []*big.Int) (string, error) {
	nonce := big.NewInt(0)

	txHash, err := deployAccountV1Hash(sender.Address, classHash, salt, constructorCalldata, c.maxFee, c.chainID, nonce)
	if err != nil {
		return "", fmt.Errorf("hash transaction: %w", err)
	}

	r, s, err := starkcurve.Sign(txHash, sender.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign deploy: %w", err)
	}

	params := map[string]any{
		"deploy_account_transaction": map[string]any{
			"type":                  "DEPLOY_ACCOUNT",
			"version":               "0x1",
			"class_hash":            starkcurve.Hex(classHash),
			"contract_address_salt": starkcurve.Hex(salt),
			"constructor_calldata":  hexSlice(constructorCalldata),
			"max_fee":               starkcurve.Hex(c.maxFee),
			"signature":             []string{starkcurve.Hex(r), starkcurve.Hex(s)},
			"nonce":                 starkcurve.Hex(nonce),
		},
	}

	var result struct {
		TransactionHash string `json:"transaction_hash"`
	}
	if err := c.call(ctx, "starknet_addDeployAccountTransaction", params, &result); err != nil {
		return "", Classify(err)
	}

	c.log.Info("account deployment submitted", "tx_hash", result.TransactionHash)
	return result.TransactionHash, nil
}

type rawReceipt struct {
	ExecutionStatus string `json:"execution_status"`
	FinalityStatus  string `json:"finality_status"`
	RevertReason    string `json:"revert_reason"`
	Events          []struct {
		FromAddress string   `json:"from_address"`
		Keys        []string `json:"keys"`
		Data        []string `json:"data"`
	} `json:"events"`
}

// WaitForFinality polls for the transaction receipt until the node reports
// an outcome or the context expires. A reverted transaction surfaces as a
// classified error, not a receipt.
func (c *Client) WaitForFinality(ctx context.Context, txHash string) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var raw rawReceipt
		err := c.call(ctx, "starknet_getTransactionReceipt", []any{txHash}, &raw)
		switch {
		case err == nil && raw.ExecutionStatus == "REVERTED":
			c.log.Warn("transaction reverted", "tx_hash", txHash, "reason", raw.RevertReason)
			return nil, classifyRevert(raw.RevertReason)
		case err == nil && raw.ExecutionStatus != "":
			return buildReceipt(txHash, raw)
		case err != nil && !isNotReceived(err):
			return nil, Classify(err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("awaiting %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// isNotReceived reports whether the error means the node has not seen the
// transaction yet, which is expected right after submission.
func isNotReceived(err error) bool {
	var rpcErr *rpcError
	if !asRPCError(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == 29 // TXN_HASH_NOT_FOUND
}

func buildReceipt(txHash string, raw rawReceipt) (*Receipt, error) {
	receipt := &Receipt{TxHash: txHash}
	for _, ev := range raw.Events {
		from, err := starkcurve.ParseFelt(ev.FromAddress)
		if err != nil {
			return nil, fmt.Errorf("parse event source: %w", err)
		}
		keys, err := parseFelts(ev.Keys)
		if err != nil {
			return nil, fmt.Errorf("parse event keys: %w", err)
		}
		data, err := parseFelts(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("parse event data: %w", err)
		}
		receipt.Events = append(receipt.Events, Event{From: from, Keys: keys, Data: data})
	}
	return receipt, nil
}

func hexSlice(vals []*big.Int) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = starkcurve.Hex(v)
	}
	return out
}

func parseFelts(raw []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(raw))
	for i, s := range raw {
		v, err := starkcurve.ParseFelt(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
