package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GetNewAddress mints a fresh receiving address.
func (c *Client) GetNewAddress(ctx context.Context) (string, bool) {
	raw, ok := c.safeCall(ctx, "getnewaddress")
	if !ok {
		return "", false
	}
	var addr string
	if err := json.Unmarshal(raw, &addr); err != nil || addr == "" {
		return "", false
	}
	return addr, true
}

// SendToAddress transfers the given amount and returns the transaction id.
func (c *Client) SendToAddress(ctx context.Context, address string, amount float64) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("address is empty")
	}
	if amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	raw, ok := c.safeCall(ctx, "sendtoaddress", address, amount)
	if !ok {
		return "", fmt.Errorf("send to %s failed", address)
	}
	return decodeTxid(raw)
}

// SweepToAddress sends the entire spendable balance, letting the daemon
// deduct the fee from it.
func (c *Client) SweepToAddress(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("address is empty")
	}
	raw, ok := c.safeCall(ctx, "getbalance")
	if !ok {
		return "", fmt.Errorf("balance unavailable")
	}
	balance, ok := asFloat(decodeAny(raw))
	if !ok || balance <= 0 {
		return "", fmt.Errorf("no spendable balance")
	}
	result, ok := c.safeCall(ctx, "sendtoaddress", address, balance, "", "", true)
	if !ok {
		return "", fmt.Errorf("sweep to %s failed", address)
	}
	txid, err := decodeTxid(result)
	if err != nil {
		return "", err
	}
	c.logger.Info("swept wallet", zap.String("address", address), zap.Float64("amount", balance))
	return txid, nil
}

func decodeTxid(raw json.RawMessage) (string, error) {
	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil || txid == "" {
		return "", fmt.Errorf("unexpected send response: %s", string(raw))
	}
	return txid, nil
}

// NodeVersion asks the daemon binary for its version string. The first
// output line is returned verbatim.
func (c *Client) NodeVersion(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.cfg.DaemonBin, "-version").Output()
	if err != nil {
		return "", false
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return "", false
	}
	return line, true
}

// BlockCountCLI reads the tip height through the command-line client,
// reporting "loading" while the daemon is still warming up.
func (c *Client) BlockCountCLI(ctx context.Context) string {
	raw, ok := c.cliCall(ctx, "getblockcount")
	if !ok {
		return "loading"
	}
	count, ok := asFloat(decodeAny(raw))
	if !ok {
		return "loading"
	}
	return fmt.Sprintf("%.0f", count)
}
