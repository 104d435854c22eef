// Package rpc is the gateway to the blockchain daemon: JSON-RPC 1.0 over
// HTTP with basic auth, falling back to the command-line client when the
// HTTP path fails. Total failure is reported as "no data", never as a
// crash; the daemon being down is a normal condition here.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const rpcTimeout = 3 * time.Second

// ClientConfig wires the gateway to a daemon. Credentials left empty are
// filled from the daemon conf file.
type ClientConfig struct {
	WorkingDir string
	ConfPath   string
	CLIBin     string
	DaemonBin  string
	User       string
	Password   string
	Host       string
	Port       string
}

// Client issues daemon queries. Safe for concurrent use.
type Client struct {
	cfg        ClientConfig
	datadir    string
	stakingOff *bool
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a gateway, merging credentials from the daemon conf
// file into any not already set (environment and flags win).
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.CLIBin == "" {
		cfg.CLIBin = "lynx-cli"
	}
	if cfg.DaemonBin == "" {
		cfg.DaemonBin = "lynxd"
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: rpcTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{cfg: cfg, httpClient: httpClient, logger: logger}
	c.loadConf()
	return c
}

// loadConf reads key=value lines from the daemon conf, filling unset
// credentials and capturing datadir and the staking switch.
func (c *Client) loadConf() {
	data, err := os.ReadFile(c.cfg.ConfPath)
	if err != nil {
		return
	}
	confDir := filepath.Dir(c.cfg.ConfPath)

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "datadir":
			c.datadir = value
			if !filepath.IsAbs(value) {
				c.datadir = filepath.Clean(filepath.Join(confDir, value))
			}
		case "rpcuser":
			if c.cfg.User == "" {
				c.cfg.User = value
			}
		case "rpcpassword":
			if c.cfg.Password == "" {
				c.cfg.Password = value
			}
		case "rpcport":
			if c.cfg.Port == "" {
				c.cfg.Port = value
			}
		case "rpcbind", "rpchost":
			if c.cfg.Host == "" || c.cfg.Host == "127.0.0.1" {
				c.cfg.Host = value
			}
		case "disablestaking":
			switch value {
			case "1":
				off := true
				c.stakingOff = &off
			case "0":
				off := false
				c.stakingOff = &off
			}
		}
	}
}

// Datadir returns the effective daemon data directory.
func (c *Client) Datadir() string {
	if c.datadir != "" {
		return c.datadir
	}
	if c.cfg.WorkingDir != "" {
		if _, err := os.Stat(c.cfg.WorkingDir); err == nil {
			return c.cfg.WorkingDir
		}
	}
	candidates := []string{"/var/lib/lynx"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append([]string{filepath.Join(home, ".lynx")}, candidates...)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return c.cfg.WorkingDir
}

// StakingEnabled reports the conf-file staking switch: nil when the conf
// was unreadable, true when disablestaking is 0 or absent.
func (c *Client) StakingEnabled() *bool {
	if _, err := os.Stat(c.cfg.ConfPath); err != nil {
		return nil
	}
	enabled := c.stakingOff == nil || !*c.stakingOff
	return &enabled
}

// RPCPort returns the configured port, defaulting to 8332.
func (c *Client) RPCPort() string {
	if c.cfg.Port != "" {
		return c.cfg.Port
	}
	return "8332"
}

// Secure reports whether RPC credentials are configured.
func (c *Client) Secure() bool {
	return c.cfg.User != "" && c.cfg.Password != ""
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Call issues a JSON-RPC 1.0 request. An RPC-level error field fails the
// call like any transport error.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if c.cfg.User == "" || c.cfg.Password == "" {
		return nil, fmt.Errorf("rpc credentials not configured")
	}
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "1.0", ID: "beacon", Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%s", c.cfg.Host, c.RPCPort())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("rpc %s: decode: %w", method, err)
	}
	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		return nil, fmt.Errorf("rpc %s: %s", method, rpcErrorMessage(decoded.Error))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("rpc %s: status %d", method, resp.StatusCode)
	}
	return decoded.Result, nil
}

func rpcErrorMessage(raw json.RawMessage) string {
	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	return string(raw)
}

// cliCall invokes the command-line client and normalizes its stdout to
// JSON: bodies that already parse pass through, anything else is wrapped
// as a JSON string.
func (c *Client) cliCall(ctx context.Context, method string, params ...any) (json.RawMessage, bool) {
	args := make([]string, 0, len(params)+1)
	args = append(args, method)
	for _, p := range params {
		args = append(args, cliArg(p))
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.cfg.CLIBin, args...).Output()
	if err != nil {
		return nil, false
	}
	output := strings.TrimSpace(string(out))
	if output == "" {
		return nil, false
	}
	if json.Valid([]byte(output)) {
		return json.RawMessage(output), true
	}
	wrapped, err := json.Marshal(output)
	if err != nil {
		return nil, false
	}
	return wrapped, true
}

func cliArg(p any) string {
	switch typed := p.(type) {
	case bool:
		if typed {
			return "true"
		}
		return "false"
	case string:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// safeCall layers RPC over the CLI fallback. The comma-ok result means
// "data temporarily unavailable", never a caller-visible failure.
func (c *Client) safeCall(ctx context.Context, method string, params ...any) (json.RawMessage, bool) {
	result, err := c.Call(ctx, method, params...)
	if err == nil {
		return result, true
	}
	c.logger.Debug("rpc failed, trying cli", zap.String("method", method), zap.Error(err))

	if len(params) > 0 {
		return c.cliCall(ctx, method, params...)
	}
	if strings.HasPrefix(method, "get") || strings.HasPrefix(method, "list") || method == "uptime" {
		return c.cliCall(ctx, method)
	}
	return nil, false
}
