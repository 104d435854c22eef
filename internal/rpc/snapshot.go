package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Target block spacing is five minutes, so a day yields 288 blocks and a
// week 2016.
const (
	blocksPerDay  = 288.0
	blocksPerWeek = 2016.0
	matureDepth   = 31
)

// StakeCounter reports how many proof-of-stake blocks the local wallet
// found within a trailing window. Satisfied by logtail.Tailer.
type StakeCounter interface {
	CountStakes(window time.Duration) int
}

// Peer is the subset of getpeerinfo the dashboard displays.
type Peer struct {
	Addr          string  `json:"addr"`
	SubVer        string  `json:"subver"`
	Inbound       bool    `json:"inbound"`
	PingTime      float64 `json:"pingtime"`
	SyncedBlocks  int     `json:"synced_blocks"`
	SyncedHeaders int     `json:"synced_headers"`
}

// Snapshot is one full sweep of daemon state. Map-valued fields are nil
// when the underlying query failed; derived fields fall back to their
// zero values.
type Snapshot struct {
	BlockchainInfo map[string]any
	BestBlockHash  string
	ChainTips      []map[string]any
	Difficulty     any
	MempoolInfo    map[string]any
	MiningInfo     map[string]any
	NetworkInfo    map[string]any
	NetTotals      map[string]any
	MemoryInfo     map[string]any
	RPCInfo        map[string]any
	WalletInfo     map[string]any
	Balances       map[string]any
	NetworkHashPS  any
	Uptime         any
	Unconfirmed    any
	WalletBalance  float64
	HasWallet      bool
	Peers          []Peer
	ConnectionOK   bool
	Connections    int
	AddressGroups  []any
	AllAddresses   []map[string]any

	ImmatureUTXOs int
	Stakes24h     int
	Stakes7d      int
	Yield24h      float64
	Yield7d       float64

	DaemonStatus  string
	StakingStatus string
	SyncState     string
	BlockHeight   string
	TipsSummary   string
	RPCPort       string
	RPCSecure     bool
}

// FetchSnapshot runs the full query sweep. Individual failures degrade
// to empty fields; the call itself never fails.
func (c *Client) FetchSnapshot(ctx context.Context, stakes StakeCounter) Snapshot {
	snap := Snapshot{
		DaemonStatus: "Not running",
		SyncState:    "Unknown",
		BlockHeight:  "N/A",
		RPCPort:      c.RPCPort(),
		RPCSecure:    c.Secure(),
	}

	if raw, ok := c.safeCall(ctx, "getblockchaininfo"); ok {
		snap.BlockchainInfo = decodeObject(raw)
	}
	if snap.BlockchainInfo != nil {
		snap.DaemonStatus = "Running"
		if blocks, ok := asFloat(snap.BlockchainInfo["blocks"]); ok {
			snap.BlockHeight = fmt.Sprintf("%.0f", blocks)
		}
		snap.SyncState = syncState(snap.BlockchainInfo)
	}

	if raw, ok := c.safeCall(ctx, "getbestblockhash"); ok {
		var hash string
		if err := json.Unmarshal(raw, &hash); err == nil {
			snap.BestBlockHash = hash
		}
	}
	if raw, ok := c.safeCall(ctx, "getchaintips"); ok {
		snap.ChainTips = decodeObjectList(raw)
		snap.TipsSummary = summarizeTips(snap.ChainTips)
	}
	if raw, ok := c.safeCall(ctx, "getdifficulty"); ok {
		snap.Difficulty = decodeAny(raw)
	}
	if raw, ok := c.safeCall(ctx, "getmempoolinfo"); ok {
		snap.MempoolInfo = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getmininginfo"); ok {
		snap.MiningInfo = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getnetworkinfo"); ok {
		snap.NetworkInfo = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getnettotals"); ok {
		snap.NetTotals = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getmemoryinfo"); ok {
		snap.MemoryInfo = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getrpcinfo"); ok {
		snap.RPCInfo = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getnetworkhashps"); ok {
		snap.NetworkHashPS = decodeAny(raw)
	}
	if raw, ok := c.safeCall(ctx, "uptime"); ok {
		snap.Uptime = decodeAny(raw)
	}

	if raw, ok := c.safeCall(ctx, "getwalletinfo"); ok {
		snap.WalletInfo = decodeObject(raw)
	}
	snap.HasWallet = snap.WalletInfo != nil
	if raw, ok := c.safeCall(ctx, "getbalances"); ok {
		snap.Balances = decodeObject(raw)
	}
	if raw, ok := c.safeCall(ctx, "getunconfirmedbalance"); ok {
		snap.Unconfirmed = decodeAny(raw)
	}
	if raw, ok := c.safeCall(ctx, "getbalance"); ok {
		if balance, ok := asFloat(decodeAny(raw)); ok {
			snap.WalletBalance = balance
		}
	}
	if raw, ok := c.safeCall(ctx, "getconnectioncount"); ok {
		if count, ok := asFloat(decodeAny(raw)); ok {
			snap.ConnectionOK = true
			snap.Connections = int(count)
		}
	}
	if raw, ok := c.safeCall(ctx, "getpeerinfo"); ok {
		var peers []Peer
		if err := json.Unmarshal(raw, &peers); err == nil {
			snap.Peers = peers
		}
	}
	if raw, ok := c.safeCall(ctx, "listaddressgroupings"); ok {
		var groups []any
		if err := json.Unmarshal(raw, &groups); err == nil {
			snap.AddressGroups = groups
		}
	}
	if raw, ok := c.safeCall(ctx, "listreceivedbyaddress", 0, true); ok {
		snap.AllAddresses = decodeObjectList(raw)
	}
	if raw, ok := c.safeCall(ctx, "listunspent", 0); ok {
		snap.ImmatureUTXOs = countImmature(decodeObjectList(raw))
	}

	if stakes != nil {
		snap.Stakes24h = stakes.CountStakes(24 * time.Hour)
		snap.Stakes7d = stakes.CountStakes(7 * 24 * time.Hour)
		snap.Yield24h = float64(snap.Stakes24h) * 100 / blocksPerDay
		snap.Yield7d = float64(snap.Stakes7d) * 100 / blocksPerWeek
	}

	snap.StakingStatus = c.stakingStatus(ctx, snap.DaemonStatus == "Running")
	return snap
}

// stakingStatus combines the conf-file switch with the live staking
// RPC, preferring the live answer when the daemon is up.
func (c *Client) stakingStatus(ctx context.Context, running bool) string {
	if running {
		if raw, ok := c.safeCall(ctx, "getstakinginfo"); ok {
			info := decodeObject(raw)
			if staking, ok := info["staking"].(bool); ok {
				if staking {
					return "Active"
				}
				return "Inactive"
			}
		}
	}
	switch enabled := c.StakingEnabled(); {
	case enabled == nil:
		return "Unknown"
	case *enabled:
		return "Enabled"
	default:
		return "Disabled"
	}
}

// syncState classifies chain progress from initialblockdownload, falling
// back to verificationprogress for daemons that omit the flag.
func syncState(info map[string]any) string {
	if ibd, ok := info["initialblockdownload"].(bool); ok {
		if !ibd {
			return "Synced"
		}
		if progress, ok := asFloat(info["verificationprogress"]); ok {
			return fmt.Sprintf("Syncing (%.1f%%)", progress*100)
		}
		return "Syncing"
	}
	progress, ok := asFloat(info["verificationprogress"])
	if !ok {
		return "Unknown"
	}
	if progress >= 0.995 {
		return "Synced"
	}
	return fmt.Sprintf("Syncing (%.1f%%)", progress*100)
}

// summarizeTips rolls chain tips up by status, active first.
func summarizeTips(tips []map[string]any) string {
	if len(tips) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, tip := range tips {
		status, _ := tip["status"].(string)
		if status == "" {
			status = "unknown"
		}
		counts[status]++
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i] == "active" {
			return true
		}
		if statuses[j] == "active" {
			return false
		}
		return statuses[i] < statuses[j]
	})
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%d %s", counts[status], status))
	}
	return strings.Join(parts, ", ")
}

// countImmature tallies outputs still ripening: confirmed but shy of
// the maturity depth.
func countImmature(unspent []map[string]any) int {
	count := 0
	for _, utxo := range unspent {
		conf, ok := asFloat(utxo["confirmations"])
		if !ok {
			continue
		}
		if conf > 0 && conf < matureDepth {
			count++
		}
	}
	return count
}

func decodeAny(raw json.RawMessage) any {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

func decodeObject(raw json.RawMessage) map[string]any {
	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil
	}
	return object
}

func decodeObjectList(raw json.RawMessage) []map[string]any {
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(typed, "%g", &f); err == nil {
			return f, true
		}
	case int:
		return float64(typed), true
	}
	return 0, false
}
