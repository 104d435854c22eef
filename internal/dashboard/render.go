package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mum4k/termdash/cell"
	"github.com/mum4k/termdash/widgets/text"

	"beacon/internal/geo"
	"beacon/internal/logtail"
	"beacon/internal/pricing"
)

// Callers of the renderLocked helpers hold a.mu.

func (a *App) renderHeaderLocked() {
	a.header.Reset()
	a.header.Write(" Lynx Beacon ", text.WriteCellOpts(cell.FgColor(cell.ColorCyan), cell.Bold()))

	statusColor := cell.ColorRed
	if a.snap.DaemonStatus == "Running" {
		statusColor = cell.ColorGreen
	}
	a.header.Write("| ")
	a.header.Write(a.snap.DaemonStatus, text.WriteCellOpts(cell.FgColor(statusColor)))
	a.header.Write(fmt.Sprintf(" | Height %s | %s", a.snap.BlockHeight, a.snap.SyncState))

	a.header.Write(" | Staking: ")
	a.header.Write(a.snap.StakingStatus, text.WriteCellOpts(cell.FgColor(stakingColor(a.snap.StakingStatus))))

	if a.snap.ConnectionOK {
		a.header.Write(fmt.Sprintf(" | %d peers", a.snap.Connections))
	}
	if a.priceOK {
		a.header.Write(" | " + pricing.FormatPrice(a.price, "USD"))
		if a.rateOK && a.cfg.Currency != "USD" {
			a.header.Write(" (" + pricing.FormatPrice(a.price*a.rate, a.cfg.Currency) + ")")
		}
	}
	if a.nodeVersion != "" {
		a.header.Write(" | "+a.nodeVersion, text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
	}
}

func stakingColor(status string) cell.Color {
	switch status {
	case "Active", "Enabled":
		return cell.ColorGreen
	case "Inactive", "Disabled":
		return cell.ColorRed
	default:
		return cell.ColorGray
	}
}

func (a *App) renderTips(rows []logtail.TipRow, latest *time.Time, tz string) {
	a.tipsText.Reset()

	title := "HEIGHT   HASH      TIME                        DELTA    BLOCK"
	a.tipsText.Write(title+"\n", text.WriteCellOpts(cell.FgColor(cell.ColorGray), cell.Bold()))

	for _, row := range rows {
		if row.Message != "" {
			a.tipsText.Write(row.Message+"\n", text.WriteCellOpts(cell.FgColor(cell.ColorYellow)))
			continue
		}
		height := "?"
		if row.Height >= 0 {
			height = fmt.Sprintf("%d", row.Height)
		}
		a.tipsText.Write(fmt.Sprintf("%-8s ", height), text.WriteCellOpts(cell.FgColor(cell.ColorCyan)))
		a.tipsText.Write(fmt.Sprintf("%-9s ", row.ShortHash), text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
		a.tipsText.Write(fmt.Sprintf("%-27s %-8s ", row.TimeDisplay, row.Delta))
		markerColor := cell.ColorGreen
		if row.Empty {
			markerColor = cell.ColorGray
		}
		a.tipsText.Write(row.Marker+"\n", text.WriteCellOpts(cell.FgColor(markerColor)))
	}

	if latest != nil {
		a.tipsText.Write(
			fmt.Sprintf("\nLatest block %s (%s)\n", latest.Format("2006-01-02 03:04:05 PM"), tz),
			text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
	}
}

func (a *App) renderStatsLocked(periods []logtail.StatPeriod, raw string) {
	a.statsText.Reset()

	if len(periods) > 0 {
		a.statsText.Write("Block Statistics\n", text.WriteCellOpts(cell.Bold()))
		for _, p := range periods {
			a.statsText.Write(fmt.Sprintf("  %s: %ds %s\n", p.Period, p.TotalSeconds, p.Desc))
		}
	} else if raw != "" {
		a.statsText.Write(raw + "\n")
	}

	a.statsText.Write(fmt.Sprintf("\nStakes: %d in 24h (%.2f%% yield), %d in 7d (%.2f%%)\n",
		a.snap.Stakes24h, a.snap.Yield24h, a.snap.Stakes7d, a.snap.Yield7d))

	if hashps, ok := floatField(a.snap.NetworkHashPS); ok {
		a.statsText.Write("Network: " + formatHashrate(hashps))
		if a.snap.NetTotals != nil {
			recv, _ := floatField(a.snap.NetTotals["totalbytesrecv"])
			sent, _ := floatField(a.snap.NetTotals["totalbytessent"])
			a.statsText.Write(fmt.Sprintf("  rx %s  tx %s", formatBytes(recv), formatBytes(sent)))
		}
		a.statsText.Write("\n")
	}
	if uptime, ok := floatField(a.snap.Uptime); ok {
		a.statsText.Write("Uptime: " + formatUptime(uptime) + "\n")
	}
	if a.snap.MempoolInfo != nil {
		if size, ok := floatField(a.snap.MempoolInfo["size"]); ok {
			a.statsText.Write(fmt.Sprintf("Mempool: %.0f tx\n", size))
		}
	}
	if a.snap.TipsSummary != "" {
		a.statsText.Write("Chain tips: " + a.snap.TipsSummary + "\n")
	}
	rpcState := "open"
	if a.snap.RPCSecure {
		rpcState = "auth"
	}
	a.statsText.Write(fmt.Sprintf("RPC: port %s (%s)\n", a.snap.RPCPort, rpcState),
		text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
}

func (a *App) renderPeersLocked() {
	a.peersText.Reset()

	if len(a.snap.Peers) == 0 {
		a.peersText.Write("No peers connected.\n", text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
		return
	}

	inbound := 0
	var pingSum float64
	pingCount := 0
	for _, peer := range a.snap.Peers {
		if peer.Inbound {
			inbound++
		}
		if peer.PingTime > 0 {
			pingSum += peer.PingTime
			pingCount++
		}
	}
	avgPing := "-"
	if pingCount > 0 {
		avgPing = formatPing(pingSum / float64(pingCount))
	}
	a.peersText.Write(fmt.Sprintf("%d peers (%d in / %d out), avg ping %s\n\n",
		len(a.snap.Peers), inbound, len(a.snap.Peers)-inbound, avgPing))

	peers := make([]rpcPeerView, 0, len(a.snap.Peers))
	for _, peer := range a.snap.Peers {
		peers = append(peers, rpcPeerView{peer.Addr, geo.Host(peer.Addr), peer.Inbound, peer.PingTime})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].addr < peers[j].addr })

	for _, peer := range peers {
		dir := "out"
		if peer.inbound {
			dir = "in"
		}
		a.peersText.Write(fmt.Sprintf("%-3s ", dir), text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
		a.peersText.Write(fmt.Sprintf("%-24s", peer.addr))
		if country := a.countries[peer.host]; country != "" {
			a.peersText.Write(" "+country, text.WriteCellOpts(cell.FgColor(cell.ColorCyan)))
		}
		a.peersText.Write(fmt.Sprintf("  %s\n", formatPing(peer.ping)))
	}
}

type rpcPeerView struct {
	addr    string
	host    string
	inbound bool
	ping    float64
}

func (a *App) renderWalletLocked() {
	a.walletText.Reset()

	if !a.snap.HasWallet {
		a.walletText.Write("Wallet unavailable.\n", text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
		return
	}

	a.walletText.Write(fmt.Sprintf("Balance: %.8f LYNX\n", a.snap.WalletBalance), text.WriteCellOpts(cell.Bold()))
	if a.priceOK {
		value := a.snap.WalletBalance * a.price
		display := pricing.FormatPrice(value, "USD")
		if a.rateOK && a.cfg.Currency != "USD" {
			display = pricing.FormatPrice(value*a.rate, a.cfg.Currency)
		}
		a.walletText.Write("Value:   " + display + "\n")
	}
	if unconfirmed, ok := floatField(a.snap.Unconfirmed); ok && unconfirmed > 0 {
		a.walletText.Write(fmt.Sprintf("Unconfirmed: %.8f\n", unconfirmed))
	}
	if a.snap.Balances != nil {
		if immature, ok := floatField(a.snap.Balances["immature"]); ok && immature > 0 {
			a.walletText.Write(fmt.Sprintf("Immature: %.8f\n", immature))
		}
	}
	a.walletText.Write(fmt.Sprintf("Maturing UTXOs: %d\n", a.snap.ImmatureUTXOs))

	if a.lastAddress != "" {
		a.walletText.Write("\nNew address:\n")
		a.walletText.Write(a.lastAddress+"\n", text.WriteCellOpts(cell.FgColor(cell.ColorGreen)))
	}
	a.walletText.Write("\nPress n for a new address, q to quit.\n",
		text.WriteCellOpts(cell.FgColor(cell.ColorGray)))
}

// floatField coerces a decoded JSON scalar; daemons disagree on whether
// numbers arrive as numbers or strings.
func floatField(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(typed), "%g", &f); err == nil {
			return f, true
		}
	case int:
		return float64(typed), true
	}
	return 0, false
}
