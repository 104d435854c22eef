// Package dashboard assembles the terminal UI: widget layout, periodic
// refresh tasks, and the peer map animation.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/mum4k/termdash"
	"github.com/mum4k/termdash/container"
	"github.com/mum4k/termdash/container/grid"
	"github.com/mum4k/termdash/keyboard"
	"github.com/mum4k/termdash/linestyle"
	"github.com/mum4k/termdash/terminal/tcell"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgets/text"
	"go.uber.org/zap"

	"beacon/internal/config"
	"beacon/internal/geo"
	"beacon/internal/logtail"
	"beacon/internal/pricing"
	"beacon/internal/rpc"
	"beacon/internal/worldmap"
)

const (
	blinkInterval = 200 * time.Millisecond
	blinkTicks    = 18
	redrawEvery   = 250 * time.Millisecond
	poolWorkers   = 4
)

// Options carries the app's collaborators, built in cmd and injected here.
type Options struct {
	Config config.Config
	Logger *zap.Logger
	Client *rpc.Client
	Tailer *logtail.Tailer
	Geo    *geo.Cache
	Pricer *pricing.Client
	Land   *worldmap.Land
}

// App owns the widgets and the refresh loops feeding them.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	client *rpc.Client
	tailer *logtail.Tailer
	geo    *geo.Cache
	pricer *pricing.Client

	pool pond.Pool

	header     *text.Text
	tipsText   *text.Text
	statsText  *text.Text
	peersText  *text.Text
	walletText *text.Text
	mapWidget  *MapWidget

	// One in-flight run per task kind; a slow cycle is skipped, not queued.
	snapshotBusy atomic.Bool
	geoBusy      atomic.Bool
	priceBusy    atomic.Bool

	mu          sync.Mutex
	snap        rpc.Snapshot
	price       float64
	priceOK     bool
	rate        float64
	rateOK      bool
	nodeVersion string
	lastAddress string
	knownPeers  map[string]struct{}
	countries   map[string]string

	blinkMu   sync.Mutex
	blinkStop chan struct{}
}

// New builds the app and its widgets.
func New(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        opts.Config,
		logger:     logger,
		client:     opts.Client,
		tailer:     opts.Tailer,
		geo:        opts.Geo,
		pricer:     opts.Pricer,
		pool:       pond.NewPool(poolWorkers),
		mapWidget:  NewMapWidget(worldmap.NewRenderer(opts.Land)),
		knownPeers: make(map[string]struct{}),
		countries:  make(map[string]string),
	}

	for _, w := range []struct {
		dst  **text.Text
		opts []text.Option
	}{
		{&a.header, nil},
		{&a.tipsText, nil},
		{&a.statsText, []text.Option{text.WrapAtWords()}},
		{&a.peersText, nil},
		{&a.walletText, []text.Option{text.WrapAtWords()}},
	} {
		widget, err := text.New(w.opts...)
		if err != nil {
			return nil, fmt.Errorf("create text widget: %w", err)
		}
		*w.dst = widget
	}
	return a, nil
}

// Run drives the UI until the context is canceled or the user quits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	terminal, err := tcell.New()
	if err != nil {
		return fmt.Errorf("create terminal: %w", err)
	}
	defer terminal.Close()

	builder := grid.New()
	builder.Add(
		grid.RowHeightFixed(3, grid.Widget(a.header, container.Border(linestyle.Light))),
		grid.RowHeightPerc(40,
			grid.ColWidthPerc(65, grid.Widget(a.mapWidget, container.Border(linestyle.Light), container.BorderTitle("Peer Map"))),
			grid.ColWidthPerc(35, grid.Widget(a.peersText, container.Border(linestyle.Light), container.BorderTitle("Peers"))),
		),
		grid.RowHeightPerc(30, grid.Widget(a.tipsText, container.Border(linestyle.Light), container.BorderTitle("Recent Blocks"))),
		grid.RowHeightPerc(25,
			grid.ColWidthPerc(50, grid.Widget(a.statsText, container.Border(linestyle.Light), container.BorderTitle("Node"))),
			grid.ColWidthPerc(50, grid.Widget(a.walletText, container.Border(linestyle.Light), container.BorderTitle("Wallet"))),
		),
	)
	gridOpts, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build grid: %w", err)
	}

	cont, err := container.New(terminal, gridOpts...)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}

	go a.loop(ctx, a.cfg.Refresh, &a.snapshotBusy, a.refreshSnapshot)
	go a.loop(ctx, a.cfg.GeoRefresh, &a.geoBusy, a.refreshGeo)
	go a.loop(ctx, a.cfg.StatsRefresh, &a.priceBusy, a.refreshPrice)

	keys := func(k *terminalapi.Keyboard) {
		switch k.Key {
		case keyboard.KeyEsc, 'q':
			cancel()
		case 'n':
			a.pool.Submit(func() { a.mintAddress(ctx) })
		}
	}

	defer a.pool.StopAndWait()
	if err := termdash.Run(ctx, terminal, cont,
		termdash.KeyboardSubscriber(keys),
		termdash.RedrawInterval(redrawEvery)); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

// loop runs task immediately and then on every tick, skipping ticks while
// a previous run is still going.
func (a *App) loop(ctx context.Context, interval time.Duration, busy *atomic.Bool, task func(context.Context)) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	run := func() {
		if !busy.CompareAndSwap(false, true) {
			return
		}
		a.pool.Submit(func() {
			defer busy.Store(false)
			task(ctx)
		})
	}
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func (a *App) refreshSnapshot(ctx context.Context) {
	snap := a.client.FetchSnapshot(ctx, a.tailer)
	if snap.BlockchainInfo == nil {
		// RPC is down or warming up; the CLI reports "loading" until the
		// daemon can answer.
		snap.BlockHeight = a.client.BlockCountCLI(ctx)
	}
	rows, latest, tz := a.tailer.TipEntries(a.cfg.TipRows)
	periods, rawStats := a.tailer.LatestBlockStatistics()

	a.mu.Lock()
	needVersion := a.nodeVersion == ""
	a.mu.Unlock()
	var version string
	if needVersion {
		version, _ = a.client.NodeVersion(ctx)
	}

	a.mu.Lock()
	a.snap = snap
	if version != "" {
		a.nodeVersion = version
	}
	a.renderHeaderLocked()
	a.renderPeersLocked()
	a.renderWalletLocked()
	a.renderStatsLocked(periods, rawStats)
	a.mu.Unlock()

	a.renderTips(rows, latest, tz)
}

// refreshGeo resolves peer endpoints to coordinates one at a time so a
// burst of new peers does not hammer the geolocation services.
func (a *App) refreshGeo(ctx context.Context) {
	a.mu.Lock()
	peers := a.snap.Peers
	a.mu.Unlock()

	var (
		markers []worldmap.Point
		hosts   []string
	)
	countries := make(map[string]string)
	for _, peer := range peers {
		host := geo.Host(peer.Addr)
		record, ok := a.geo.Lookup(ctx, host)
		if !ok {
			continue
		}
		markers = append(markers, worldmap.Point{Lat: record.Lat, Lon: record.Lon})
		hosts = append(hosts, host)
		countries[host] = record.Country
	}

	var centerLon *float64
	if _, lon, ok := a.geo.MyLocation(ctx); ok {
		centerLon = &lon
	}

	a.mu.Lock()
	fresh := newPeerIndices(hosts, a.knownPeers)
	a.knownPeers = make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		a.knownPeers[host] = struct{}{}
	}
	a.countries = countries
	a.renderPeersLocked()
	a.mu.Unlock()

	a.mapWidget.SetMarkers(markers, centerLon)
	a.startBlink(fresh)
}

func (a *App) refreshPrice(ctx context.Context) {
	price, priceOK := a.pricer.PriceUSD(ctx)
	rate, rateOK := a.pricer.USDRate(ctx, a.cfg.Currency)

	a.mu.Lock()
	a.price, a.priceOK = price, priceOK
	a.rate, a.rateOK = rate, rateOK
	a.renderHeaderLocked()
	a.renderWalletLocked()
	a.mu.Unlock()
}

func (a *App) mintAddress(ctx context.Context) {
	addr, ok := a.client.GetNewAddress(ctx)
	if !ok {
		a.logger.Warn("getnewaddress failed")
		return
	}
	a.mu.Lock()
	a.lastAddress = addr
	a.renderWalletLocked()
	a.mu.Unlock()
}

// newPeerIndices returns marker indices for hosts not seen on the
// previous geo cycle. Those markers blink.
func newPeerIndices(hosts []string, known map[string]struct{}) map[int]struct{} {
	fresh := make(map[int]struct{})
	for i, host := range hosts {
		if _, ok := known[host]; !ok {
			fresh[i] = struct{}{}
		}
	}
	return fresh
}

// startBlink animates the given markers for a fixed number of phases. A
// new call stops the previous animation instead of stacking on it.
func (a *App) startBlink(indices map[int]struct{}) {
	a.blinkMu.Lock()
	if a.blinkStop != nil {
		close(a.blinkStop)
		a.blinkStop = nil
	}
	if len(indices) == 0 {
		a.blinkMu.Unlock()
		a.mapWidget.SetBlink(nil, true)
		return
	}
	stop := make(chan struct{})
	a.blinkStop = stop
	a.blinkMu.Unlock()

	a.mapWidget.SetBlink(indices, true)
	go func() {
		ticker := time.NewTicker(blinkInterval)
		defer ticker.Stop()
		visible := true
		for tick := 0; tick < blinkTicks; tick++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			visible = !visible
			a.mapWidget.SetBlink(indices, visible)
		}
		a.mapWidget.SetBlink(nil, true)
	}()
}
