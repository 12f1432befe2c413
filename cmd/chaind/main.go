// chaind is the command-line entry point for the chain manager: it wires
// together the store, the chain actor, and the sync/import/export
// collaborators, the way cmd/geth wires together a full node's pieces.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/chainforge/chainmgr/chain"
	"github.com/chainforge/chainmgr/chainstore"
	"github.com/chainforge/chainmgr/config"
	"github.com/chainforge/chainmgr/ethdb/leveldb"
	"github.com/chainforge/chainmgr/event"
	"github.com/chainforge/chainmgr/eventbus"
	"github.com/chainforge/chainmgr/exporter"
	"github.com/chainforge/chainmgr/importer"
	"github.com/chainforge/chainmgr/log"
	"github.com/chainforge/chainmgr/metrics"
	"github.com/chainforge/chainmgr/synccoord"
	"github.com/chainforge/chainmgr/types"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a chaind TOML config file",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "address to serve /metrics on (empty disables it)",
		Value: ":6060",
	}
	archiveFlag = &cli.StringFlag{
		Name:  "archive",
		Usage: "path to a leveldb archive database used by export/import",
		Value: "chainarchive",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log.format",
		Usage: "log output format: terminal, json, logfmt",
		Value: "terminal",
	}
)

// setupLogging installs the default logger according to the log.format flag.
// terminal is color-coded and meant for an interactive shell; json and
// logfmt are meant for log collectors.
func setupLogging(ctx *cli.Context) {
	switch ctx.String(logFormatFlag.Name) {
	case "json":
		log.SetDefault(log.NewLogger(log.JSONHandler(os.Stderr)))
	case "logfmt":
		log.SetDefault(log.NewLogger(log.LogfmtHandler(os.Stderr)))
	default:
		log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr, true)))
	}
}

func main() {
	app := &cli.App{
		Name:  "chaind",
		Usage: "run and administer a chain manager node",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			runCommand,
			exportCommand,
			importCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "start the chain manager and block until interrupted",
	Flags: []cli.Flag{metricsAddrFlag, logFormatFlag},
	Action: func(ctx *cli.Context) error {
		setupLogging(ctx)

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		store, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		coll := metrics.NewChainCollector()
		if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
			serveMetrics(addr)
		}

		mgr := buildManager(store, cfg, coll)
		if err := mgr.Start(genesisBlock()); err != nil {
			return fmt.Errorf("chaind: starting manager: %w", err)
		}
		defer mgr.Close()

		peak, err := mgr.PeakBlock(context.Background())
		if err != nil {
			return err
		}
		log.Info("chain manager started", "peak", peak.Hash(), "number", peak.Number())

		watch := watchEvents(mgr.Bus())
		defer watch.Unsubscribe()

		select {}
	},
}

// watchEvents subscribes to every topic on bus and logs transitions as they
// arrive, for as long as the process runs. The two subscriptions are joined
// so a single Unsubscribe call at shutdown tears both down.
func watchEvents(bus *eventbus.Bus) event.Subscription {
	peakCh := make(chan eventbus.PeakEvent, 16)
	syncCh := make(chan eventbus.SyncingEvent, 16)
	peakSub := bus.SubscribePeak(peakCh)
	syncSub := bus.SubscribeSyncing(syncCh)

	go func() {
		for {
			select {
			case ev, ok := <-peakCh:
				if !ok {
					return
				}
				log.Info("peak changed", "hash", ev.Block.Hash(), "number", ev.Block.Number())
			case ev, ok := <-syncCh:
				if !ok {
					return
				}
				log.Info("sync state changed", "active", ev.Active)
			}
		}
	}()
	return event.JoinSubscriptions(peakSub, syncSub)
}

var exportCommand = &cli.Command{
	Name:      "export",
	Usage:     "dump the main chain into the archive store",
	ArgsUsage: "",
	Flags:     []cli.Flag{archiveFlag, logFormatFlag},
	Action: func(ctx *cli.Context) error {
		setupLogging(ctx)

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		store, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		archiveDB, err := leveldb.New(ctx.String(archiveFlag.Name), cfg.Store.Cache, cfg.Store.Handles, "chainarchive/", false)
		if err != nil {
			return err
		}

		archive := exporter.NewArchive(archiveDB)
		defer archive.Close()

		n, err := exporter.New(store, archive).Export()
		if err != nil {
			return err
		}
		log.Info("export complete", "blocks", n)
		return nil
	},
}

var importCommand = &cli.Command{
	Name:      "import",
	Usage:     "replay the archive store's blocks through the chain manager",
	ArgsUsage: "",
	Flags:     []cli.Flag{archiveFlag, logFormatFlag},
	Action: func(ctx *cli.Context) error {
		setupLogging(ctx)

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		store, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		archiveDB, err := leveldb.New(ctx.String(archiveFlag.Name), cfg.Store.Cache, cfg.Store.Handles, "chainarchive/", true)
		if err != nil {
			return err
		}

		archive := exporter.NewArchive(archiveDB)
		defer archive.Close()

		blocks, err := archive.ReadAll()
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			log.Warn("archive is empty, nothing to import")
			return nil
		}

		coll := metrics.NewChainCollector()
		mgr := buildManager(store, cfg, coll)
		if err := mgr.Start(blocks[0]); err != nil {
			return fmt.Errorf("chaind: starting manager: %w", err)
		}
		defer mgr.Close()

		bus := eventbus.New()
		coord := synccoord.New(bus, synccoord.WithThrottleDelay(time.Duration(cfg.ImportThrottleSecs)*time.Second))
		result, err := importer.New(mgr, coord).ImportBlocks(context.Background(), importer.NewSliceSource(blocks))
		if err != nil {
			return err
		}
		log.Info("import complete", "imported", result.Imported, "final", finalHash(result.Final))
		return nil
	},
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openStore(sc config.StoreConfig) (chainstore.Store, error) {
	switch sc.Kind {
	case config.StoreLevelDB:
		return chainstore.NewLevelDB(sc.Path, sc.Cache, sc.Handles)
	default:
		return chainstore.NewMemory(), nil
	}
}

func buildManager(store chainstore.Store, cfg config.Config, coll *metrics.Chain) *chain.Manager {
	bus := eventbus.New()
	return chain.NewManager(
		store,
		chain.NoopValidator{},
		chain.NoopRelaySink{},
		chain.NoopMempoolSink{},
		chain.NoopMinerSignal{},
		chain.NoopTicketNotifier{},
		bus,
		types.ZeroHash,
		chain.WithWindow(cfg.Window),
		chain.WithMetrics(coll),
		chain.WithCallTimeout(time.Duration(cfg.ActorCallTimeoutSecs)*time.Second),
	)
}

// genesisBlock returns the fixed genesis this binary seeds an empty store
// with. A real deployment would load this from a genesis file the way
// cmd/geth loads a chain spec; chaind has none to load yet.
func genesisBlock() *types.Block {
	return types.NewBlock(types.Header{
		ParentHash:      types.ZeroHash,
		Number:          0,
		TotalDifficulty: 1,
		HasState:        true,
	}, nil, nil)
}

func finalHash(b *types.Block) types.Hash {
	if b == nil {
		return types.ZeroHash
	}
	return b.Hash()
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
}
