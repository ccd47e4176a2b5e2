package main

import (
	"flag"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campchain/config"
	"campchain/core/state"
	"campchain/native/campaign"
	"campchain/native/token"
	"campchain/observability/logging"
	"campchain/rpc"
	"campchain/storage"
)

func main() {
	configFile := flag.String("config", "./campd.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CAMPCHAIN_ENV"))
	logger := logging.Setup("campd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.String("dataDir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	mgr := state.NewManager(db)
	tok, err := token.NewLedger(mgr, cfg.TokenSymbol)
	if err != nil {
		logger.Error("failed to initialise reward token", slog.Any("error", err))
		os.Exit(1)
	}

	if err := seedGenesisBalances(mgr, tok, cfg.GenesisBalances, logger); err != nil {
		logger.Error("failed to seed genesis balances", slog.Any("error", err))
		os.Exit(1)
	}

	admin, err := cfg.AdminAddress()
	if err != nil {
		logger.Error("invalid directory admin", slog.Any("error", err))
		os.Exit(1)
	}
	taxRecipient, err := cfg.TaxRecipientAddress()
	if err != nil {
		logger.Error("invalid default tax recipient", slog.Any("error", err))
		os.Exit(1)
	}

	engine := campaign.NewEngine()
	engine.SetState(mgr)
	engine.SetAsset(tok)
	registry := campaign.NewRegistry(mgr)
	dir, err := campaign.NewDirectory(mgr, admin, campaign.Defaults{
		Token:        tok.Symbol(),
		TaxRecipient: taxRecipient,
		TaxRateBps:   cfg.DefaultTaxRateBps,
	})
	if err != nil {
		logger.Error("failed to initialise campaign directory", slog.Any("error", err))
		os.Exit(1)
	}

	go serveMetrics(cfg.MetricsAddress, logger)

	server := rpc.NewServer(dir, registry, engine, tok, cfg.RPCAuthToken)
	logger.Info("campd ready",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("metrics", cfg.MetricsAddress),
		slog.String("token", tok.Symbol()),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// genesisSeededKey marks a data directory whose genesis balances were already
// minted, so restarts do not inflate supply.
var genesisSeededKey = []byte("genesis/seeded")

// seedGenesisBalances mints configured starting balances exactly once per data
// directory.
func seedGenesisBalances(mgr *state.Manager, tok *token.Ledger, balances []config.GenesisBalance, logger *slog.Logger) error {
	var seeded bool
	if ok, err := mgr.KVGet(genesisSeededKey, &seeded); err != nil {
		return err
	} else if ok && seeded {
		logger.Info("genesis balances already seeded, skipping")
		return nil
	}
	for _, balance := range balances {
		addr, err := config.ParseAddress(balance.Address)
		if err != nil {
			return err
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(balance.Amount), 10)
		if !ok {
			logger.Warn("skipping genesis balance with invalid amount",
				slog.String("address", balance.Address),
				slog.String("amount", balance.Amount),
			)
			continue
		}
		if err := tok.Mint(addr, amount); err != nil {
			return err
		}
	}
	return mgr.KVPut(genesisSeededKey, true)
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server exited", slog.Any("error", err))
	}
}
