package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-swap/orchestrator/chain"
	"github.com/prism-swap/orchestrator/config"
	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/orchestrator"
	"github.com/prism-swap/orchestrator/rpc"
	"github.com/prism-swap/orchestrator/settle"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the rpc package
	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "config file for the service; env-only mode when empty")
	flag.Parse()

	log.Info().Str("config", *configPath).Msg("Starting orchestrated")

	var cfgArg *string
	if *configPath != "" {
		cfgArg = configPath
	}
	cfg, err := config.LoadServiceConfig(cfgArg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Known-token table is optional; without it the registry relies on
	// ft_metadata alone.
	var known []models.TokenMetadata
	if cfg.TokensPath != "" {
		known, err = config.LoadTokensFile(cfg.TokensPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load tokens file")
		}
		log.Info().Int("count", len(known)).Msg("Loaded known tokens")
	}

	client := newChainClient(cfg)
	reader := chain.NewReader(client)
	defer reader.Close()

	orch, err := orchestrator.New(reader, orchestrator.Options{
		AmmID:  cfg.AmmID,
		WrapID: cfg.WrapID,
		Settle: settle.Config{
			PollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
			PollAttempts: cfg.PollAttempts,
		},
		RefetchDelay: time.Duration(cfg.RefetchDelayMs) * time.Millisecond,
		KnownTokens:  known,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire orchestrator")
	}

	serverConfig := buildServerConfig(cfg)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := rpc.NewServer(ctx, serverConfig, orch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// newChainClient wires the ledger client, with failover when backup
// nodes are configured.
func newChainClient(cfg *config.ServiceConfig) *chain.Client {
	primary := cfg.NodeURLs[0]
	backups := cfg.NodeURLs[1:]
	if len(backups) == 0 {
		log.Info().Str("node", primary).Msg("Chain client initialized")
		return chain.NewClient(primary)
	}
	log.Info().
		Str("primary", primary).
		Int("backups", len(backups)).
		Msg("Chain client initialized with failover")
	return chain.NewClientWithFailover(primary, backups, chain.DefaultFailoverConfig())
}

// buildServerConfig converts the loaded ServiceConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.ServiceConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.UsePrometheus,
	}

	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	// Set OpenTelemetry configuration if any telemetry is enabled
	if cfg.EnableTracing || cfg.EnableMetrics || cfg.UsePrometheus {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:     defaultString(cfg.ServiceName, "prism-swap-orchestrator"),
			ServiceVersion:  defaultString(cfg.ServiceVersion, "1.0.0"),
			Environment:     defaultString(cfg.Environment, "development"),
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			EnableMetrics:   cfg.EnableMetrics,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}

	return serverConfig
}

// defaultString returns the default value if s is empty
func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
