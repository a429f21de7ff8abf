// Command auditor runs the website audit HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/ai"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/analyzer"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/api"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/clock/system"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/config"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/fetch"
	iduuid "github.com/HasnainBinMunawar/website-auditor-agent/internal/id/uuid"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/logging"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/metrics"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/policy/ratelimit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/safeurl"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/store"
	filestore "github.com/HasnainBinMunawar/website-auditor-agent/internal/store/file"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/store/memory"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clk := system.New()
	idGen := iduuid.New()

	st, err := buildStore(ctx, cfg, idGen)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	resolver := safeurl.New(safeurl.Config{FailClosed: cfg.Safety.FailClosed}, logger.Named("safeurl"))

	transport := fetch.NewTransport()
	fetcher := fetch.New(fetch.Config{
		Timeout:      cfg.FetchTimeout(),
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Transport:    transport,
	})

	var sweep *analyzer.LinkSweep
	if cfg.Links.MaxLinks > 0 {
		sweep = analyzer.NewLinkSweep(analyzer.SweepConfig{
			MaxLinks:    cfg.Links.MaxLinks,
			Parallelism: cfg.Links.Parallelism,
			Timeout:     time.Duration(cfg.Links.TimeoutSeconds) * time.Second,
			UserAgent:   cfg.Fetch.UserAgent,
			Transport:   transport,
		}, logger.Named("links"))
	}

	pagespeed := analyzer.NewPageSpeedClient(analyzer.PageSpeedConfig{
		APIKey:   cfg.PageSpeed.APIKey,
		Endpoint: cfg.PageSpeed.Endpoint,
		Timeout:  time.Duration(cfg.PageSpeed.TimeoutSeconds) * time.Second,
	}, nil)

	orch := analyzer.NewOrchestrator(
		analyzer.NewContentAnalyzer(fetcher, sweep, logger.Named("content")),
		analyzer.NewPerformanceAnalyzer(pagespeed, logger.Named("performance")),
		clk,
		logger.Named("orchestrator"),
	)

	providers, err := buildProviders(cfg)
	if err != nil {
		return fmt.Errorf("build ai providers: %w", err)
	}
	chain := ai.NewChain(providers, cfg.AITimeout(), logger.Named("ai"))
	logger.Info("ai providers configured", zap.Strings("providers", chain.Providers()))

	srv := api.NewServer(
		resolver, orch, chain, st,
		ratelimit.New(ratelimit.Config{
			Window: time.Duration(cfg.RateLimit.Audit.WindowSeconds) * time.Second,
			Max:    cfg.RateLimit.Audit.Max,
		}, clk),
		ratelimit.New(ratelimit.Config{
			Window: time.Duration(cfg.RateLimit.Question.WindowSeconds) * time.Second,
			Max:    cfg.RateLimit.Question.Max,
		}, clk),
		logger.Named("api"),
	)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config, idGen audit.IDGenerator) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(idGen), nil
	case "postgres":
		return postgres.New(ctx, postgres.Config{DSN: cfg.Store.DSN, Table: "audits"}, idGen)
	default:
		return filestore.New(filestore.Config{Dir: cfg.Store.Dir}, idGen)
	}
}

// buildProviders returns the chain in priority order. Providers without a
// credential come back nil and are skipped by the chain.
func buildProviders(cfg config.Config) ([]ai.Provider, error) {
	openaiP, err := ai.NewOpenAI(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model)
	if err != nil {
		return nil, err
	}
	anthropicP, err := ai.NewAnthropic(cfg.AI.Anthropic.APIKey, cfg.AI.Anthropic.Model)
	if err != nil {
		return nil, err
	}
	ollamaP, err := ai.NewOllama(cfg.AI.Ollama.ServerURL, cfg.AI.Ollama.Model)
	if err != nil {
		return nil, err
	}
	return []ai.Provider{openaiP, anthropicP, ollamaP}, nil
}
