// socialsim server — runs the multi-agent social simulation engine behind an
// HTTP API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/socialsim/pkg/actiongen"
	"github.com/codeready-toolchain/socialsim/pkg/api"
	"github.com/codeready-toolchain/socialsim/pkg/bootstrap"
	"github.com/codeready-toolchain/socialsim/pkg/config"
	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/feed"
	"github.com/codeready-toolchain/socialsim/pkg/llm"
	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/repository"
	"github.com/codeready-toolchain/socialsim/pkg/services"
	"github.com/codeready-toolchain/socialsim/pkg/sim"
	"github.com/codeready-toolchain/socialsim/pkg/version"
)

func main() {
	envPath := flag.String("env", ".env", "Path to .env file")
	seedFixtures := flag.Bool("seed", true, "Seed embedded fixtures into an empty database")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envPath); err != nil {
		logger.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	}

	logger.Info("Starting socialsim", "version", version.Full())

	ctx := context.Background()

	// 1. Configuration.
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Database and migrations.
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("Error closing database client", "error", err)
		}
	}()
	logger.Info("Connected to database", "backend", string(dbClient.Backend()))

	// 3. Repositories.
	db := dbClient.DB()
	runsRepo := repository.NewRuns(db)
	agentsRepo := repository.NewAgents(db)
	postsRepo := repository.NewPosts(db)
	feedsRepo := repository.NewFeeds(db)
	actionsRepo := repository.NewActions(db)
	metricsRepo := repository.NewMetrics(db)
	seedMetaRepo := repository.NewSeedMeta(db)

	// 4. Fixture seeding.
	if *seedFixtures {
		seeder := bootstrap.NewSeeder(agentsRepo, postsRepo, seedMetaRepo, logger)
		if err := seeder.Seed(ctx); err != nil {
			logger.Error("Failed to seed fixtures", "error", err)
			os.Exit(1)
		}
	}

	// 5. Generators. LLM-backed generators are wired only when an API key is
	// present.
	generators := actiongen.NewRegistry()
	for _, action := range models.AllActionTypes {
		generators.Register(action, "deterministic", actiongen.NewDeterministic(action))
		generators.Register(action, "random_simple", actiongen.NewRandomSimple(action))
	}
	if cfg.LLM.Enabled() {
		completer, err := llm.NewAnthropicClientFromAPIKey(cfg.LLM.APIKey, cfg.LLM.Model, logger)
		if err != nil {
			logger.Error("Failed to initialize LLM client", "error", err)
			os.Exit(1)
		}
		for _, action := range models.AllActionTypes {
			generators.Register(action, "llm", actiongen.NewLLMGenerator(action, completer, logger))
		}
		logger.Info("LLM generators enabled", "model", cfg.LLM.Model)
	} else {
		logger.Info("No LLM API key configured, LLM generators disabled")
	}

	// 6. Engine wiring.
	feedPipeline := feed.NewPipeline(postsRepo, feedsRepo, feed.NewRegistry(), logger)
	actionPipeline := actiongen.NewPipeline(
		generators, cfg.AlgorithmSelection(nil), cfg.Generator.MaxActions,
		cfg.GeneratorSettings(), logger)
	persistence := sim.NewPersistence(
		database.NewTxProvider(db), runsRepo, metricsRepo, actionsRepo, logger)
	lifecycle := sim.NewLifecycle(runsRepo, logger)
	turnOrchestrator := sim.NewTurnOrchestrator(runsRepo, feedPipeline, actionPipeline, persistence, logger)
	runOrchestrator := sim.NewRunOrchestrator(
		runsRepo, agentsRepo, sim.NewStoredAgentFactory(agentsRepo),
		turnOrchestrator, lifecycle, persistence, logger)

	simulationService := services.NewSimulationService(runOrchestrator, logger)
	queryService := services.NewQueryService(
		runsRepo, feedsRepo, postsRepo, actionsRepo, metricsRepo, logger)

	// 7. HTTP server with graceful shutdown.
	server := api.NewServer(queryService, simulationService, agentsRepo, dbClient, cfg.Server.Addr(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
