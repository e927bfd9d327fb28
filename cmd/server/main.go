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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docuchat/internal/assembler"
	"docuchat/internal/config"
	"docuchat/internal/extract"
	"docuchat/internal/ingest"
	"docuchat/internal/llm"
	"docuchat/internal/query"
	"docuchat/internal/store"
	"docuchat/internal/toolprovider"
	transport "docuchat/internal/transport/http"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	db, err := store.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	st := store.New(db)
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	var tools extract.ToolProvider
	if cfg.Tools.Enabled {
		provider, err := toolprovider.New(ctx, cfg.Tools)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to tool provider")
		}
		defer provider.Close()
		tools = provider
	}

	llmClient, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	dispatcher := extract.NewDispatcher(tools)
	ingestSvc := ingest.NewService(st, dispatcher, cfg.Ingest)
	asm := assembler.New(st, cfg.Context)
	orchestrator := query.NewOrchestrator(asm, llmClient)
	analysisSvc := query.NewAnalysisService(asm, llmClient, st)

	router := transport.NewRouter(cfg, transport.Services{
		Store:        st,
		Ingest:       ingestSvc,
		Orchestrator: orchestrator,
		Analysis:     analysisSvc,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Let in-flight extractions land their terminal status.
	ingestSvc.Wait()
}
