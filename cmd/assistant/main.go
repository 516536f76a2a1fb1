package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"finassist/internal/chat"
	"finassist/internal/config"
	"finassist/internal/embedding"
	"finassist/internal/ingest"
	"finassist/internal/llm"
	"finassist/internal/recommend"
	"finassist/internal/vectorstore"
	"finassist/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	datasetPath := flag.String("dataset", "", "optional dataset JSON to index at startup")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	// Credentials may live in a .env file next to the binary.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("FinancialAssistant", "")
	appLogger.Info("Starting financial assistant service...")

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding model: %v", err)
	}

	model, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "milvus":
		store, err = vectorstore.NewMilvusStore(context.Background(),
			cfg.VectorStore.Milvus.Address, cfg.VectorStore.Collection,
			cfg.Embedding.Dimension, logger.New("FinancialAssistant", "milvus"))
	default:
		store, err = vectorstore.OpenOrCreate(cfg.VectorStore.Local.Path,
			cfg.VectorStore.Collection, logger.New("FinancialAssistant", "localstore"))
	}
	if err != nil {
		log.Fatalf("Failed to open vector store: %v", err)
	}

	pipeline := ingest.NewPipeline(embedder, store, cfg.Embedding.MaxConcurrency,
		logger.New("FinancialAssistant", "ingest"))
	recommender := recommend.NewEngine(embedder, store, logger.New("FinancialAssistant", "recommend"))
	session := chat.NewSession(embedder, store, model, recommender, cfg.Chat.TopK,
		logger.New("FinancialAssistant", "chat"))

	if *datasetPath != "" {
		dataset, err := ingest.LoadDatasetFile(*datasetPath)
		if err != nil {
			log.Fatalf("Failed to load dataset: %v", err)
		}
		if _, err := pipeline.Run(context.Background(), dataset); err != nil {
			log.Fatalf("Failed to index dataset: %v", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	httpHandler := NewHttpHandler(pipeline, session, recommender)

	api := router.Group("/api/v1")
	{
		api.POST("/ingest", httpHandler.ingest)
		api.POST("/ingest/synthetic", httpHandler.ingestSynthetic)
		api.POST("/chat", httpHandler.chat)
		api.POST("/chat/reset", httpHandler.resetChat)
		api.GET("/chat/history", httpHandler.history)
		api.GET("/recommendations/:user_id", httpHandler.recommendations)
	}

	srv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	if err := srv.Shutdown(context.Background()); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
	appLogger.Info("Server gracefully stopped")
}
