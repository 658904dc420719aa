package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bidbot-ai/bidbot/internal/config"
	"github.com/bidbot-ai/bidbot/internal/core"
	db "github.com/bidbot-ai/bidbot/internal/core/database"
	"github.com/bidbot-ai/bidbot/internal/core/extract"
	"github.com/bidbot-ai/bidbot/internal/core/llm"
	"github.com/bidbot-ai/bidbot/internal/core/objectstore"
	"github.com/bidbot-ai/bidbot/internal/core/payments"
	"github.com/bidbot-ai/bidbot/internal/core/sam"
	"github.com/bidbot-ai/bidbot/internal/core/webscrape"
	"github.com/bidbot-ai/bidbot/internal/services"
)

type App struct {
	DBClient core.DbClient
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	var llmProvider core.LLMProvider
	var embedder core.EmbeddingProvider
	if cfg.AIAPIKey != "" {
		geminiLLM, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the llm provider, %w", err)
		}
		geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		llmProvider = geminiLLM
		embedder = geminiEmbedder
	} else {
		log.Println("GEMINI_API_KEY not set; serving canned answers.")
		llmProvider = llm.NewFallbackLLM()
	}

	var storage core.ObjectClient
	if cfg.ArchiveEnabled() {
		storage, err = objectstore.NewS3Client(appCtx, cfg)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the object client, %w", err)
		}
		log.Println("Object client initialized and ready.")
	}

	if cfg.StripeSecretKey != "" {
		payments.InitStripe(cfg.StripeSecretKey)
	}
	stripeClient := payments.NewClient(cfg.StripeWebhookSecret)

	samClient := sam.NewClient(cfg.SamAPIKey, cfg.SamCacheTTL)
	scraper := webscrape.NewScraper()
	extractor := extract.NewExtractor()

	aggregator := services.NewAggregatorService(samClient, scraper)
	answerer := services.NewAnswerService(llmProvider, embedder, dbClient)
	queries := services.NewQueryService(dbClient, aggregator, answerer, cfg.FreeQueryLimit, cfg.QueryResetWindow)
	documents := services.NewDocumentService(dbClient, extractor, embedder, storage, cfg.BucketName)
	paymentSvc := services.NewPaymentService(dbClient, stripeClient)

	server := NewServer(context.Background(), cfg, dbClient, samClient, queries, documents, paymentSvc)

	return &App{DBClient: dbClient, Server: server}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
