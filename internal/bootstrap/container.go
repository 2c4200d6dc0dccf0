package bootstrap

import (
	"log"

	"sales-copilot-be/internal/config"
	"sales-copilot-be/internal/controller"
	"sales-copilot-be/internal/pkg/logger"
	"sales-copilot-be/internal/pkg/sessionlock"
	"sales-copilot-be/internal/repository/unitofwork"
	"sales-copilot-be/internal/service"
	"sales-copilot-be/pkg/embedding"
	"sales-copilot-be/pkg/llm/factory"
	"sales-copilot-be/pkg/product"

	pkgNats "sales-copilot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

const callEventsTopic = "call-events"

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	CopilotController controller.ICopilotController
	ManualController  controller.IManualController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS is optional: without it, call events are still logged by the
	// consumer but not forwarded downstream.
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewOpenAIProvider(
			cfg.Ai.OpenAIBaseURL,
			cfg.Keys.OpenAI,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.EmbeddingModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OpenAIBaseURL,
		cfg.Keys.OpenAI,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	productLoader := product.NewLoader(cfg.App.ProductDataDir)

	// 4. Services
	// Two independent keyed locks: one serializes transcript/summary
	// writes, the other guards at most one suggestion cycle per session.
	sessionLocks := sessionlock.NewKeyed()
	cycleGuard := sessionlock.NewKeyed()

	publisherService := service.NewPublisherService(callEventsTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, callEventsTopic, natsPub, sysLogger)

	sessionService := service.NewSessionService(
		uowFactory,
		llmProvider,
		productLoader,
		publisherService,
		sessionLocks,
		sysLogger,
	)
	copilotService := service.NewCopilotService(
		uowFactory,
		embeddingProvider,
		llmProvider,
		productLoader,
		publisherService,
		cycleGuard,
		cfg.Ai,
		sysLogger,
	)
	manualService := service.NewManualService(
		uowFactory,
		embeddingProvider,
		publisherService,
		service.RetrievalOptions{
			Threshold: cfg.Ai.RetrievalThreshold,
			TopK:      cfg.Ai.RetrievalTopK,
		},
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		SessionController: controller.NewSessionController(sessionService),
		CopilotController: controller.NewCopilotController(copilotService),
		ManualController:  controller.NewManualController(manualService),

		ConsumerService: consumerService,
	}
}
