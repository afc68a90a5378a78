package bootstrap

import (
	"context"
	"log"

	"rfp-answer-engine/internal/config"
	"rfp-answer-engine/internal/controller"
	"rfp-answer-engine/internal/handler"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/repository/contract"
	"rfp-answer-engine/internal/repository/implementation"
	"rfp-answer-engine/internal/repository/memory"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/internal/service"
	"rfp-answer-engine/internal/websocket"
	"rfp-answer-engine/pkg/answer"
	"rfp-answer-engine/pkg/clustering"
	"rfp-answer-engine/pkg/embedding"
	"rfp-answer-engine/pkg/llm"
	"rfp-answer-engine/pkg/llm/factory"
	pktNats "rfp-answer-engine/pkg/nats"
	"rfp-answer-engine/pkg/pipeline"
	"rfp-answer-engine/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ClusterController   controller.IClusterController
	PipelineController  controller.IPipelineController
	SettingsController  controller.ISettingsController
	QuestionController  controller.IQuestionController
	KnowledgeController controller.IKnowledgeController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger
	close  []func()
}

// Close releases the connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.close) - 1; i >= 0; i-- {
		c.close[i]()
	}
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLogger := logger.NewIsolatedLogger(cfg.App.PipelineLogPath)
	container := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	container.close = append(container.close, func() { _ = pubSub.Close() })

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	}
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, cfg.Ai.EmbeddingCacheTTL)

	llmBaseURL := cfg.Ai.LLMBaseURL
	if cfg.Ai.LLMProvider == "ollama" && llmBaseURL == "" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	baseLLM, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL, cfg.Keys.LLM, cfg.Ai.CallTimeout)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	llmProvider := llm.NewRateLimitedProvider(baseLLM, cfg.Ai.RequestsPerSecond, cfg.Pipeline.Concurrency)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	} else {
		container.close = append(container.close, natsPub.Close)
	}

	var rdb *redis.Client
	var locks contract.RunLockRepository
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		client := redis.NewClient(opt)
		if _, err := client.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-process locks", err)
			_ = client.Close()
		} else {
			rdb = client
			locks = implementation.NewRunLockRepository(rdb)
			container.close = append(container.close, func() { _ = rdb.Close() })
		}
	}
	if locks == nil {
		locks = memory.NewRunLockRepository()
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)

	// 5. Domain
	defaults := clustering.Thresholds{
		Cluster: cfg.Clustering.ClusterThreshold,
		Similar: cfg.Clustering.SimilarThreshold,
	}
	if err := defaults.Validate(); err != nil {
		log.Printf("[WARN] %v. Using built-in thresholds", err)
		defaults = clustering.DefaultThresholds()
	}
	engine := clustering.NewEngine(clustering.Strategy(cfg.Clustering.Strategy))

	index := vectorindex.NewPgIndex(implementation.NewKnowledgeChunkRepository(db))
	generator := answer.NewGenerator(embeddingProvider, index, llmProvider, answer.Config{
		TopK:            cfg.Pipeline.TopK,
		MaxContextChars: cfg.Pipeline.MaxContextChars,
		MaxTokens:       cfg.Ai.MaxTokens,
		Temperature:     cfg.Ai.Temperature,
		MinRelevance:    cfg.Pipeline.MinRelevance,
		CallTimeout:     cfg.Ai.CallTimeout,
	}, pipelineLogger)

	settingsService := service.NewSettingsService(uowFactory, defaults)
	clusterService := service.NewClusterService(uowFactory, engine, embeddingProvider, settingsService, locks, sysLogger)
	questionService := service.NewQuestionService(uowFactory, embeddingProvider, sysLogger)
	knowledgeService := service.NewKnowledgeService(uowFactory, embeddingProvider, sysLogger)

	notifiers := []pipeline.Notifier{service.NewProgressNotifier(wsHub, pipelineLogger)}
	if natsPub != nil {
		notifiers = append(notifiers, service.NewTerminalEventNotifier(natsPub, pipelineLogger))
	}

	publisherService := service.NewPublisherService(cfg.Pipeline.TriggerTopic, pubSub)
	pipelineService := service.NewPipelineService(
		uowFactory,
		clusterService,
		generator,
		publisherService,
		locks,
		notifiers,
		service.PipelineServiceConfig{
			Orchestrator: pipeline.Config{
				Concurrency: cfg.Pipeline.Concurrency,
				RunTimeout:  cfg.Pipeline.RunTimeout,
				UnitTimeout: cfg.Pipeline.UnitTimeout,
			},
			LockTTL: cfg.Pipeline.LockTTL,
		},
		pipelineLogger,
	)
	consumerService := service.NewConsumerService(pubSub, cfg.Pipeline.TriggerTopic, pipelineService, pipelineLogger)

	// 6. Controllers
	container.ClusterController = controller.NewClusterController(clusterService)
	container.PipelineController = controller.NewPipelineController(pipelineService)
	container.SettingsController = controller.NewSettingsController(settingsService)
	container.QuestionController = controller.NewQuestionController(questionService)
	container.KnowledgeController = controller.NewKnowledgeController(knowledgeService)
	container.ProgressHandler = handler.NewProgressHandler(questionService, wsHub, cfg.Keys.JWTSecret, sysLogger)
	container.WebSocketHub = wsHub
	container.ConsumerService = consumerService

	return container
}
