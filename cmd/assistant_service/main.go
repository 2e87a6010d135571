package main

import (
	"Jarvis_Memory/internal/api"
	calendarprovider "Jarvis_Memory/internal/calendar/provider"
	calendarservice "Jarvis_Memory/internal/calendar/service"
	calendarstore "Jarvis_Memory/internal/calendar/store"
	"Jarvis_Memory/internal/config"
	"Jarvis_Memory/internal/database/kafka"
	"Jarvis_Memory/internal/database/milvus"
	"Jarvis_Memory/internal/database/mysql"
	"Jarvis_Memory/internal/database/redis"
	"Jarvis_Memory/internal/embedding"
	"Jarvis_Memory/internal/memory/consumer"
	memoryservice "Jarvis_Memory/internal/memory/service"
	memorystore "Jarvis_Memory/internal/memory/store"
	"Jarvis_Memory/internal/vectorstore"
	"Jarvis_Memory/pkg/logger"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("assistant_service", "", "")

	// Initialize database clients
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mysqlClient, err := mysql.Connect(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mysqlClient.Close()

	milvusClient, err := milvus.Connect(ctx, &cfg.Databases.Milvus)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer milvusClient.Close()

	redisClient, err := redis.Connect(ctx, &cfg.Databases.Redis)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer redisClient.Close()

	kafkaClient, err := kafka.Connect(&cfg.Databases.Kafka)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer kafkaClient.Close()

	// Initialize embedding client and vector index
	embedder, err := embedding.NewEmdModel(&cfg.Embedding)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	index, err := vectorstore.NewMilvusIndex(milvusClient, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize memory service
	memoryService := memoryservice.NewMemoryService(
		memorystore.NewMySQLStore(mysqlClient.DB),
		index,
		embedder,
		cfg.Databases.Milvus.MemoryCollection,
		cfg.Embedding.Dimension,
		appLogger,
	)
	if err := memoryService.EnsureReady(ctx); err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize calendar service
	calendarService := calendarservice.NewCalendarService(
		calendarstore.NewMySQLStore(mysqlClient.DB),
		calendarprovider.NewGoogleProvider(&cfg.Calendar),
		calendarprovider.NewRedisTokenSupplier(redisClient),
		index,
		embedder,
		cfg.Databases.Milvus.CalendarCollection,
		cfg.Embedding.Dimension,
		appLogger,
	)
	if err := calendarService.EnsureReady(ctx); err != nil {
		appLogger.Fatal(err.Error())
	}

	// Start the Kafka ingestion consumer and publisher
	kafkaConsumer := consumer.NewKafkaConsumer(kafkaClient, memoryService, appLogger)
	kafkaConsumer.Start(ctx)

	ingestPublisher := kafka.NewIngestPublisher(kafkaClient)
	defer ingestPublisher.Close()

	// Start the HTTP server. The error is surfaced to main instead of
	// exiting inside the goroutine, so the deferred Close calls still run.
	router := api.SetupRouter(api.NewHandler(memoryService, calendarService, ingestPublisher))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- router.Run(cfg.App.ListenAddr)
	}()

	appLogger.Info("Assistant service started")

	// Wait for a termination signal or a server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-serverErr:
		if err != nil {
			appLogger.Error(err.Error())
		}
	}
	cancel()

	appLogger.Info("Assistant service stopped")
}
