package main

import (
	"context"
	"strings"

	"github.com/AwesomeDJG/UngaaBoard/internal/badges"
	"github.com/AwesomeDJG/UngaaBoard/internal/events"
	"github.com/AwesomeDJG/UngaaBoard/internal/handlers"
	"github.com/AwesomeDJG/UngaaBoard/pkg/config"
	"github.com/AwesomeDJG/UngaaBoard/pkg/database"
	"github.com/AwesomeDJG/UngaaBoard/pkg/kafka"
	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
	"github.com/AwesomeDJG/UngaaBoard/pkg/middleware"
	"github.com/AwesomeDJG/UngaaBoard/pkg/monitoring"
	"github.com/AwesomeDJG/UngaaBoard/pkg/server"
	"github.com/AwesomeDJG/UngaaBoard/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("ensign")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Ensign (Badge Award Engine)")

	dbURL := config.RequireEnv("DATABASE_URL")
	serviceToken := config.GetEnv("SERVICE_TOKEN", "")
	brokersEnv := config.GetEnv("KAFKA_BROKERS", "")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	if config.GetEnvBool("APPLY_SCHEMA", true) {
		if err := database.ApplySchema(db, logger); err != nil {
			logger.WithError(err).Fatal("Failed to apply database schema")
		}
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("ensign", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("ensign", version.Version, version.GitCommit)

	// Create custom badge metrics
	metrics := &handlers.EnsignMetrics{
		Evaluations: metricsCollector.NewCounter("badge_evaluations_total", "Badge evaluation cycles", []string{"trigger_type", "status"}),
		BadgeAwards: metricsCollector.NewCounter("badge_awards_total", "Badge award attempts", []string{"badge_id", "status"}),
	}

	// Create database metrics
	metrics.DBQueries, metrics.DBDuration, metrics.DBConnections = metricsCollector.CreateDatabaseMetrics()

	// Initialize engine and handlers
	engine := badges.NewEngine(db, logger)
	handlers.Init(db, logger, engine, metrics)

	// Add health checks
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": dbURL,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka triggers are optional; without brokers the service runs HTTP-only
	if brokersEnv != "" {
		kafkaMessages, _, _ := metricsCollector.CreateKafkaMetrics()

		brokers := strings.Split(brokersEnv, ",")
		groupID := config.GetEnv("KAFKA_GROUP_ID", "ensign")
		clientID := config.GetEnv("KAFKA_CLIENT_ID", "ensign")

		consumer, err := kafka.NewConsumer(brokers, groupID, clientID, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka consumer")
		}
		defer consumer.Close()

		processor := events.NewProcessor(engine, logger, kafkaMessages)
		processor.Register(consumer)

		healthChecker.AddCheck("kafka", monitoring.KafkaConsumerHealthCheck(consumer.GetClient()))

		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Kafka consumer error")
			}
		}()

		logger.Info("Consuming badge triggers from Kafka")
	}

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "ensign", healthChecker, metricsCollector)

	// API routes
	{
		// Trigger endpoint (service-to-service when a token is configured)
		triggers := router.Group("")
		if serviceToken != "" {
			triggers.Use(middleware.ServiceAuthMiddleware(serviceToken))
		}
		triggers.POST("/triggers", handlers.HandleTrigger)

		// Read API
		router.GET("/badges", handlers.GetBadges)
		router.GET("/users/:id/badges", handlers.GetUserBadges)
		router.GET("/users/:id/stats", handlers.GetUserStats)
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("ensign", "18010")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
