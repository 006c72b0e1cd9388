package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/config"
	"FarmMonitorAPI/internal/database"
	"FarmMonitorAPI/internal/handler"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/middleware"
	"FarmMonitorAPI/internal/mqtt"
	"FarmMonitorAPI/internal/notify"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/server"
	"FarmMonitorAPI/internal/service"
	"FarmMonitorAPI/internal/service/utils"
	"FarmMonitorAPI/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Farm Monitor API Server")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Threshold and rule definitions
	defs, err := config.LoadDefinitions(cfg.Alerting.DefinitionsFile)
	if err != nil {
		log.Fatal("Failed to load alerting definitions: %v", err)
	}
	log.Info("Loaded %d thresholds and %d rules (tolerance policy: %s)",
		len(defs.Thresholds), len(defs.Rules), cfg.Alerting.TolerancePolicy)

	// 4. Alert journal (optional)
	var dbHealth handler.HealthChecker
	var journal *service.JournalWriter
	var journalHandler *handler.JournalHandler
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate database: %v", err)
		}
		log.Info("Database connected, alert journal enabled")

		dbHealth = db
		pgJournal := repository.NewPostgresAlertJournal(db.DB)
		journal = service.NewJournalWriter(pgJournal, cfg.Database.JournalQueue, log)
		journalHandler = handler.NewJournalHandler(pgJournal, log)
		journal.Start(ctx)
	}

	// 5. MQTT Client (optional)
	var mqttClient *mqtt.Client
	var mqttHealth handler.HealthChecker
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(mqtt.ClientConfig{MQTT: &cfg.MQTT, Logger: log})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}
		mqttHealth = mqttClient
	}

	// 6. Live hub and notification delivery
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	settings := notify.NewSettings(cfg.NotificationDefaults())
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		QueueSize: cfg.Notification.QueueSize,
		Workers:   cfg.Notification.Workers,
		Timeout:   cfg.Notification.DeliveryTimeout,
	}, settings, log)

	dispatcher.Register(notify.NewInAppSender(hub))
	if cfg.Notification.SMTPHost != "" {
		dispatcher.Register(notify.NewEmailSender(notify.EmailConfig{
			SMTPHost: cfg.Notification.SMTPHost,
			SMTPPort: cfg.Notification.SMTPPort,
			Username: cfg.Notification.SMTPUsername,
			Password: cfg.Notification.SMTPPassword,
			From:     cfg.Notification.SMTPFrom,
		}))
	}
	if cfg.Notification.SMSGatewayURL != "" {
		dispatcher.Register(notify.NewSMSSender(cfg.Notification.SMSGatewayURL, cfg.Notification.SMSAPIKey))
	}
	if len(cfg.Notification.KafkaBrokers) > 0 {
		sink, err := notify.NewKafkaSink(cfg.Notification.KafkaBrokers, cfg.Notification.KafkaTopic)
		if err != nil {
			log.Fatal("Failed to create Kafka sink: %v", err)
		}
		dispatcher.AddSink(sink)
		log.Info("Publishing alerts to Kafka topic %s", cfg.Notification.KafkaTopic)
	}
	if mqttClient != nil && cfg.MQTT.AlertsTopic != "" {
		dispatcher.AddSink(notify.NewMQTTSink(mqttClient, cfg.MQTT.AlertsTopic))
	}
	dispatcher.Start(ctx)

	// 7. Initialize Services
	engine := utils.NewRuleEngine()
	thresholdService := service.NewThresholdService(
		repository.NewThresholdRepository(defs.Thresholds), cfg.Alerting.TolerancePolicy, log)

	ruleService := service.NewRuleService(repository.NewRuleRepository(), thresholdService, engine, log)
	if err := ruleService.Seed(ctx, defs.Rules); err != nil {
		log.Fatal("Failed to register alert rules: %v", err)
	}

	var alertOpts []service.AlertServiceOption
	if journal != nil {
		alertOpts = append(alertOpts, service.WithJournal(journal))
	}
	alertService := service.NewAlertService(repository.NewAlertRepository(), hub, dispatcher, log, alertOpts...)
	telemetryService := service.NewTelemetryService(thresholdService, ruleService, engine, alertService, hub, log)

	// 8. MQTT Subscriptions
	if mqttClient != nil {
		if err := mqttClient.Subscribe(cfg.MQTT.ReadingsTopic, telemetryService.ProcessMessage); err != nil {
			log.Fatal("Failed to subscribe to readings topic: %v", err)
		}
		log.Info("MQTT subscriptions active")
	}

	// 9. Initialize Handlers
	var tokens middleware.TokenParser
	if cfg.Security.AuthEnabled {
		tokens = auth.NewAuthenticator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.JWTExpirationHours)
	} else {
		log.Warn("Authentication disabled: every request runs as admin")
	}

	srv := server.New(cfg, log)
	srv.RegisterHandlers(ctx, server.Handlers{
		Readings:      handler.NewReadingHandler(telemetryService, log),
		Thresholds:    handler.NewThresholdHandler(thresholdService, log),
		Rules:         handler.NewRuleHandler(ruleService, log),
		Alerts:        handler.NewAlertHandler(alertService, log),
		Journal:       journalHandler,
		Notifications: handler.NewNotificationHandler(settings, log),
		Health:        handler.NewHealthHandler(dbHealth, mqttHealth, log),
		WebSocket:     handler.NewWebSocketHandler(hub, log),
	}, tokens)

	// 10. Start HTTP Server
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 11. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	if mqttClient != nil {
		if err := mqttClient.Disconnect(); err != nil {
			log.Error("Failed to disconnect MQTT: %v", err)
		}
	}

	stop()
	dispatcher.Close()
	if journal != nil {
		journal.Close()
	}

	log.Info("Shutdown complete")
}
