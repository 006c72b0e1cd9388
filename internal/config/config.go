package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	MQTT         MQTTConfig
	Security     SecurityConfig
	Logging      LoggingConfig
	Alerting     AlertingConfig
	Notification NotificationConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

// DatabaseConfig configures the optional Postgres alert journal.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	JournalQueue    int
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	ReadingsTopic  string
	AlertsTopic    string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type SecurityConfig struct {
	AuthEnabled        bool
	JWTSecret          string
	JWTIssuer          string
	JWTExpirationHours int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

type AlertingConfig struct {
	DefinitionsFile string
	TolerancePolicy models.TolerancePolicy
}

type NotificationConfig struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration

	EmailEnabled bool
	EmailTo      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SMSEnabled    bool
	SMSNumber     string
	SMSGatewayURL string
	SMSAPIKey     string

	InAppEnabled bool

	KafkaBrokers []string
	KafkaTopic   string
}

var (
	databaseEnvVars = []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"}
	mqttEnvVars     = []string{"MQTT_BROKER"}
)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server:       loadServerConfig(),
		Database:     loadDatabaseConfig(),
		MQTT:         loadMQTTConfig(),
		Security:     loadSecurityConfig(),
		Logging:      loadLoggingConfig(),
		Alerting:     loadAlertingConfig(),
		Notification: loadNotificationConfig(),
	}

	if err := cfg.validateRequired(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRequired only demands the variables of subsystems that are switched on.
func (c *Config) validateRequired() error {
	var required []string
	if c.Database.Enabled {
		required = append(required, databaseEnvVars...)
	}
	if c.MQTT.Enabled {
		required = append(required, mqttEnvVars...)
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "10s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         getEnvAsBool("DB_ENABLED", false),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "farm_admin"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "farm_monitor"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
		JournalQueue:    getEnvAsInt("DB_JOURNAL_QUEUE", 256),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "farm-monitor"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		ReadingsTopic:  getEnv("MQTT_READINGS_TOPIC", "farm/sensors/+/reading"),
		AlertsTopic:    getEnv("MQTT_ALERTS_TOPIC", "farm/alerts"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AuthEnabled:        getEnvAsBool("AUTH_ENABLED", false),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", ""),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func loadAlertingConfig() AlertingConfig {
	return AlertingConfig{
		DefinitionsFile: getEnv("ALERTING_CONFIG_FILE", ""),
		TolerancePolicy: models.TolerancePolicy(getEnv("THRESHOLD_TOLERANCE_POLICY", string(models.ToleranceAdvisory))),
	}
}

func loadNotificationConfig() NotificationConfig {
	return NotificationConfig{
		QueueSize:       getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		Workers:         getEnvAsInt("NOTIFY_WORKERS", 2),
		DeliveryTimeout: getEnvAsDuration("NOTIFY_DELIVERY_TIMEOUT", "10s"),

		EmailEnabled: getEnvAsBool("NOTIFY_EMAIL_ENABLED", true),
		EmailTo:      getEnv("NOTIFY_EMAIL_TO", "admin@farm.ai"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "alerts@farm.ai"),

		SMSEnabled:    getEnvAsBool("NOTIFY_SMS_ENABLED", false),
		SMSNumber:     getEnv("NOTIFY_SMS_NUMBER", ""),
		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", ""),
		SMSAPIKey:     getEnv("SMS_GATEWAY_API_KEY", ""),

		InAppEnabled: getEnvAsBool("NOTIFY_INAPP_ENABLED", true),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_ALERTS_TOPIC", "farm.alerts"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// NotificationDefaults are the startup notification settings; admins may
// change them at runtime.
func (c *Config) NotificationDefaults() models.NotificationSettings {
	var s models.NotificationSettings
	s.Email.Enabled = c.Notification.EmailEnabled
	s.Email.Address = c.Notification.EmailTo
	s.SMS.Enabled = c.Notification.SMSEnabled
	s.SMS.Number = c.Notification.SMSNumber
	s.InApp.Enabled = c.Notification.InAppEnabled
	return s
}

func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if c.Database.Enabled {
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD cannot be empty")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
			errors = append(errors, "MQTT_PORT must be between 1 and 65535")
		}
		if c.MQTT.QoS > 2 {
			errors = append(errors, "MQTT_QOS must be 0, 1 or 2")
		}
		if c.MQTT.ReadingsTopic == "" {
			errors = append(errors, "MQTT_READINGS_TOPIC cannot be empty")
		}
	}

	if c.Security.AuthEnabled && len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters when AUTH_ENABLED=true")
	}

	if _, ok := models.ParseTolerancePolicy(string(c.Alerting.TolerancePolicy)); !ok {
		errors = append(errors, fmt.Sprintf("THRESHOLD_TOLERANCE_POLICY must be %q or %q",
			models.ToleranceAdvisory, models.ToleranceWiden))
	}

	if c.Notification.QueueSize < 1 {
		errors = append(errors, "NOTIFY_QUEUE_SIZE must be positive")
	}
	if c.Notification.Workers < 1 {
		errors = append(errors, "NOTIFY_WORKERS must be positive")
	}
	if c.Database.Enabled && c.Database.JournalQueue < 1 {
		errors = append(errors, "DB_JOURNAL_QUEUE must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func (c *Config) Print() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║            Farm Monitor - Configuration                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
	if c.Database.Enabled {
		fmt.Printf("Alert journal:   %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
	} else {
		fmt.Println("Alert journal:   disabled")
	}
	if c.MQTT.Enabled {
		fmt.Printf("MQTT Broker:     %s:%d (%s)\n", c.MQTT.Broker, c.MQTT.Port, c.MQTT.ReadingsTopic)
	} else {
		fmt.Println("MQTT Broker:     disabled")
	}
	fmt.Printf("Auth:            %s\n", onOff(c.Security.AuthEnabled))
	fmt.Printf("Tolerance:       %s\n", c.Alerting.TolerancePolicy)
	if c.Alerting.DefinitionsFile != "" {
		fmt.Printf("Definitions:     %s\n", c.Alerting.DefinitionsFile)
	} else {
		fmt.Println("Definitions:     built-in defaults")
	}
	if len(c.Notification.KafkaBrokers) > 0 {
		fmt.Printf("Kafka:           %s (%s)\n", strings.Join(c.Notification.KafkaBrokers, ","), c.Notification.KafkaTopic)
	}
	fmt.Println("──────────────────────────────────────────────────────────")
}
