package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Influx   InfluxConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Logging  LoggingConfig
	Ingest   IngestConfig
}

// ServerConfig holds all server-related configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the relational store configuration. The driver
// selects which DSN fields apply.
type DatabaseConfig struct {
	Driver          string // postgres, sqlite or mysql
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	Path            string // sqlite only
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case "sqlite":
		return c.Path
	}
	return ""
}

// InfluxConfig holds the time-series store configuration.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey              string
	ExpirationMinutes      int
	RefreshExpirationHours int
}

// SMTPConfig holds outbound email configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string // frontend base URL used in email links
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// IngestConfig bounds the ingestion endpoint.
type IngestConfig struct {
	RatePerSecond float64
	Burst         int
}

// LoadConfig loads the configuration from environment variables and config files.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment and defaults")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/airquality-backend")

	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "5s")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "airquality.db")
	viper.SetDefault("database.maxIdleConns", 5)
	viper.SetDefault("database.maxOpenConns", 25)
	viper.SetDefault("database.connMaxLifetime", "30m")

	viper.SetDefault("jwt.expirationMinutes", 30)
	viper.SetDefault("jwt.refreshExpirationHours", 24)

	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.baseURL", "http://localhost:3000")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("ingest.ratePerSecond", 50)
	viper.SetDefault("ingest.burst", 100)

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.name", "DB_NAME")
	viper.BindEnv("database.path", "DB_PATH")
	viper.BindEnv("influx.url", "INFLUXDB_URL")
	viper.BindEnv("influx.token", "INFLUXDB_TOKEN")
	viper.BindEnv("influx.org", "INFLUXDB_ORG")
	viper.BindEnv("influx.bucket", "INFLUXDB_BUCKET")
	viper.BindEnv("jwt.secretKey", "JWT_SECRET_KEY")
	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.username", "EMAIL")
	viper.BindEnv("smtp.password", "EMAIL_PASSWORD")
	viper.BindEnv("smtp.from", "EMAIL_FROM")
	viper.BindEnv("smtp.baseURL", "FRONTEND_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		log.Println("no config file found, using environment variables and defaults")
	}

	readTimeout, err := time.ParseDuration(viper.GetString("server.readTimeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(viper.GetString("server.writeTimeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	shutdownTimeout, err := time.ParseDuration(viper.GetString("server.shutdownTimeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.connMaxLifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Database: DatabaseConfig{
			Driver:          viper.GetString("database.driver"),
			Host:            viper.GetString("database.host"),
			Port:            viper.GetInt("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.sslmode"),
			Path:            viper.GetString("database.path"),
			MaxIdleConns:    viper.GetInt("database.maxIdleConns"),
			MaxOpenConns:    viper.GetInt("database.maxOpenConns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Influx: InfluxConfig{
			URL:    viper.GetString("influx.url"),
			Token:  viper.GetString("influx.token"),
			Org:    viper.GetString("influx.org"),
			Bucket: viper.GetString("influx.bucket"),
		},
		JWT: JWTConfig{
			SecretKey:              viper.GetString("jwt.secretKey"),
			ExpirationMinutes:      viper.GetInt("jwt.expirationMinutes"),
			RefreshExpirationHours: viper.GetInt("jwt.refreshExpirationHours"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("smtp.host"),
			Port:     viper.GetInt("smtp.port"),
			Username: viper.GetString("smtp.username"),
			Password: viper.GetString("smtp.password"),
			From:     viper.GetString("smtp.from"),
			BaseURL:  viper.GetString("smtp.baseURL"),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString("logging.level"),
			Format: viper.GetString("logging.format"),
		},
		Ingest: IngestConfig{
			RatePerSecond: viper.GetFloat64("ingest.ratePerSecond"),
			Burst:         viper.GetInt("ingest.burst"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT secret key is required")
	}
	if cfg.Influx.URL == "" || cfg.Influx.Token == "" || cfg.Influx.Org == "" || cfg.Influx.Bucket == "" {
		return nil, fmt.Errorf("InfluxDB url, token, org and bucket are required")
	}
	switch cfg.Database.Driver {
	case "postgres", "mysql":
		if cfg.Database.User == "" || cfg.Database.Name == "" {
			return nil, fmt.Errorf("database user and name are required for driver %s", cfg.Database.Driver)
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			return nil, fmt.Errorf("database path is required for sqlite")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	return cfg, nil
}
