package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Mongo holds the document store connection settings.
type Mongo struct {
	URI      string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DB" envDefault:"givers"`
}

// JWT holds token signing settings.
type JWT struct {
	Secret     string        `env:"SECRET" envDefault:"dev-secret-change-me"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

// MercadoPago holds the wallet gateway settings.
type MercadoPago struct {
	BaseURL     string `env:"BASE_URL" envDefault:"https://api.mercadopago.com"`
	AccessToken string `env:"ACCESS_TOKEN"`
}

// Webpay holds the redirect gateway settings.
type Webpay struct {
	BaseURL   string `env:"BASE_URL" envDefault:"https://webpay3gint.transbank.cl/rswebpaytransaction/api/webpay/v1.2"`
	KeyID     string `env:"KEY_ID"`
	KeySecret string `env:"KEY_SECRET"`
}

// Config aggregates the application configuration. Fields are populated from
// environment variables (a .env file is loaded first when present); the
// Mongo client and logger are attached by Load.
type Config struct {
	Env           string   `env:"ENV" envDefault:"dev"`
	Port          uint16   `env:"PORT" envDefault:"8080"`
	PublicBaseURL string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AllowOrigins  []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	Mongo       Mongo       `envPrefix:"MONGO_"`
	JWT         JWT         `envPrefix:"JWT_"`
	MercadoPago MercadoPago `envPrefix:"MP_"`
	Webpay      Webpay      `envPrefix:"WEBPAY_"`

	MongoClient *mongo.Client `env:"-"`
	DBName      string        `env:"-"`
	Logger      *zap.Logger   `env:"-"`
}

// Load reads configuration, builds the logger, and connects to Mongo.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	logger, err := NewLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	cfg.Logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	cfg.MongoClient = client
	cfg.DBName = cfg.Mongo.Database
	return &cfg, nil
}

// NewLogger builds the zap logger for the given environment.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "dev" {
		return zap.NewDevelopment()
	}
	c := zap.NewProductionConfig()
	return c.Build()
}
