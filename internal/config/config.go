package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string
	Port int

	MongoURI      string
	MongoDatabase string

	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration

	S3Region string
	S3Bucket string // blob store disabled when empty
}

// Load reads configuration from the environment, with .env.local and .env
// as local-development fallbacks.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", 8080)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "chatline")
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("AWS_REGION", "us-east-1")

	ttl, err := time.ParseDuration(v.GetString("TOKEN_TTL"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:           v.GetString("ENV"),
		Port:          v.GetInt("PORT"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),
		RedisURL:      v.GetString("REDIS_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		TokenTTL:      ttl,
		S3Region:      v.GetString("AWS_REGION"),
		S3Bucket:      v.GetString("S3_BUCKET"),
	}, nil
}
