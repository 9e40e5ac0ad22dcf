package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig is the whole process configuration, read from the environment.
// A .env file in the working directory is loaded first if present.
type AppConfig struct {
	Port int `envconfig:"PORT" default:"5000"`

	MongoURI    string `envconfig:"MONGO_DB_URI" default:"mongodb://localhost:27017"`
	MongoDBName string `envconfig:"MONGO_DB_NAME" default:"chat"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:""`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"2h"`

	// Redis presence mirror; empty addr disables it.
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	PresenceTTL   time.Duration `envconfig:"PRESENCE_TTL" default:"2m"`

	// Upper bound on the durable write in a send request.
	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" default:"5s"`

	// Whether a replaced connection is proactively closed when the same user
	// reconnects. Off keeps the old handle orphaned.
	CloseReplaced bool `envconfig:"CLOSE_REPLACED" default:"false"`

	NodeID int64 `envconfig:"NODE_ID" default:"1"`
}

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
