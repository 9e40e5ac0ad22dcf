package global

import (
	"context"

	"duochat/config"
	"duochat/data/mongoutil"
	"duochat/logger"
	"duochat/service/mgo"
	"duochat/service/storage"
	"duochat/tools/ids"
)

// dev fallback; set JWT_SECRET in any real deployment
const devJwtSecret = "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o="

func ConfigAll(cfg *config.AppConfig) {
	ConfigIds(cfg)
	ConfigRedis(cfg)
	ConfigMongo(cfg)
}

func ConfigIds(cfg *config.AppConfig) {
	ids.SetNodeID(cfg.NodeID)
}

func JwtSecret(cfg *config.AppConfig) []byte {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret)
	}
	logger.Warnf("[Config] JWT_SECRET not set, using dev secret")
	return []byte(devJwtSecret)
}

// ConfigRedis initializes the presence mirror. Skipped entirely when no addr
// is configured; the gateway works without it.
func ConfigRedis(cfg *config.AppConfig) {
	if cfg.RedisAddr == "" {
		logger.Infof("[Config] REDIS_ADDR not set, presence mirror disabled")
		return
	}
	err := storage.InitRedis(storage.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Errorf("[Config] redis init failed addr=%s: %v", cfg.RedisAddr, err)
	}
}

// ConfigMongo starts the background mongo manager; callers gate on
// mgo.WaitReady before touching collections.
func ConfigMongo(cfg *config.AppConfig) {
	mgoCfg := &mongoutil.Config{
		Uri:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: 20,
		MaxRetry:    3,
	}
	mgo.StartAsync(context.Background(), mgoCfg)
}
