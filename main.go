package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"duochat/config"
	"duochat/global"
	"duochat/logger"
	"duochat/middleware"
	chatsvc "duochat/module/chat/service"
	"duochat/module/chat/store"
	"duochat/module/user"
	"duochat/service/chat"
	"duochat/service/mgo"
	"duochat/service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("[main] load config: %v", err)
		return
	}

	global.ConfigAll(cfg)

	// the durable store is a hard dependency; block startup on it
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := mgo.WaitReady(ctx, mgo.Manager())
		cancel()
		if err != nil {
			logger.Errorf("[main] mongo not ready: %v (last: %v)", err, mgo.Err())
			return
		}
	}

	st := store.NewMongoStoreFromManager()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := st.EnsureIndexes(ctx); err != nil {
			logger.Warnf("[main] ensure indexes: %v", err)
		}
		cancel()
	}

	// ---- realtime core ----
	reg := chat.NewRegistry(chat.RegistryConf{CloseReplaced: cfg.CloseReplaced})
	broadcaster := chat.NewBroadcaster(reg, chat.PresenceConf{})
	broadcaster.Bind()
	if storage.Enabled() {
		storage.NewMirror(reg, cfg.PresenceTTL).Bind()
	}

	router := chat.NewRouter(reg)
	svc := chatsvc.NewMessageService(st, router, cfg.SendTimeout)

	auth := user.NewJWTAuthenticator(global.JwtSecret(cfg), cfg.TokenTTL)
	users := user.NewHandler(auth, user.DevVerifier{})
	gateway := chat.NewGateway(reg, auth, svc)

	// ---- HTTP + WebSocket ----
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", gateway.HandleWS)
	r.POST("/api/auth/login", users.HandlerLogin)
	r.POST("/api/messages/send/:id", middleware.Auth(auth), svc.HandlerSend)
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "Server is running",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("[HTTP] Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("[main] HTTP server failed: %v", err)
	}
}
