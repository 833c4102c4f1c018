package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracing(context.Background(), cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to init tracing: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("tracing shutdown: %v", err)
			}
		}()
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.EventExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)

	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	threadRepo := repositories.NewThreadRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	profileRepo := repositories.NewProfileRepo(database)

	hub := ws.NewHub()

	threadHandler := handlers.NewThreadHandler(threadRepo, messageRepo, profileRepo, hub, auditEmitter)
	threadWS := ws.NewThreadWebSocketHandler(hub, threadRepo, cfg.JWTSecret)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/threads", authMiddleware, threadHandler.ListThreads)
	router.POST("/threads", authMiddleware, threadHandler.StartThread)
	router.GET("/threads/unread-count", authMiddleware, threadHandler.GetUnreadCount)
	router.GET("/threads/:thread_id/messages", authMiddleware, threadHandler.GetThreadMessages)
	router.POST("/threads/:thread_id/messages", authMiddleware, threadHandler.PostThreadMessage)
	router.PATCH("/threads/:thread_id/status", authMiddleware, threadHandler.UpdateThreadStatus)

	router.GET("/ws/threads/:thread_id", threadWS.Handle)

	router.GET("/healthz", handlers.HealthHandler(database))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
