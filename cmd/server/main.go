package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"snafleshub/internal/config"
	"snafleshub/internal/model"
	"snafleshub/internal/negotiation"
	"snafleshub/internal/queue"
	"snafleshub/internal/realtime"
	"snafleshub/internal/router"
	rediskey "snafleshub/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// 1. 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Buyer{},
		&model.Order{},
		&model.Repayment{},
		&model.Negotiation{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// 2. Redis：限流、报价缓存、事件出口流
	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	// 3. 事件链路：outbox(Redis Stream) → relay → Kafka → consumer → 实时推送
	outbox := rediskey.NewOutbox(rdb, cfg.EventStream)
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	registry := realtime.NewRegistry()
	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, registry)
	defer consumer.Close()

	relay := queue.NewRelay(rdb, producer, cfg.EventStream, cfg.EventGroup, cfg.EventConsumer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go relay.Run(ctx)
	go consumer.Run(ctx)

	// 4. 议价服务与 HTTP 路由
	svc := negotiation.NewService(db, outbox, negotiation.Options{
		MinOrdersRequired:   cfg.MinOrdersRequired,
		MaxDiscountAbsolute: cfg.MaxDiscountAbsolute,
	})

	r := gin.Default()
	router.Setup(r, db, rdb, svc, registry, cfg)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()
	log.Printf("listening on %s", cfg.HTTPAddr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
