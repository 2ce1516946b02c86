package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka 集群地址（逗号分隔）、Topic、消费者组
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis Stream outbox（API 原子入流，Relay 异步转 Kafka）
	EventStream   string
	EventGroup    string
	EventConsumer string

	// 议价策略：最少送达订单数、平台绝对折扣上限（分）
	MinOrdersRequired   int64
	MaxDiscountAbsolute int64

	// 出价接口限流与报价缓存策略
	OfferRateLimit  int
	OfferRateWindow time.Duration
	FloorCacheTTL   time.Duration
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DBPath:              getEnv("DB_PATH", "snafleshub.db"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             0,
		KafkaBrokers:        splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "snafleshub-negotiation-events"),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "snafleshub-event-consumer"),
		EventStream:         getEnv("NEGOTIATION_EVENT_STREAM", "snafleshub:negotiation_events"),
		EventGroup:          getEnv("NEGOTIATION_EVENT_GROUP", "snafleshub-relay-group"),
		EventConsumer:       getEnv("NEGOTIATION_EVENT_CONSUMER", "snafleshub-relay-1"),
		MinOrdersRequired:   0,
		MaxDiscountAbsolute: 500,
		OfferRateLimit:      20,
		OfferRateWindow:     time.Minute,
		FloorCacheTTL:       30 * time.Second,
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	minOrders, err := getEnvInt("NEGOTIATION_MIN_ORDERS", int(cfg.MinOrdersRequired))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid NEGOTIATION_MIN_ORDERS: %w", err)
	}
	if minOrders < 0 {
		return AppConfig{}, fmt.Errorf("NEGOTIATION_MIN_ORDERS must be >= 0")
	}
	cfg.MinOrdersRequired = int64(minOrders)

	maxDiscount, err := getEnvInt("MAX_NEGOTIATION_DISCOUNT", int(cfg.MaxDiscountAbsolute))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid MAX_NEGOTIATION_DISCOUNT: %w", err)
	}
	if maxDiscount < 0 {
		return AppConfig{}, fmt.Errorf("MAX_NEGOTIATION_DISCOUNT must be >= 0")
	}
	cfg.MaxDiscountAbsolute = int64(maxDiscount)

	rateLimit, err := getEnvInt("OFFER_RATE_LIMIT", cfg.OfferRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid OFFER_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("OFFER_RATE_LIMIT must be > 0")
	}
	cfg.OfferRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("OFFER_RATE_WINDOW_SEC", int(cfg.OfferRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid OFFER_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("OFFER_RATE_WINDOW_SEC must be > 0")
	}
	cfg.OfferRateWindow = time.Duration(rateWindowSec) * time.Second

	floorTTLSec, err := getEnvInt("FLOOR_CACHE_TTL_SEC", int(cfg.FloorCacheTTL.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid FLOOR_CACHE_TTL_SEC: %w", err)
	}
	if floorTTLSec <= 0 {
		return AppConfig{}, fmt.Errorf("FLOOR_CACHE_TTL_SEC must be > 0")
	}
	cfg.FloorCacheTTL = time.Duration(floorTTLSec) * time.Second

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.EventStream == "" {
		return AppConfig{}, fmt.Errorf("NEGOTIATION_EVENT_STREAM must not be empty")
	}
	if cfg.EventGroup == "" {
		return AppConfig{}, fmt.Errorf("NEGOTIATION_EVENT_GROUP must not be empty")
	}
	if cfg.EventConsumer == "" {
		return AppConfig{}, fmt.Errorf("NEGOTIATION_EVENT_CONSUMER must not be empty")
	}

	return cfg, nil
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV 将逗号分隔字符串解析为字符串切片。
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
