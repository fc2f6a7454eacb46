package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/reservation"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	catalog      storage.Catalog
	appointments storage.AppointmentStore
	calendar     calendar.Store
	pool         *db.Pool
}

func (s stores) close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// openStores selects the persistence backend from STORE_BACKEND.
func openStores(ctx context.Context, logger *slog.Logger) (stores, error) {
	switch backend := config.String("STORE_BACKEND", "postgres"); backend {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		mem := storage.NewMemoryStore()
		return stores{catalog: mem, appointments: mem, calendar: mem}, nil
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return stores{}, err
		}
		maxConns, err := config.Int("DB_MAX_CONNS", 10)
		if err != nil {
			return stores{}, err
		}
		pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
		if err != nil {
			return stores{}, err
		}
		return stores{
			catalog:      storage.NewCatalogRepository(pool),
			appointments: storage.NewAppointmentRepository(pool),
			calendar:     storage.NewCalendarRepository(pool),
			pool:         pool,
		}, nil
	default:
		return stores{}, fmt.Errorf("STORE_BACKEND must be postgres or memory (got %q)", backend)
	}
}

// openRedis returns nil when REDIS_ADDR is unset.
func openRedis(ctx context.Context) (*redis.Client, error) {
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	redisDB, err := config.Int("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       redisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func newLocker(rdb *redis.Client, logger *slog.Logger) (reservation.Locker, error) {
	switch backend := config.String("LOCK_BACKEND", "local"); backend {
	case "local":
		return reservation.NewLocalLocker(), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
		ttl, err := config.Duration("LOCK_TTL", 10*time.Second)
		if err != nil {
			return nil, err
		}
		return reservation.NewRedisLocker(rdb, logger, reservation.RedisLockerConfig{TTL: ttl}), nil
	default:
		return nil, fmt.Errorf("LOCK_BACKEND must be local or redis (got %q)", backend)
	}
}

// newLimiter shares the window across replicas when Redis is configured.
func newLimiter(rdb *redis.Client) (httpx.Limiter, error) {
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		return httpx.NewRedisLimiter(rdb, perMinute, time.Minute, "booking:rl"), nil
	}
	return httpx.NewMemoryLimiter(perMinute, time.Minute), nil
}

// notifyTargets always logs; Kafka and WhatsApp are added when configured.
func notifyTargets(directory notify.Directory, logger *slog.Logger) ([]notify.Target, func(), error) {
	targets := []notify.Target{{Channel: "log", Notifier: notify.LogNotifier{Logger: logger}}}
	closeFn := func() {}

	if brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")); len(brokers) > 0 {
		writer := notify.NewKafkaWriter(brokers)
		topic := config.String("KAFKA_NOTIFY_TOPIC", notify.DefaultReservedTopic)
		targets = append(targets, notify.Target{Channel: "kafka", Notifier: notify.NewKafkaNotifier(writer, topic)})
		closeFn = func() {
			if err := writer.Close(); err != nil {
				logger.Warn("kafka writer close failed", "err", err)
			}
		}
	}

	sid := config.String("TWILIO_ACCOUNT_SID", "")
	token := config.String("TWILIO_AUTH_TOKEN", "")
	from := config.String("TWILIO_WHATSAPP_FROM", "")
	switch {
	case sid != "" && token != "" && from != "":
		api := notify.NewTwilioAPI(sid, token)
		targets = append(targets, notify.Target{Channel: "whatsapp", Notifier: notify.NewWhatsAppNotifier(api, directory, notify.WhatsAppConfig{
			From:        from,
			CountryCode: config.String("WHATSAPP_DEFAULT_COUNTRY_CODE", notify.DefaultCountryCode),
		})})
	case sid != "" || token != "" || from != "":
		return nil, nil, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM must be set together")
	}

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Channel)
	}
	logger.Info("notification channels", "channels", strings.Join(names, ","))
	return targets, closeFn, nil
}

func readyChecks(s stores, rdb *redis.Client) []runtime.ReadyCheck {
	var checks []runtime.ReadyCheck
	if s.pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(s.pool)})
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	return checks
}
