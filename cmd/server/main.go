package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/mmo-manager/internal/api"
	"github.com/annel0/mmo-manager/internal/cache"
	"github.com/annel0/mmo-manager/internal/config"
	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/game"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/network"
	"github.com/annel0/mmo-manager/internal/observability"
	"github.com/annel0/mmo-manager/internal/scheduling"
	gsync "github.com/annel0/mmo-manager/internal/sync"
	"github.com/annel0/mmo-manager/internal/world"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "путь к config.yaml (или GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.GetLoggerManager().Configure(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseLevel(cfg.Logging.FileLevel),
		cfg.Logging.Files,
	)
	defer logging.GetLoggerManager().CloseAll()

	logger := logging.GetServerLogger()
	if err := run(cfg, logger); err != nil {
		logger.Error("❌ Сервер завершился с ошибкой: %v", err)
		logging.GetLoggerManager().CloseAll()
		os.Exit(1)
	}
	logger.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("🎮 Запуск MMO Manager Server %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === КОНФИГУРАЦИЯ ===
	store, err := world.LoadActorStore(cfg.World.ActorsFile)
	if err != nil {
		return err
	}
	logger.Info("📜 Типы актёров: %v", store.Names())

	transport, err := network.ParseTransport(cfg.Server.Transport)
	if err != nil {
		return err
	}
	strategy, err := gsync.ParseStrategy(cfg.World.DeltaStrategy)
	if err != nil {
		return err
	}

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Debug("Зерно генератора: %d", seed)

	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	}, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
		}
	}()

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := eventbus.NewDistributor()
	eventbus.StartLoggingListener(bus, logging.GetComponentLogger("events"))
	busMetrics := eventbus.NewMetricsExporter(bus, registry)
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	if cfg.NATS.URL != "" {
		bridge, err := eventbus.NewNATSBridge(eventbus.NATSConfig{
			URL:       cfg.NATS.URL,
			Prefix:    cfg.NATS.Prefix,
			Stream:    cfg.NATS.Stream,
			Retention: time.Duration(cfg.NATS.Retention) * time.Hour,
		}, logging.GetComponentLogger("nats"))
		if err != nil {
			logger.Warn("⚠️ NATS недоступен, события наружу не пересылаются: %v", err)
		} else {
			bridge.Attach(bus)
			defer bridge.Close()
			logger.Info("📨 События пересылаются в NATS %s (%s.*)", cfg.NATS.URL, cfg.NATS.Prefix)
		}
	}

	w := world.NewWorld(world.Config{Width: cfg.World.Width, Height: cfg.World.Height},
		store, bus, rand.New(rand.NewSource(seed)), logging.GetWorldLogger())

	server := network.NewServer(network.ServerConfig{
		Addr:      cfg.Server.Addr(),
		Transport: transport,
		Channel: network.ChannelConfig{
			MaxMessageSize:   cfg.Server.MaxMessageSize,
			CompressionLevel: cfg.Server.CompressionLevel,
		},
	}, bus, logging.GetNetworkLogger(), network.NewMetrics("mmo", registry))

	status := game.NewStatusBoard()
	serverGame := game.NewServerGame(game.ServerConfig{
		TickInterval:    time.Duration(cfg.Server.TickInterval() * float64(time.Second)),
		InitialCreeps:   cfg.World.InitialCreeps,
		CreepType:       cfg.World.CreepType,
		HeroSpawnPeriod: cfg.World.HeroSpawnPeriod,
		MaxHeroes:       cfg.World.MaxHeroes,
		DeltaStrategy:   strategy,
	}, w, bus, server, scheduling.NewScheduler(), logging.GetGameLogger(), game.NewMetrics("mmo", registry), status)

	if err := serverGame.Populate(); err != nil {
		return err
	}

	if cfg.Redis.Addr != "" {
		redisStore, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("⚠️ Redis недоступен, статус не публикуется: %v", err)
		} else {
			publisher := cache.NewStatusPublisher(redisStore, status, cache.PublisherConfig{
				Key:      cfg.Redis.Key,
				TTL:      time.Duration(cfg.Redis.TTLSeconds) * time.Second,
				Interval: time.Duration(cfg.Redis.PublishEvery * float64(time.Second)),
			}, logging.GetComponentLogger("cache"))
			publisher.Start()
			defer redisStore.Close()
			defer publisher.Stop()
			logger.Info("🗄️ Статус публикуется в Redis %s, ключ %s", cfg.Redis.Addr, cfg.Redis.Key)
		}
	}

	var restServer *api.RestServer
	if cfg.API.Enabled {
		restServer = api.NewRestServer(api.Config{
			Port:     fmt.Sprintf(":%d", cfg.API.GetPort()),
			Status:   status,
			Registry: registry,
			Logger:   logging.GetAPILogger(),
			Version:  version,
		})
		go func() {
			if err := restServer.Start(); err != nil {
				logger.Error("❌ Ошибка REST API: %v", err)
			}
		}()
	}

	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logger.Info("   🎮 Игровой трафик: %s %s", transport, server.Addr())
	if restServer != nil {
		logger.Info("   🌐 REST API: http://localhost:%d", cfg.API.GetPort())
		logger.Info("   ❤️  Health check: http://localhost:%d/health", cfg.API.GetPort())
	}

	// Цикл блокирует до сигнала
	runErr := serverGame.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("❌ Игровой цикл прерван: %v", runErr)
	}

	// === GRACEFUL SHUTDOWN ===
	logger.Debug("Остановка сервисов...")
	if restServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := restServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("❌ Ошибка остановки REST API: %v", err)
		}
	}
	return runErr
}
