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

	"github.com/annel0/mmo-manager/internal/config"
	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/game"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/network"
	"github.com/annel0/mmo-manager/internal/scheduling"
	"github.com/annel0/mmo-manager/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к config.yaml (или GAME_CONFIG)")
	addr := flag.String("addr", "", "адрес сервера, по умолчанию localhost:<tcp_port>")
	transportName := flag.String("transport", "", "tcp или kcp, по умолчанию из конфигурации")
	actorType := flag.String("type", "", "тип актёра для запросов на появление")
	spawnEvery := flag.Float64("spawn-every", 3, "секунды между запросами на появление, 0 отключает")
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

	if *addr == "" {
		*addr = fmt.Sprintf("localhost:%d", cfg.Server.GetTCPPort())
	}
	if *transportName == "" {
		*transportName = cfg.Server.Transport
	}

	logger := logging.GetComponentLogger("client")
	err = run(cfg, *addr, *transportName, *actorType, *spawnEvery, logger)
	switch {
	case err == nil:
		logger.Info("👋 Клиент остановлен")
	case errors.Is(err, game.ErrServerGone):
		logger.Warn("🔌 Сервер закрыл соединение")
	default:
		logger.Error("❌ %v", err)
		logging.GetLoggerManager().CloseAll()
		os.Exit(1)
	}
}

func run(cfg *config.Config, addr, transportName, actorType string, spawnEvery float64, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := world.LoadActorStore(cfg.World.ActorsFile)
	if err != nil {
		return err
	}
	transport, err := network.ParseTransport(transportName)
	if err != nil {
		return err
	}

	bus := eventbus.NewDistributor()
	client := network.NewClient(network.ClientConfig{
		Transport: transport,
		Channel: network.ChannelConfig{
			MaxMessageSize:   cfg.Server.MaxMessageSize,
			CompressionLevel: cfg.Server.CompressionLevel,
		},
	}, bus, logging.GetNetworkLogger(), nil)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = client.Connect(dialCtx, addr)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer client.Close()
	logger.Info("🔗 Подключены к %s (%s)", addr, transport)

	scheduler := scheduling.NewScheduler()
	clientGame := game.NewClientGame(game.ClientConfig{
		TickInterval: time.Duration(cfg.Server.TickInterval() * float64(time.Second)),
		SpawnPeriod:  spawnEvery,
	}, client, bus, scheduler, store, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	if actorType != "" && !clientGame.User().SelectType(actorType) {
		return fmt.Errorf("actor type %q is not available, choose one of %v", actorType, clientGame.User().AvailableTypes())
	}
	logger.Info("🐣 Тип для появления: %s", clientGame.User().SelectedType())

	// сводка раз в несколько секунд, из цикла клиента
	scheduler.Periodic(func() {
		user := clientGame.User()
		logger.Info("📊 Счёт: %d, героев: %d (макс %d), актёров в мире: %d",
			user.Score(), user.HeroCount(), user.MaxSimultaneousHeroes(), clientGame.Mirror().Len())
	}, 5)

	return clientGame.Run(ctx)
}
