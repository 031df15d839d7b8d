package eventbus

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// NATSConfig параметры моста в NATS.
type NATSConfig struct {
	URL       string        // nats://127.0.0.1:4222
	Prefix    string        // префикс темы, по умолчанию "mmo.events"
	Stream    string        // если задан, события пишутся в JetStream-стрим
	Retention time.Duration // MaxAge стрима
}

// NATSBridge пересылает события симуляции во внешний NATS, чтобы их могли
// читать другие сервисы. Тема: <prefix>.<kind>, тело — msgpack-конверт
// из events.Encode.
type NATSBridge struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	prefix    string
	logger    *logging.Logger
	published uint64
	dropped   uint64
}

// NewNATSBridge подключается к NATS и при необходимости создаёт стрим.
func NewNATSBridge(cfg NATSConfig, logger *logging.Logger) (*NATSBridge, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "mmo.events"
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("mmo-manager"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	b := &NATSBridge{nc: nc, prefix: cfg.Prefix, logger: logger}
	if cfg.Stream == "" {
		return b, nil
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{cfg.Prefix + ".*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    cfg.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}
	b.js = js
	return b, nil
}

// Subject тема NATS для вида события.
func Subject(prefix string, kind events.Kind) string {
	return prefix + "." + kind.String()
}

// KindFromSubject обратное к Subject преобразование.
func KindFromSubject(prefix, subject string) (events.Kind, bool) {
	name, ok := strings.CutPrefix(subject, prefix+".")
	if !ok {
		return 0, false
	}
	for _, k := range events.AllKinds() {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Attach подписывает мост на события симуляции в шине.
func (b *NATSBridge) Attach(d *Distributor) HandlerID {
	return d.AddHandler(b.forward, events.SimulationKinds()...)
}

// forward публикует событие; публикация не ждёт подтверждения, чтобы
// не тормозить игровой цикл.
func (b *NATSBridge) forward(ev events.Event) {
	data, err := events.Encode(ev)
	if err != nil {
		atomic.AddUint64(&b.dropped, 1)
		b.logger.Warn("NATS: не удалось сериализовать %s: %v", ev.Kind(), err)
		return
	}

	subj := Subject(b.prefix, ev.Kind())
	if b.js != nil {
		_, err = b.js.PublishAsync(subj, data)
	} else {
		err = b.nc.Publish(subj, data)
	}
	if err != nil {
		atomic.AddUint64(&b.dropped, 1)
		b.logger.Warn("NATS: ошибка публикации в %s: %v", subj, err)
		return
	}
	atomic.AddUint64(&b.published, 1)
}

// Subscribe читает события из NATS. Обработчик вызывается из горутины
// клиента NATS. Пустой kinds означает все виды.
func (b *NATSBridge) Subscribe(h Handler, kinds ...events.Kind) (*nats.Subscription, error) {
	subj := b.prefix + ".*"
	if len(kinds) == 1 {
		subj = Subject(b.prefix, kinds[0])
	}
	want := subscriber{}
	if len(kinds) > 1 {
		want.kinds = make(map[events.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			want.kinds[k] = struct{}{}
		}
	}

	return b.nc.Subscribe(subj, func(msg *nats.Msg) {
		ev, err := events.Decode(msg.Data)
		if err != nil {
			b.logger.Warn("NATS: битое событие в %s: %v", msg.Subject, err)
			return
		}
		if want.matches(ev.Kind()) {
			h(ev)
		}
	})
}

// Metrics реализует StatsProvider.
func (b *NATSBridge) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&b.published),
		Dropped:   atomic.LoadUint64(&b.dropped),
	}
}

// Close сбрасывает буферы и закрывает соединение.
func (b *NATSBridge) Close() {
	if b.js != nil {
		select {
		case <-b.js.PublishAsyncComplete():
		case <-time.After(2 * time.Second):
		}
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}
