package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/logging"
)

// StatusSummary то, что публикуется в хранилище: снимок без списка актёров
type StatusSummary struct {
	Tick      uint64         `json:"tick"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Actors    int            `json:"actors"`
	Heroes    int            `json:"heroes"`
	Clients   int            `json:"clients"`
	Bus       eventbus.Stats `json:"bus"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PublisherConfig параметры публикации
type PublisherConfig struct {
	Key      string
	TTL      time.Duration
	Interval time.Duration
}

// StatusPublisher периодически кладёт последний снимок сервера в
// хранилище с TTL. Если сервер упал, ключ истекает сам.
type StatusPublisher struct {
	store  StatusStore
	source StatusSource
	cfg    PublisherConfig
	logger *logging.Logger

	published atomic.Uint64
	failed    atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStatusPublisher создаёт публикатор; Start запускает фоновую горутину
func NewStatusPublisher(store StatusStore, source StatusSource, cfg PublisherConfig, logger *logging.Logger) *StatusPublisher {
	if cfg.Key == "" {
		cfg.Key = "mmo:status"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &StatusPublisher{
		store:  store,
		source: source,
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Start запускает публикацию раз в Interval
func (p *StatusPublisher) Start() {
	p.wg.Add(1)
	go p.loop()
	p.logger.Info("📮 Публикация статуса в %s каждые %v (TTL %v)", p.cfg.Key, p.cfg.Interval, p.cfg.TTL)
}

// Stop останавливает горутину и дожидается её завершения
func (p *StatusPublisher) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *StatusPublisher) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Interval)
			if err := p.PublishOnce(ctx); err != nil {
				p.logger.Warn("⚠️ Не удалось опубликовать статус: %v", err)
			}
			cancel()
		}
	}
}

// PublishOnce публикует текущий снимок. Пока цикл не сделал ни одного
// тика, ничего не пишет.
func (p *StatusPublisher) PublishOnce(ctx context.Context) error {
	st := p.source.Current()
	if st == nil {
		return nil
	}
	data, err := json.Marshal(StatusSummary{
		Tick:      st.Tick,
		Width:     st.Width,
		Height:    st.Height,
		Actors:    st.Actors,
		Heroes:    st.Heroes,
		Clients:   st.Clients,
		Bus:       st.Bus,
		StartedAt: st.StartedAt,
		UpdatedAt: st.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, p.cfg.Key, data, p.cfg.TTL); err != nil {
		p.failed.Add(1)
		return err
	}
	p.published.Add(1)
	return nil
}

// Stats количество успешных и неудачных публикаций
func (p *StatusPublisher) Stats() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}
