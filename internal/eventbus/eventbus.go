package eventbus

import (
	"sync"

	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// HandlerID возвращается при подписке; позволяет отписаться.
type HandlerID int

// Идентификаторы обработчиков начинаются после зарезервированного диапазона.
const reservedHandlerIDs HandlerID = 100

// Handler потребляет события. Вызывается только из Update.
type Handler func(ev events.Event)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64 // принято через Post
	Consumed  uint64 // доставок обработчикам
	Dropped   uint64 // событий, не нашедших ни одного обработчика
	InFlight  int    // ждут следующего Update
}

// StatsProvider источник статистики для экспортёра метрик.
type StatsProvider interface {
	Metrics() Stats
}

type subscriber struct {
	id      HandlerID
	kinds   map[events.Kind]struct{} // nil: все виды
	handler Handler
}

func (s subscriber) matches(k events.Kind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Distributor отложенная шина событий игрового цикла.
// Post только ставит событие в очередь; доставка происходит в Update
// в порядке публикации, обработчикам в порядке регистрации.
type Distributor struct {
	mu          sync.Mutex
	subscribers []subscriber
	nextID      HandlerID
	queue       []events.Event
	stats       Stats
}

// NewDistributor создаёт пустую шину.
func NewDistributor() *Distributor {
	return &Distributor{nextID: reservedHandlerIDs}
}

// AddHandler подписывает обработчик на перечисленные виды событий.
// Пустой kinds подписывает на все виды.
func (d *Distributor) AddHandler(h Handler, kinds ...events.Kind) HandlerID {
	var set map[events.Kind]struct{}
	if len(kinds) > 0 {
		set = make(map[events.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			set[k] = struct{}{}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.subscribers = append(d.subscribers, subscriber{id: d.nextID, kinds: set, handler: h})
	return d.nextID
}

// RemoveHandler отписывает обработчик. Возвращает false, если id неизвестен.
func (d *Distributor) RemoveHandler(id HandlerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.subscribers {
		if s.id == id {
			d.subscribers = append(d.subscribers[:i:i], d.subscribers[i+1:]...)
			return true
		}
	}
	return false
}

// Post ставит событие в очередь до следующего Update.
func (d *Distributor) Post(ev events.Event) {
	if ev == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.stats.Published++
	d.mu.Unlock()
}

// Update рассылает накопленные события. Набор обработчиков фиксируется
// в начале рассылки; события, опубликованные во время неё, ждут
// следующего Update. Возвращает число разосланных событий.
func (d *Distributor) Update() int {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	subs := make([]subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.Unlock()

	for _, ev := range queue {
		delivered := 0
		kind := ev.Kind()
		for _, s := range subs {
			if !s.matches(kind) {
				continue
			}
			s.handler(ev)
			delivered++
		}

		d.mu.Lock()
		d.stats.Consumed += uint64(delivered)
		if delivered == 0 {
			d.stats.Dropped++
		}
		d.mu.Unlock()
	}
	return len(queue)
}

// Pending число событий в очереди.
func (d *Distributor) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// HandlerCount число активных обработчиков.
func (d *Distributor) HandlerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// Metrics реализует StatsProvider.
func (d *Distributor) Metrics() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.InFlight = len(d.queue)
	return s
}
