package eventbus

import (
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// StartLoggingListener подписывается на все события и пишет их в лог
// на уровне DEBUG. DeltaState идёт каждый тик, поэтому печатается на TRACE.
func StartLoggingListener(d *Distributor, logger *logging.Logger) HandlerID {
	id := d.AddHandler(func(ev events.Event) {
		if ev.Kind() == events.KindDeltaState {
			if logger.Enabled(logging.TRACE) {
				logger.Trace("[EventBus] %s %+v", ev.Kind(), ev)
			}
			return
		}
		logger.Debug("[EventBus] %s %+v", ev.Kind(), ev)
	})
	logger.Info("🪵 LoggingListener: подписка на все события активирована (handler=%d)", id)
	return id
}
