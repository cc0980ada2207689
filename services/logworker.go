package services

import (
	"sync"

	"decoyd/internal/databus"
	"decoyd/internal/logger"
)

// LogWorkerName is the log worker's entry name in the supervision set.
const LogWorkerName = "log-worker"

/**
 * LogWorker is the mandatory event-aggregation task: it drains the
 * session managers' event queue and renders each event through the
 * logging system. It joins the supervision set first whenever any
 * service or proxy is planned.
 */
type LogWorker struct {
	sessions *databus.SessionManager
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewLogWorker(sessions *databus.SessionManager) *LogWorker {
	return &LogWorker{
		sessions: sessions,
		stopped:  make(chan struct{}),
	}
}

func (w *LogWorker) Name() string { return LogWorkerName }

// Start is part of the Service contract; the worker binds nothing.
func (w *LogWorker) Start(host string, port int) error { return nil }

func (w *LogWorker) Serve() error {
	for {
		select {
		case ev := <-w.sessions.Events():
			w.emit(ev)
		case <-w.stopped:
			w.drain()
			return nil
		}
	}
}

// drain flushes events already queued at stop time without waiting for
// new ones.
func (w *LogWorker) drain() {
	for {
		select {
		case ev := <-w.sessions.Events():
			w.emit(ev)
		default:
			return
		}
	}
}

func (w *LogWorker) emit(ev databus.Event) {
	eventsTotal.Inc()
	if ev.Data == "" {
		logger.Infof("[%s] session %s %s: %s", ev.Protocol, ev.SessionID, ev.Remote, ev.Kind)
		return
	}
	logger.Infof("[%s] session %s %s: %s %s", ev.Protocol, ev.SessionID, ev.Remote, ev.Kind, ev.Data)
}

// Stop requests the worker to finish. Idempotent.
func (w *LogWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopped) })
}
