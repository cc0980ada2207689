package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"decoyd/internal/config"
	"decoyd/internal/emulators"
	"decoyd/internal/logger"
	"decoyd/internal/models"
)

// ErrServiceCrashed marks a task that terminated while the fleet was
// running. The whole process exits non-zero; restart is an external
// supervisor's responsibility.
var ErrServiceCrashed = errors.New("service task terminated unexpectedly")

// State is the supervisor's lifecycle position.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// taskExit is the fan-in record of one task finishing, for any reason.
type taskExit struct {
	entry *RunningService
	err   error
}

/**
 * RunningService pairs a service instance with its task handle
 * @description Owned exclusively by the supervisor; the done channel
 * carries the task's Serve result and is buffered so the task never
 * blocks on a coordinator that has moved on.
 */
type RunningService struct {
	name string
	host string
	port int
	svc  emulators.Service

	done chan error

	mu     sync.Mutex
	status models.RunStatus
}

func (e *RunningService) setStatus(st models.RunStatus) {
	e.mu.Lock()
	e.status = st
	e.mu.Unlock()
}

func (e *RunningService) Status() models.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *RunningService) detail() models.ServiceDetail {
	return models.ServiceDetail{
		Name:   e.name,
		Host:   e.host,
		Port:   e.port,
		Status: e.Status(),
	}
}

/**
 * Supervisor starts every planned entry as a concurrent task, watches
 * for unexpected task death with fail-fast semantics, and drives the
 * coordinated shutdown.
 * @description The supervision set is append-only before Run and only
 * mutated by the supervisor's own goroutine afterwards; insertion
 * order is startup order and also teardown order.
 */
type Supervisor struct {
	stopTimeout    time.Duration
	releaseBacking func()
	releaseOnce    sync.Once

	mu      sync.RWMutex
	state   State
	entries []*RunningService

	exits chan taskExit
}

/**
 * Create a supervisor
 * @param {*AppConfig} cfg - Runtime configuration (stop timeout)
 * @param {func} releaseBacking - Releases the shared backing resources
 * (virtual filesystem); invoked exactly once when the run ends,
 * whatever the trigger. May be nil.
 */
func NewSupervisor(cfg *config.AppConfig, releaseBacking func()) *Supervisor {
	return &Supervisor{
		stopTimeout:    cfg.Shutdown.StopTimeout,
		releaseBacking: releaseBacking,
		state:          StateIdle,
	}
}

// Add appends a planned entry to the supervision set. Must be called
// before Run.
func (s *Supervisor) Add(name string, svc emulators.Service, host string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &RunningService{
		name:   name,
		host:   host,
		port:   port,
		svc:    svc,
		done:   make(chan error, 1),
		status: models.StatusPending,
	})
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot renders the supervision set for the status API.
func (s *Supervisor) Snapshot() models.FleetDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	detail := models.FleetDetail{State: string(s.state)}
	for _, e := range s.entries {
		detail.Services = append(detail.Services, e.detail())
	}
	return detail
}

func (s *Supervisor) release() {
	s.releaseOnce.Do(func() {
		if s.releaseBacking != nil {
			s.releaseBacking()
		}
	})
}

/**
 * Run drives the whole supervised lifetime:
 * Idle -> Starting -> Running -> Stopping -> Stopped
 * @param {context.Context} ctx - Cancellation is the external
 * termination request (wired to SIGINT/SIGTERM by the run command)
 * @returns {error} nil after a clean run; a start failure (with all
 * already-started entries stopped first); or ErrServiceCrashed when a
 * task dies while running - in that case no graceful teardown of the
 * remaining tasks is attempted
 */
func (s *Supervisor) Run(ctx context.Context) error {
	entries := s.supervisionSet()
	s.exits = make(chan taskExit, len(entries))

	s.setState(StateStarting)
	for i, e := range entries {
		if err := e.svc.Start(e.host, e.port); err != nil {
			e.setStatus(models.StatusError)
			// No partial fleet may be left dangling.
			s.abortStarted(entries[:i])
			s.setState(StateStopped)
			s.release()
			return fmt.Errorf("start %s: %w", e.name, err)
		}
		s.watch(e)
		e.setStatus(models.StatusRunning)
		serviceUp.WithLabelValues(e.name).Set(1)
	}

	s.setState(StateRunning)
	fleetSize.Set(float64(len(entries)))

	if len(entries) == 0 {
		logger.Warn("no services or proxies enabled, nothing to supervise")
		s.setState(StateStopped)
		s.release()
		return nil
	}
	logger.Infof("fleet running: %d supervised task(s)", len(entries))

	select {
	case ex := <-s.exits:
		// Any completion before a stop request is a crash. In a
		// deception system an unexplained death may indicate
		// exploitation, so the whole process goes down.
		ex.entry.setStatus(models.StatusError)
		serviceUp.WithLabelValues(ex.entry.name).Set(0)
		logger.Errorf("service %s terminated unexpectedly: %v", ex.entry.name, ex.err)
		s.setState(StateStopped)
		s.release()
		if ex.err != nil {
			return fmt.Errorf("%w: %s: %v", ErrServiceCrashed, ex.entry.name, ex.err)
		}
		return fmt.Errorf("%w: %s", ErrServiceCrashed, ex.entry.name)
	case <-ctx.Done():
	}

	s.setState(StateStopping)
	s.stopAll(entries)
	s.setState(StateStopped)
	s.release()
	logger.Info("fleet stopped")
	return nil
}

func (s *Supervisor) supervisionSet() []*RunningService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*RunningService, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// watch registers the fail-fast crash observer for one started entry.
// The exits channel has capacity for every task, so a task's exit
// record is never lost and never blocks the task goroutine.
func (s *Supervisor) watch(e *RunningService) {
	go func() {
		err := e.svc.Serve()
		e.done <- err
		s.exits <- taskExit{entry: e, err: err}
	}()
}

// stopAll tears the fleet down one entry at a time, in registration
// order: request the stop, then wait for that task to actually finish
// before moving to the next. A hung stop is bounded by stopTimeout.
func (s *Supervisor) stopAll(entries []*RunningService) {
	for _, e := range entries {
		e.svc.Stop()
		select {
		case err := <-e.done:
			if err != nil {
				logger.Warnf("service %s stopped with error: %v", e.name, err)
			}
			e.setStatus(models.StatusStopped)
		case <-time.After(s.stopTimeout):
			logger.Warnf("service %s did not finish within %s, moving on", e.name, s.stopTimeout)
			e.setStatus(models.StatusError)
		}
		serviceUp.WithLabelValues(e.name).Set(0)
	}
	fleetSize.Set(0)
}

// abortStarted unwinds a partially started fleet in reverse order.
func (s *Supervisor) abortStarted(started []*RunningService) {
	for i := len(started) - 1; i >= 0; i-- {
		e := started[i]
		e.svc.Stop()
		select {
		case <-e.done:
		case <-time.After(s.stopTimeout):
			logger.Warnf("service %s did not finish during startup abort", e.name)
		}
		e.setStatus(models.StatusStopped)
		serviceUp.WithLabelValues(e.name).Set(0)
	}
}
