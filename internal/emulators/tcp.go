package emulators

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"decoyd/internal/databus"
	"decoyd/internal/logger"
	"decoyd/internal/utils"
)

// Handler drives one accepted connection until it is done. The session
// is already registered when the handler runs.
type Handler func(conn net.Conn, sess *databus.Session, deps Deps)

/**
 * TCPEmulator is the shared listener core behind every decoy kind:
 * accept loop, per-connection session registration and event logging.
 * Kinds differ only in their Handler.
 */
type TCPEmulator struct {
	kind    string
	handler Handler
	deps    Deps

	ln       net.Listener
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

func newTCPEmulator(kind string, handler Handler, deps Deps) *TCPEmulator {
	return &TCPEmulator{
		kind:    kind,
		handler: handler,
		deps:    deps,
		stopped: make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

func (e *TCPEmulator) Name() string { return e.kind }

// Addr returns the bound listener address, nil before Start.
func (e *TCPEmulator) Addr() net.Addr {
	if e.ln == nil {
		return nil
	}
	return e.ln.Addr()
}

/**
 * Start binds the emulator's listener
 * @param {string} host - Bind address from the service spec
 * @param {int} port - Bind port; 0 lets the kernel pick (tests)
 * @returns {error} Bind failure, e.g. port already in use
 */
func (e *TCPEmulator) Start(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("%s: bind %s:%d: %w", e.kind, host, port, err)
	}
	e.ln = ln
	logger.Infof("%s decoy listening on %s", e.kind, ln.Addr())
	return nil
}

/**
 * Serve runs the accept loop until Stop closes the listener
 * @returns {error} nil after a requested stop, the accept error when
 * the listener breaks unexpectedly
 */
func (e *TCPEmulator) Serve() error {
	if e.ln == nil {
		return fmt.Errorf("%s: Serve before Start", e.kind)
	}
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			e.wg.Wait()
			select {
			case <-e.stopped:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s: accept: %w", e.kind, err)
		}
		e.wg.Add(1)
		go e.handle(conn)
	}
}

func (e *TCPEmulator) track(conn net.Conn) {
	e.connMu.Lock()
	e.conns[conn] = struct{}{}
	e.connMu.Unlock()
	// A connection accepted in the same instant as Stop may be tracked
	// after the close sweep; either side closes it.
	select {
	case <-e.stopped:
		conn.Close()
	default:
	}
}

func (e *TCPEmulator) untrack(conn net.Conn) {
	e.connMu.Lock()
	delete(e.conns, conn)
	e.connMu.Unlock()
}

func (e *TCPEmulator) handle(conn net.Conn) {
	defer e.wg.Done()
	defer conn.Close()
	e.track(conn)
	defer e.untrack(conn)

	remote := conn.RemoteAddr().String()
	sess := e.deps.Sessions.GetSession(e.kind, utils.SplitHostIP(remote), remote)
	sess.Log("connect", "")
	defer sess.Log("disconnect", "")

	e.handler(conn, sess, e.deps)
}

// Stop closes the listener and every live connection, which ends the
// accept loop and unblocks handlers stuck in reads. Idempotent.
func (e *TCPEmulator) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopped)
		if e.ln != nil {
			e.ln.Close()
		}
		e.connMu.Lock()
		for conn := range e.conns {
			conn.Close()
		}
		e.connMu.Unlock()
	})
}
