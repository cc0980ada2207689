package proxy

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"decoyd/internal/databus"
	"decoyd/internal/logger"
	"decoyd/internal/models"
	"decoyd/internal/utils"
)

const dialTimeout = 5 * time.Second

// Decoder turns a relayed payload chunk into a loggable description.
// Decoders observe traffic; they never rewrite it.
type Decoder interface {
	Decode(direction string, payload []byte) string
}

// logDecoder is the only decoder shipped: it summarizes each chunk.
type logDecoder struct{}

func (logDecoder) Decode(direction string, payload []byte) string {
	return fmt.Sprintf("%s %d bytes", direction, len(payload))
}

// decoders is the closed decoder registry.
var decoders = map[string]Decoder{
	"log": logDecoder{},
}

/**
 * Proxy relays accepted connections to a backend target, optionally
 * terminating TLS and optionally tapping traffic through a decoder.
 * It satisfies the same start/serve/stop contract as the emulators.
 */
type Proxy struct {
	spec     models.ProxySpec
	decoder  Decoder
	tlsConf  *tls.Config
	sessions *databus.SessionManager

	ln       net.Listener
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

/**
 * Build a proxy from its planned spec
 * @param {ProxySpec} spec - Planner output; TLS paths already resolved
 * @returns {*Proxy} Startable proxy
 * @returns {error} Unreadable or mismatched TLS key material
 * @description An empty decoder id means transparent byte-level relay;
 * an unknown id falls back to transparent relay with a warning.
 */
func New(spec models.ProxySpec, sessions *databus.SessionManager) (*Proxy, error) {
	p := &Proxy{
		spec:     spec,
		sessions: sessions,
		stopped:  make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}

	if spec.Decoder != "" {
		dec, ok := decoders[spec.Decoder]
		if !ok {
			logger.Warnf("proxy %s: unknown decoder %q, relaying transparently", spec.Name, spec.Decoder)
		} else {
			p.decoder = dec
		}
	}

	if spec.TLSConfigured() {
		cert, err := tls.LoadX509KeyPair(spec.CertFile, spec.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("proxy %s: load TLS material: %w", spec.Name, err)
		}
		p.tlsConf = &tls.Config{Certificates: []tls.Certificate{cert}}
	}
	return p, nil
}

func (p *Proxy) Name() string { return p.spec.Name }

// Addr returns the bound listener address, nil before Start.
func (p *Proxy) Addr() net.Addr {
	if p.ln == nil {
		return nil
	}
	return p.ln.Addr()
}

func (p *Proxy) Start(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("proxy %s: bind %s:%d: %w", p.spec.Name, host, port, err)
	}
	if p.tlsConf != nil {
		ln = tls.NewListener(ln, p.tlsConf)
	}
	p.ln = ln
	logger.Infof("proxy %s listening on %s, backend %s:%d",
		p.spec.Name, ln.Addr(), p.spec.BackendHost, p.spec.BackendPort)
	return nil
}

func (p *Proxy) Serve() error {
	if p.ln == nil {
		return fmt.Errorf("proxy %s: Serve before Start", p.spec.Name)
	}
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			p.wg.Wait()
			select {
			case <-p.stopped:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("proxy %s: accept: %w", p.spec.Name, err)
		}
		p.wg.Add(1)
		go p.relay(conn)
	}
}

func (p *Proxy) track(conn net.Conn) {
	p.connMu.Lock()
	p.conns[conn] = struct{}{}
	p.connMu.Unlock()
	// A connection accepted in the same instant as Stop may be tracked
	// after the close sweep; either side closes it.
	select {
	case <-p.stopped:
		conn.Close()
	default:
	}
}

func (p *Proxy) untrack(conn net.Conn) {
	p.connMu.Lock()
	delete(p.conns, conn)
	p.connMu.Unlock()
}

func (p *Proxy) relay(client net.Conn) {
	defer p.wg.Done()
	defer client.Close()
	p.track(client)
	defer p.untrack(client)

	remote := client.RemoteAddr().String()
	sess := p.sessions.GetSession(p.spec.Name, utils.SplitHostIP(remote), remote)
	sess.Log("connect", "")
	defer sess.Log("disconnect", "")

	backendAddr := net.JoinHostPort(p.spec.BackendHost, strconv.Itoa(p.spec.BackendPort))
	backend, err := net.DialTimeout("tcp", backendAddr, dialTimeout)
	if err != nil {
		sess.Log("error", fmt.Sprintf("backend %s unreachable: %v", backendAddr, err))
		logger.Warnf("proxy %s: dial backend %s: %v", p.spec.Name, backendAddr, err)
		return
	}
	defer backend.Close()

	done := make(chan struct{}, 2)
	go p.pipe(backend, client, sess, "client->backend", done)
	go p.pipe(client, backend, sess, "backend->client", done)
	// Either direction closing tears the pair down.
	<-done
}

func (p *Proxy) pipe(dst, src net.Conn, sess *databus.Session, direction string, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	defer dst.Close()

	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if p.decoder != nil {
				sess.Log("traffic", p.decoder.Decode(direction, buf[:n]))
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Stop closes the listener and every live client connection, which
// ends the accept loop and tears down active relays. Idempotent.
func (p *Proxy) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopped)
		if p.ln != nil {
			p.ln.Close()
		}
		p.connMu.Lock()
		for conn := range p.conns {
			conn.Close()
		}
		p.connMu.Unlock()
	})
}
