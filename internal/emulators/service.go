package emulators

import (
	"decoyd/internal/databus"
	"decoyd/internal/vfs"
)

/**
 * Service is the contract every supervised task satisfies: decoy
 * emulators, proxies and the log worker alike.
 * @description Start binds synchronously so the supervisor sees bind
 * failures before the task is considered started. Serve blocks until
 * Stop is called or the service breaks. Stop is idempotent, requests
 * cessation without blocking, and must eventually make Serve return.
 */
type Service interface {
	Name() string
	Start(host string, port int) error
	Serve() error
	Stop()
}

// Deps bundles the shared collaborators handed to every emulator.
type Deps struct {
	Bus      *databus.Databus
	Sessions *databus.SessionManager
	FS       *vfs.VFS
}

// Factory builds one emulator instance for a planned kind.
type Factory func(deps Deps) *TCPEmulator

// Kind binds a known protocol kind identifier to its factory.
type Kind struct {
	Name string
	New  Factory
}

// KnownKinds is the closed, compile-time set of supported protocol
// emulators. The slice order is the planner's evaluation order, so it
// also fixes startup order and log ordering.
var KnownKinds = []Kind{
	{Name: "modbus", New: newModbus},
	{Name: "s7comm", New: newS7comm},
	{Name: "http", New: newHTTP},
	{Name: "ftp", New: newFTP},
	{Name: "telnet", New: newTelnet},
}

// Lookup returns the factory for a kind identifier.
func Lookup(name string) (Factory, bool) {
	for _, k := range KnownKinds {
		if k.Name == name {
			return k.New, true
		}
	}
	return nil, false
}
