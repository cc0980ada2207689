package models

// RunStatus is the lifecycle state of a supervised entry.
type RunStatus string

const (
	StatusPending RunStatus = "pending"
	StatusRunning RunStatus = "running"
	StatusExited  RunStatus = "exited"
	StatusStopped RunStatus = "stopped"
	StatusError   RunStatus = "error"
)

/**
 * Planned decoy service, produced by the enablement planner
 * @property {string} kind - One of the fixed set of known protocol kinds
 * @property {string} host - Bind address from the sub-template
 * @property {int} port - Bind port (0-65535)
 * @property {string} templatePath - Sub-template the spec was read from
 */
type ServiceSpec struct {
	Kind         string `json:"kind"`
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	TemplatePath string `json:"templatePath"`
}

/**
 * Planned man-in-the-middle proxy endpoint
 * @property {string} decoder - Protocol decoder identifier; empty means
 * transparent byte-level relay
 * @property {string} keyFile - TLS key path, resolved against the ssl/
 * directory sibling to the template root when relative
 */
type ProxySpec struct {
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	BackendHost string `json:"backendHost"`
	BackendPort int    `json:"backendPort"`
	Decoder     string `json:"decoder,omitempty"`
	KeyFile     string `json:"keyFile,omitempty"`
	CertFile    string `json:"certFile,omitempty"`
}

// TLSConfigured reports whether the proxy terminates TLS.
func (p *ProxySpec) TLSConfigured() bool {
	return p.KeyFile != "" && p.CertFile != ""
}

/**
 * Root template metadata, rendered by the template listing command
 * @description Missing fields default to "not available"
 */
type TemplateMeta struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
	Protocols   string `json:"protocols"`
	Creator     string `json:"creator"`
}

// ServiceDetail is one supervised entry in a fleet snapshot.
type ServiceDetail struct {
	Name   string    `json:"name"`
	Host   string    `json:"host"`
	Port   int       `json:"port"`
	Status RunStatus `json:"status"`
}

// FleetDetail is the status API's view of the supervisor.
type FleetDetail struct {
	State    string          `json:"state"`
	Services []ServiceDetail `json:"services"`
}

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
