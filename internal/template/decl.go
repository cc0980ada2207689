package template

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

/**
 * Per-kind sub-template declaration
 * @description Enabled is only meaningful after the document passed
 * validation; host and port are only required when enabled.
 */
type ServiceDecl struct {
	Kind    string
	Enabled bool
	Host    string
	Port    int
	Path    string
}

type kindDoc struct {
	XMLName xml.Name
	Enabled string `xml:"enabled,attr"`
	Host    string `xml:"host,attr"`
	Port    string `xml:"port,attr"`
}

/**
 * Load and validate a kind-named sub-template
 * @param {string} path - Sub-template file path
 * @param {string} kind - Expected root element name
 * @returns {*ServiceDecl} Validated declaration
 * @returns {error} ErrTemplateInvalid with the violation list
 * @description Validation rules: root element named after the kind,
 * enabled a boolean literal, and when enabled a non-empty host plus a
 * port representable as a transport port (0-65535).
 */
func LoadServiceDecl(path, kind string) (*ServiceDecl, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sub-template: %w", err)
	}

	var doc kindDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Path: path, Violations: []string{err.Error()}}
	}

	var violations []string
	if doc.XMLName.Local != kind {
		violations = append(violations, fmt.Sprintf("root element is <%s>, want <%s>", doc.XMLName.Local, kind))
	}
	enabled, err := ParseBoolLiteral(doc.Enabled)
	if err != nil {
		violations = append(violations, fmt.Sprintf("enabled attribute: %v", err))
	}

	decl := &ServiceDecl{Kind: kind, Enabled: enabled, Path: path}
	if enabled {
		decl.Host = strings.TrimSpace(doc.Host)
		if decl.Host == "" {
			violations = append(violations, "host attribute missing or empty")
		}
		port, perr := ParsePort(doc.Port)
		if perr != nil {
			violations = append(violations, fmt.Sprintf("port attribute: %v", perr))
		}
		decl.Port = port
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Path: path, Violations: violations}
	}
	return decl, nil
}

/**
 * Proxy sub-template: a proxies element holding zero or more proxy
 * declarations in declared order.
 */
type ProxiesDecl struct {
	Enabled bool
	Proxies []ProxyDecl
}

type ProxyDecl struct {
	Name        string
	Host        string
	Port        int
	BackendHost string
	BackendPort int
	Decoder     string
	KeyFile     string
	CertFile    string
}

type proxiesDoc struct {
	XMLName xml.Name   `xml:"proxies"`
	Enabled string     `xml:"enabled,attr"`
	Proxies []proxyDoc `xml:"proxy"`
}

type proxyDoc struct {
	Name      string `xml:"name,attr"`
	Host      string `xml:"host,attr"`
	Port      string `xml:"port,attr"`
	KeyFile   string `xml:"keyfile,attr"`
	CertFile  string `xml:"certfile,attr"`
	ProxyHost string `xml:"proxy_host"`
	ProxyPort string `xml:"proxy_port"`
	Decoder   string `xml:"decoder"`
}

/**
 * Load and validate the proxy sub-template
 * @returns {*ProxiesDecl} Declarations in document order
 * @returns {error} ErrTemplateInvalid with the violation list
 * @description A proxy without a backend target is meaningless, so a
 * missing or malformed proxy_host/proxy_port is a violation. TLS key
 * and cert must be declared together or not at all.
 */
func LoadProxiesDecl(path string) (*ProxiesDecl, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxy sub-template: %w", err)
	}

	var doc proxiesDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Path: path, Violations: []string{err.Error()}}
	}

	var violations []string
	enabled, err := ParseBoolLiteral(doc.Enabled)
	if err != nil {
		violations = append(violations, fmt.Sprintf("enabled attribute: %v", err))
	}

	decl := &ProxiesDecl{Enabled: enabled}
	for i, p := range doc.Proxies {
		label := strings.TrimSpace(p.Name)
		if label == "" {
			label = fmt.Sprintf("proxy #%d", i+1)
			violations = append(violations, fmt.Sprintf("%s: name attribute missing", label))
		}

		port, perr := ParsePort(p.Port)
		if perr != nil {
			violations = append(violations, fmt.Sprintf("%s: port attribute: %v", label, perr))
		}

		backendHost := strings.TrimSpace(p.ProxyHost)
		if backendHost == "" {
			violations = append(violations, fmt.Sprintf("%s: proxy_host missing or empty", label))
		}
		backendPort, perr := ParsePort(p.ProxyPort)
		if perr != nil {
			violations = append(violations, fmt.Sprintf("%s: proxy_port: %v", label, perr))
		}

		key := strings.TrimSpace(p.KeyFile)
		cert := strings.TrimSpace(p.CertFile)
		if (key == "") != (cert == "") {
			violations = append(violations, fmt.Sprintf("%s: keyfile and certfile must be declared together", label))
		}

		decl.Proxies = append(decl.Proxies, ProxyDecl{
			Name:        strings.TrimSpace(p.Name),
			Host:        strings.TrimSpace(p.Host),
			Port:        port,
			BackendHost: backendHost,
			BackendPort: backendPort,
			Decoder:     strings.TrimSpace(p.Decoder),
			KeyFile:     key,
			CertFile:    cert,
		})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Path: path, Violations: violations}
	}
	return decl, nil
}

// ParseBoolLiteral accepts the template boolean literals True/False in
// any casing.
func ParseBoolLiteral(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, fmt.Errorf("missing boolean literal")
	default:
		return false, fmt.Errorf("%q is not a boolean literal", s)
	}
}

// ParsePort parses an integer literal and checks the transport port range.
func ParsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing integer literal")
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%d outside 0-65535", port)
	}
	return port, nil
}
