package services

import (
	"fmt"
	"os"
	"path/filepath"

	"decoyd/internal/logger"
	"decoyd/internal/models"
	"decoyd/internal/template"
)

// ProxySubTemplate is the proxy declaration file under the template root.
const ProxySubTemplate = "proxy/proxy.xml"

// SSLDirName is the TLS material directory sibling to the template root.
const SSLDirName = "ssl"

/**
 * Plan the man-in-the-middle proxies declared by the template
 * @param {*Template} tpl - Resolved root template, read-only
 * @returns {[]ProxySpec} One spec per declaration, declared order
 * @returns {error} ErrTemplateInvalid for a malformed declaration
 * @description
 * - A missing sub-template or a disabled proxies element plans nothing
 * - Relative keyfile/certfile paths resolve against the ssl/ directory
 *   sibling to the template root
 * - An empty decoder means the proxy is a transparent byte-level relay
 */
func PlanProxies(tpl *template.Template) ([]models.ProxySpec, error) {
	path := filepath.Join(tpl.Root, filepath.FromSlash(ProxySubTemplate))
	if _, err := os.Stat(path); err != nil {
		logger.Info("proxies: unconfigured (no sub-template)")
		return nil, nil
	}

	decl, err := template.LoadProxiesDecl(path)
	if err != nil {
		return nil, fmt.Errorf("plan proxies: %w", err)
	}
	if !decl.Enabled {
		logger.Info("proxies: disabled by template")
		return nil, nil
	}

	sslDir := filepath.Join(filepath.Dir(tpl.Root), SSLDirName)
	specs := make([]models.ProxySpec, 0, len(decl.Proxies))
	for _, p := range decl.Proxies {
		spec := models.ProxySpec{
			Name:        p.Name,
			Host:        p.Host,
			Port:        p.Port,
			BackendHost: p.BackendHost,
			BackendPort: p.BackendPort,
			Decoder:     p.Decoder,
			KeyFile:     resolveSSLPath(sslDir, p.KeyFile),
			CertFile:    resolveSSLPath(sslDir, p.CertFile),
		}
		specs = append(specs, spec)
		if spec.Decoder == "" {
			logger.Infof("proxy %s: %s:%d -> %s:%d (transparent relay)",
				spec.Name, spec.Host, spec.Port, spec.BackendHost, spec.BackendPort)
		} else {
			logger.Infof("proxy %s: %s:%d -> %s:%d (decoder %s)",
				spec.Name, spec.Host, spec.Port, spec.BackendHost, spec.BackendPort, spec.Decoder)
		}
	}
	return specs, nil
}

func resolveSSLPath(sslDir, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(sslDir, file)
}
