package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"decoyd/internal/config"
	"decoyd/internal/emulators"
	"decoyd/internal/logger"
	"decoyd/internal/models"
	"decoyd/internal/template"
	"decoyd/internal/utils"
)

// ErrUnsafeBind marks a non-loopback bind target rejected by the test
// environment safety gate. The cmd layer maps it to exit code 3.
var ErrUnsafeBind = errors.New("unsafe bind target")

/**
 * Plan the decoy services to start for a resolved template
 * @param {*AppConfig} cfg - Runtime configuration (environment gate)
 * @param {*Template} tpl - Resolved root template, read-only
 * @param {bool} force - Bypass the loopback-only safety gate
 * @returns {[]ServiceSpec} One spec per enabled kind, in the fixed
 * enumeration order of the known kinds
 * @returns {error} ErrTemplateInvalid for a malformed sub-template,
 * ErrUnsafeBind for a rejected bind target; both abort the startup
 * @description
 * - A kind without a sub-template is unconfigured, logged and skipped
 * - enabled="False" is an informational skip, planning continues
 * - In the test environment a non-loopback host is fatal unless forced
 */
func PlanServices(cfg *config.AppConfig, tpl *template.Template, force bool) ([]models.ServiceSpec, error) {
	var specs []models.ServiceSpec
	for _, kind := range emulators.KnownKinds {
		path := filepath.Join(tpl.Root, kind.Name, kind.Name+".xml")
		if _, err := os.Stat(path); err != nil {
			logger.Infof("%s: unconfigured (no sub-template)", kind.Name)
			continue
		}

		decl, err := template.LoadServiceDecl(path, kind.Name)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", kind.Name, err)
		}
		if !decl.Enabled {
			logger.Infof("%s: disabled by template", kind.Name)
			continue
		}

		if cfg.IsTestEnv() && !utils.IsLoopbackHost(decl.Host) {
			if !force {
				return nil, fmt.Errorf("%w: %s wants %s:%d but the test environment only allows loopback (use --force to override)",
					ErrUnsafeBind, kind.Name, decl.Host, decl.Port)
			}
			logger.Warnf("%s: non-loopback bind %s:%d allowed by --force", kind.Name, decl.Host, decl.Port)
		}

		specs = append(specs, models.ServiceSpec{
			Kind:         kind.Name,
			Enabled:      true,
			Host:         decl.Host,
			Port:         decl.Port,
			TemplatePath: path,
		})
		logger.Infof("%s: enabled on %s:%d", kind.Name, decl.Host, decl.Port)
	}
	return specs, nil
}
