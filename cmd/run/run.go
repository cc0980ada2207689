package run

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"decoyd/cmd/root"
	"decoyd/controllers"
	"decoyd/internal/config"
	"decoyd/internal/databus"
	"decoyd/internal/emulators"
	"decoyd/internal/logger"
	"decoyd/internal/proxy"
	"decoyd/internal/template"
	"decoyd/internal/utils"
	"decoyd/internal/vfs"
	"decoyd/services"
)

// Process exit codes. 0 is success, 1 a fatal I/O or validation error,
// 3 an invalid invocation or unsafe configuration.
const (
	exitFatal  = 1
	exitUnsafe = 3
)

var (
	templateFlag string
	configFlag   string
	forceFlag    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch and supervise the decoy fleet",
	Long:  `Resolves the named template, plans the enabled services and proxies, and supervises them until a termination signal or a crash`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runFleet())
	},
}

func runFleet() int {
	cfg, err := config.Load(configFlag)
	if err != nil {
		logger.Errorf("configuration: %v", err)
		return exitFatal
	}
	logger.InitLogger(cfg.Log.Path, cfg.Log.Level)

	if utils.RunningAsRoot() && !forceFlag {
		logger.Error("refusing to run with root privileges (use --force to override)")
		return exitUnsafe
	}

	tpl, err := template.Resolve(templateFlag, cfg.Templates.Root)
	if err != nil {
		logger.Errorf("template: %v", err)
		return exitFatal
	}
	logger.Infof("template %s resolved at %s", tpl.Meta.Name, tpl.Root)

	// Shared backing resources, created once before any service starts.
	bus := databus.NewDatabus()
	bus.Seed(tpl.Databus)
	sessions := databus.NewSessionManager()
	fs, err := vfs.Initialize(tpl.Root)
	if err != nil {
		logger.Errorf("virtual filesystem: %v", err)
		return exitFatal
	}

	specs, err := services.PlanServices(cfg, tpl, forceFlag)
	if err != nil {
		logger.Errorf("planning: %v", err)
		if errors.Is(err, services.ErrUnsafeBind) {
			return exitUnsafe
		}
		return exitFatal
	}
	proxySpecs, err := services.PlanProxies(tpl)
	if err != nil {
		logger.Errorf("planning: %v", err)
		return exitFatal
	}

	sup := services.NewSupervisor(cfg, fs.Close)

	if len(specs)+len(proxySpecs) > 0 {
		sup.Add(services.LogWorkerName, services.NewLogWorker(sessions), "", 0)
	}

	deps := emulators.Deps{Bus: bus, Sessions: sessions, FS: fs}
	for _, spec := range specs {
		factory, ok := emulators.Lookup(spec.Kind)
		if !ok {
			logger.Errorf("no emulator registered for kind %s", spec.Kind)
			return exitFatal
		}
		sup.Add(spec.Kind, factory(deps), spec.Host, spec.Port)
	}
	for _, spec := range proxySpecs {
		p, err := proxy.New(spec, sessions)
		if err != nil {
			logger.Errorf("proxy %s: %v", spec.Name, err)
			return exitFatal
		}
		sup.Add(spec.Name, p, spec.Host, spec.Port)
	}

	if cfg.Server.Address != "" {
		startStatusAPI(cfg, sup, tpl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		logger.Errorf("supervisor: %v", err)
		return exitFatal
	}
	return 0
}

// startStatusAPI serves the management plane in its own goroutine; it
// is not part of the supervision set and dies with the process.
func startStatusAPI(cfg *config.AppConfig, sup *services.Supervisor, tpl *template.Template) {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	controllers.NewAPIController(sup, tpl.Meta).RegisterRoutes(router)

	go func() {
		logger.Infof("status API listening on %s", cfg.Server.Address)
		if err := router.Run(cfg.Server.Address); err != nil {
			logger.Errorf("status API: %v", err)
		}
	}()
}

func init() {
	root.RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&templateFlag, "template", "t", "default", "template name or directory")
	runCmd.Flags().StringVarP(&configFlag, "config", "c", "", "runtime config file")
	runCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "override the root privilege and loopback-only safety gates")

	runCmd.Example = `  decoyd run -t default
  decoyd run -t ./templates/plant -c decoyd.yaml`
}
