package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wright-pm/wright/pkg/builder"
	"github.com/wright-pm/wright/pkg/installer"
	"github.com/wright-pm/wright/pkg/orchestrator"
	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/telemetry"
	"github.com/wright-pm/wright/pkg/wconfig"
)

// Global flags shared by every subcommand.
var (
	configPath string
	holdDir    string
	installRun bool
)

// app bundles what a wbuild subcommand needs: the loaded configuration,
// plan cache, builder, and (unless the subcommand is read-only) the
// installer and store needed for --install interleaving.
type app struct {
	cfg    *wconfig.Config
	cache  *plan.Cache
	bld    *builder.Builder
	st     *store.Store
	in     *installer.Installer
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
}

func newApp(ctx context.Context, openStore bool) (*app, context.Context, error) {
	cfg, err := wconfig.Load(configPath)
	if err != nil {
		return nil, ctx, err
	}

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceName = "wbuild"
	tel, err := telemetry.NewTelemetry(telCfg)
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	ctx = tel.WithContext(ctx)
	logger := telemetry.FromContext(ctx).NewComponentLogger("wbuild")

	dir := holdDir
	if dir == "" {
		dir = cfg.General.PlansDir
	}
	cache, err := plan.Load(dir)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, ctx, err
	}

	bld, err := builder.New(cfg)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, ctx, err
	}

	a := &app{cfg: cfg, cache: cache, bld: bld, tel: tel, logger: logger}

	if openStore {
		st, err := store.Open(ctx, store.Config{Path: cfg.General.DBPath})
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, ctx, err
		}
		in, err := installer.New(st, installer.Config{
			RootDir:   "/",
			BackupDir: filepath.Join(cfg.General.CacheDir, "backups"),
		})
		if err != nil {
			_ = st.Close()
			_ = tel.Shutdown(ctx)
			return nil, ctx, err
		}
		a.st, a.in = st, in
	}

	return a, ctx, nil
}

func (a *app) close(ctx context.Context) {
	if a.st != nil {
		_ = a.st.Close()
	}
	_ = a.tel.Shutdown(ctx)
}

// orchestrator builds an Orchestrator over this app's cache, config, and
// builder. The installer passed on is nil when a.in is nil, as for
// --lint/--check, which never installs anything.
func (a *app) orchestrator() *orchestrator.Orchestrator {
	var inst orchestrator.Installer
	if a.in != nil {
		inst = a.in
	}
	return orchestrator.New(a.cfg, a.cache, a.st, a.bld, inst)
}
