package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wright-pm/wright/pkg/installer"
	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/telemetry"
	"github.com/wright-pm/wright/pkg/wconfig"
)

// Global flags shared by every subcommand.
var (
	configPath string
	rootDir    string
	reposPath  string
	jsonOutput bool
)

// app bundles the store and installer a command RunE needs, plus the
// structured logger threaded through ctx. Every subcommand opens one of
// these at the top of its RunE and closes it via app.close before
// returning, since wright is a one-shot CLI rather than a daemon.
type app struct {
	cfg     *wconfig.Config
	st      *store.Store
	in      *installer.Installer
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
}

func newApp(ctx context.Context) (*app, context.Context, error) {
	cfg, err := wconfig.Load(configPath)
	if err != nil {
		return nil, ctx, err
	}

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceName = "wright"
	tel, err := telemetry.NewTelemetry(telCfg)
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	ctx = tel.WithContext(ctx)
	logger := telemetry.FromContext(ctx).NewComponentLogger("wright")

	st, err := store.Open(ctx, store.Config{Path: cfg.General.DBPath})
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, ctx, err
	}

	root := rootDir
	if root == "" {
		root = "/"
	}
	in, err := installer.New(st, installer.Config{
		RootDir:   root,
		BackupDir: filepath.Join(cfg.General.CacheDir, "backups"),
	})
	if err != nil {
		_ = st.Close()
		_ = tel.Shutdown(ctx)
		return nil, ctx, err
	}

	return &app{cfg: cfg, st: st, in: in, tel: tel, logger: logger}, ctx, nil
}

func (a *app) close(ctx context.Context) {
	_ = a.st.Close()
	_ = a.tel.Shutdown(ctx)
}

// repos loads the configured local archive repositories, defaulting to
// repos.toml next to wright.toml when --repos is unset.
func (a *app) repos() ([]wconfig.Repo, error) {
	path := reposPath
	if path == "" {
		path = filepath.Join(filepath.Dir(configPath), "repos.toml")
	}
	return wconfig.LoadRepos(path)
}
