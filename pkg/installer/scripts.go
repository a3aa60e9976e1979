package installer

import (
	"context"
	"os/exec"

	"github.com/wright-pm/wright/pkg/werr"
)

// runInstallScript executes one of a package's post_install/post_upgrade/
// pre_remove bodies via /bin/sh, run with its working directory and ROOT
// environment variable pointed at the live install root so a script can
// tell a chroot build from a real installation apart. An empty body is a
// no-op: most packages carry none of the three hooks.
func runInstallScript(ctx context.Context, script, rootDir, pkgName string) error {
	if script == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-e", "-c", script)
	cmd.Dir = rootDir
	cmd.Env = append(cmd.Environ(), "ROOT="+rootDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return werr.New(werr.KindTransaction, "install script failed: "+string(out), err).WithPackage(pkgName)
	}
	return nil
}
