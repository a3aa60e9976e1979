package dockyard

import (
	"fmt"
	"os"
	"sort"
)

// hostROBinds are read-only system paths bound into every Relaxed or
// Strict dockyard when present on the host.
var hostROBinds = []string{"/usr/bin", "/usr/sbin", "/usr/lib", "/usr/lib64", "/bin", "/sbin", "/lib", "/lib64"}

var hostROFiles = []string{
	"/etc/ld.so.conf", "/etc/ld.so.cache", "/etc/resolv.conf", "/etc/hosts", "/etc/passwd", "/etc/group",
}

// BuildArgs constructs the bwrap argv for a dockyard invocation. It is
// exported so callers (and tests) can inspect the exact sandbox layout
// without actually invoking bwrap.
func BuildArgs(cfg Config, command string, args []string) []string {
	var out []string

	for _, p := range hostROBinds {
		if pathExists(p) {
			out = append(out, "--ro-bind", p, p)
		}
	}
	for _, p := range hostROFiles {
		if pathExists(p) {
			out = append(out, "--ro-bind", p, p)
		}
	}

	out = append(out, "--bind", cfg.SrcDir, "/build")
	out = append(out, "--bind", cfg.PkgDir, "/output")

	if cfg.FilesDir != "" && pathExists(cfg.FilesDir) {
		out = append(out, "--ro-bind", cfg.FilesDir, "/files")
	}
	if cfg.MainPkgDir != "" && pathExists(cfg.MainPkgDir) {
		out = append(out, "--ro-bind", cfg.MainPkgDir, "/main-pkg")
	}

	binds := append([]Bind(nil), cfg.ExtraBinds...)
	sort.Slice(binds, func(i, j int) bool { return binds[i].Dest < binds[j].Dest })
	for _, b := range binds {
		if !pathExists(b.Host) {
			continue
		}
		if b.ReadOnly {
			out = append(out, "--ro-bind", b.Host, b.Dest)
		} else {
			out = append(out, "--bind", b.Host, b.Dest)
		}
	}

	out = append(out, "--dev", "/dev")
	out = append(out, "--proc", "/proc")
	out = append(out, "--tmpfs", "/tmp")

	switch cfg.Level {
	case LevelStrict:
		out = append(out, "--unshare-all", "--unshare-net")
	case LevelRelaxed:
		out = append(out, "--unshare-user", "--unshare-pid", "--unshare-uts")
	}

	out = append(out, "--die-with-parent")
	out = append(out, "--chdir", "/build")

	envKeys := make([]string, 0, len(cfg.Env))
	envMap := make(map[string]string, len(cfg.Env))
	for _, v := range cfg.Env {
		if _, seen := envMap[v.Key]; !seen {
			envKeys = append(envKeys, v.Key)
		}
		envMap[v.Key] = v.Value
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		out = append(out, "--setenv", k, envMap[k])
	}
	out = append(out, "--setenv", "PATH", "/usr/bin:/bin:/usr/sbin:/sbin")

	out = append(out, "--")
	out = append(out, command)
	out = append(out, args...)
	return out
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// DryRunCommand returns the full argv (bwrap path included) that Run
// would execute, without running it.
func DryRunCommand(cfg Config, bwrapPath, command string, args []string) []string {
	full := make([]string, 0, len(args)+8)
	full = append(full, bwrapPath)
	full = append(full, BuildArgs(cfg, command, args)...)
	return full
}

// describeLevel is a small helper for log lines and error messages.
func describeLevel(l Level) string {
	switch l {
	case LevelNone:
		return "no isolation (running directly on the host)"
	case LevelRelaxed:
		return "relaxed isolation (namespaces, network allowed)"
	case LevelStrict:
		return "strict isolation (namespaces + network blocked)"
	default:
		return fmt.Sprintf("unknown level %q", l)
	}
}
