package builder

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

// CacheKey computes spec §4.8's build-cache key: a SHA-256 digest over
// name, version, release, every source URI+checksum, every resolved
// lifecycle script and its executor in pipeline order, and the global
// CFLAGS/CXXFLAGS — any change to these invalidates the key.
func (b *Builder) CacheKey(p *plan.Plan, phase plan.Phase) string {
	h := sha256.New()
	fmt.Fprintf(h, "name=%s\nversion=%s\nrelease=%d\n", p.Name, p.Version.String(), p.Release)
	for _, s := range p.Sources {
		fmt.Fprintf(h, "source=%s sha256=%s\n", s.URI, s.SHA256)
	}
	stages := p.EffectiveStages(phase)
	for _, name := range p.StageOrder {
		for _, key := range []string{"pre_" + name, name, "post_" + name} {
			if st, ok := stages[key]; ok {
				fmt.Fprintf(h, "stage=%s executor=%s script=%s\n", key, st.Executor, st.Script)
			}
		}
	}
	fmt.Fprintf(h, "cflags=%s\ncxxflags=%s\n", b.cfg.Build.CFlags, b.cfg.Build.CXXFlags)
	return hex.EncodeToString(h.Sum(nil))
}

func (b *Builder) cachePath(key string) string {
	return filepath.Join(b.cfg.General.CacheDir, "build-cache", key+".tar.zst")
}

// DeleteCacheEntry removes the cache archive for key, if any. Used by
// --clean before a build so a stale snapshot is never restored.
func (b *Builder) DeleteCacheEntry(key string) error {
	err := os.Remove(b.cachePath(key))
	if err != nil && !os.IsNotExist(err) {
		return werr.New(werr.KindBuild, "failed to delete cache entry", err)
	}
	return nil
}

// cacheDirs enumerates the directories a cache snapshot captures: pkg/,
// log/, and each pkg-<split>/ — never src/, which is cheap to re-extract
// and often far larger than the staged output.
func cacheDirs(pkgDir, logDir string, splitDirs map[string]string) map[string]string {
	dirs := map[string]string{"pkg": pkgDir, "log": logDir}
	for name, dir := range splitDirs {
		dirs["pkg-"+name] = dir
	}
	return dirs
}

// SaveCacheEntry snapshots pkg/, log/, and every split pkg dir into the
// cache archive for key.
func (b *Builder) SaveCacheEntry(key, pkgDir, logDir string, splitDirs map[string]string) error {
	path := b.cachePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return werr.New(werr.KindBuild, "failed to create build-cache directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return werr.New(werr.KindBuild, "failed to create cache archive", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return werr.New(werr.KindBuild, "failed to open zstd encoder for cache archive", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	dirs := cacheDirs(pkgDir, logDir, splitDirs)
	names := make([]string, 0, len(dirs))
	for name := range dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		root := dirs[name]
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			entryName := name
			if rel != "." {
				entryName = filepath.Join(name, rel)
			}
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = entryName
			if info.IsDir() {
				hdr.Name += "/"
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if info.Mode().IsRegular() {
				src, err := os.Open(path)
				if err != nil {
					return err
				}
				defer src.Close()
				if _, err := io.Copy(tw, src); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return werr.New(werr.KindBuild, "failed to snapshot "+root+" into build cache", err)
		}
	}
	return nil
}

// RestoreCacheEntry reports false without error if no cache entry exists
// for key; otherwise it extracts pkg/, log/, and each split dir back into
// place and returns true.
func (b *Builder) RestoreCacheEntry(key, pkgDir, logDir string, splitDirs map[string]string) (bool, error) {
	path := b.cachePath(key)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, werr.New(werr.KindBuild, "failed to open cache archive", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return false, werr.New(werr.KindBuild, "failed to open zstd decoder for cache archive", err)
	}
	defer zr.Close()

	dirs := cacheDirs(pkgDir, logDir, splitDirs)
	for _, root := range dirs {
		if err := os.RemoveAll(root); err != nil {
			return false, err
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return false, err
		}
	}

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, werr.New(werr.KindBuild, "failed to read cache archive entry", err)
		}
		topName, rest := splitFirstSegment(hdr.Name)
		root, ok := dirs[topName]
		if !ok {
			continue
		}
		target := filepath.Join(root, rest)
		if hdr.Typeflag == tar.TypeDir || (rest == "" && hdr.Typeflag == tar.TypeDir) {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return false, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return false, err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
		if err != nil {
			return false, err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return false, err
		}
		out.Close()
	}
	return true, nil
}

func splitFirstSegment(name string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}
