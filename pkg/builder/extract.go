package builder

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

func isArchiveFilename(name string) bool {
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.xz", ".tar.bz2", ".tar.zst"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// extractArchive dispatches on filename suffix to the matching tar
// decompressor and unpacks into destDir. .tar.xz is deliberately
// unsupported: no xz-capable library is wired into go.mod (see
// DESIGN.md) — plans needing it must pre-convert to .tar.zst.
func extractArchive(archivePath, destDir string) error {
	name := filepath.Base(archivePath)
	f, err := os.Open(archivePath)
	if err != nil {
		return werr.New(werr.KindBuild, "failed to open archive "+archivePath, err)
	}
	defer f.Close()

	var r io.Reader
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return werr.New(werr.KindBuild, "failed to open gzip stream for "+name, err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.bz2"):
		r = bzip2.NewReader(f)
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return werr.New(werr.KindBuild, "failed to open zstd stream for "+name, err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(name, ".tar.xz"):
		return werr.New(werr.KindBuild, "unsupported archive format: .tar.xz (no xz decoder wired; convert the source to .tar.zst)", nil)
	default:
		return werr.New(werr.KindBuild, "unsupported archive format: "+name, nil)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return werr.New(werr.KindBuild, "failed to read tar entry in "+name, err)
		}
		target := filepath.Join(destDir, filepath.Clean("/"+hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			_ = os.MkdirAll(filepath.Dir(target), 0o755)
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

// Extract unpacks each archive source into destDir and copies
// non-archive sources into filesDir, per spec §4.7 step 5. It returns
// the BUILD_DIR candidate: the sole top-level directory extracted, or
// destDir itself when extraction produced zero or multiple top-level
// entries.
func (b *Builder) Extract(p *plan.Plan, destDir, filesDir string) (string, error) {
	cacheDir := filepath.Join(b.cfg.General.CacheDir, "sources")

	for _, src := range p.Sources {
		processed := processURI(src.URI, p)
		filename := sanitizeCacheFilename(basename(processed))
		path := filepath.Join(cacheDir, filename)

		if isArchiveFilename(filename) {
			if err := extractArchive(path, destDir); err != nil {
				return "", err
			}
		} else {
			if err := os.MkdirAll(filesDir, 0o755); err != nil {
				return "", werr.New(werr.KindBuild, "failed to create files directory", err)
			}
			if err := copyFile(path, filepath.Join(filesDir, filename)); err != nil {
				return "", werr.New(werr.KindBuild, "failed to copy "+filename+" to files directory", err)
			}
		}
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", werr.New(werr.KindBuild, "failed to read extraction directory "+destDir, err)
	}
	var visible []os.DirEntry
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible = append(visible, e)
		}
	}
	if len(visible) == 1 && visible[0].IsDir() {
		return filepath.Join(destDir, visible[0].Name()), nil
	}
	return destDir, nil
}
