// Package archive packs and unpacks .wright.tar.zst binary package
// archives: a zstd-compressed tar stream carrying a built package's
// installed tree plus its .PKGINFO/.FILELIST/.INSTALL metadata files.
package archive

import (
	"archive/tar"
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/wright-pm/wright/pkg/werr"
)

const (
	pkginfoName  = ".PKGINFO"
	filelistName = ".FILELIST"
	installName  = ".INSTALL"
)

// InstallScripts are the optional lifecycle hooks embedded as .INSTALL.
type InstallScripts struct {
	PostInstall string
	PostUpgrade string
	PreRemove   string
}

// RenderInstall produces the .INSTALL body, or nil if no script is set —
// callers must skip writing the entry entirely in that case, matching
// original_source's "only written if non-empty" behavior.
func RenderInstall(s InstallScripts) []byte {
	var b strings.Builder
	if s.PostInstall != "" {
		b.WriteString("[post_install]\n")
		b.WriteString(s.PostInstall)
		b.WriteByte('\n')
	}
	if s.PostUpgrade != "" {
		b.WriteString("[post_upgrade]\n")
		b.WriteString(s.PostUpgrade)
		b.WriteByte('\n')
	}
	if s.PreRemove != "" {
		b.WriteString("[pre_remove]\n")
		b.WriteString(s.PreRemove)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return nil
	}
	return []byte(b.String())
}

// ParseInstall parses a .INSTALL body back into its three named sections.
func ParseInstall(data []byte) InstallScripts {
	var out InstallScripts
	var cur *string
	for _, line := range strings.Split(string(data), "\n") {
		switch strings.TrimSpace(line) {
		case "[post_install]":
			cur = &out.PostInstall
			continue
		case "[post_upgrade]":
			cur = &out.PostUpgrade
			continue
		case "[pre_remove]":
			cur = &out.PreRemove
			continue
		}
		if cur == nil {
			continue
		}
		if *cur != "" {
			*cur += "\n"
		}
		*cur += line
	}
	out.PostInstall = strings.TrimRight(out.PostInstall, "\n")
	out.PostUpgrade = strings.TrimRight(out.PostUpgrade, "\n")
	out.PreRemove = strings.TrimRight(out.PreRemove, "\n")
	return out
}

// BuildOptions configures Create.
type BuildOptions struct {
	Info    PkgInfo
	Install InstallScripts
	// MTime is the fixed modification time stamped on every tar entry,
	// for reproducible archives independent of filesystem timestamps.
	MTime int64
}

// Create walks pkgDir and writes a .wright.tar.zst archive to outputPath
// containing every file under pkgDir plus the generated .PKGINFO,
// .FILELIST, and (if any script is set) .INSTALL metadata entries.
// Symlinks are archived as symlinks, never followed.
func Create(pkgDir, outputPath string, opts BuildOptions) error {
	entries, err := collectEntries(pkgDir)
	if err != nil {
		return err
	}

	filelist := renderFilelist(entries)
	opts.Info.InstallSize = sumRegularFileSizes(pkgDir, entries)
	pkginfo, err := RenderPkgInfo(opts.Info, "1.0.0")
	if err != nil {
		return err
	}
	install := RenderInstall(opts.Install)

	out, err := os.Create(outputPath)
	if err != nil {
		return werr.New(werr.KindBuild, "failed to create archive file", err).WithPackage(opts.Info.Name)
	}
	defer out.Close()

	buf := bufio.NewWriter(out)
	zw, err := zstd.NewWriter(buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return werr.New(werr.KindBuild, "failed to init zstd encoder", err)
	}
	tw := tar.NewWriter(zw)

	writeBuf := func(name string, mode int64, data []byte) error {
		hdr := &tar.Header{
			Name:    name,
			Mode:    mode,
			Size:    int64(len(data)),
			ModTime: timeFromUnix(opts.MTime),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return werr.New(werr.KindBuild, "failed to write tar header for "+name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return werr.New(werr.KindBuild, "failed to write tar entry for "+name, err)
		}
		return nil
	}

	if err := writeBuf(pkginfoName, 0o644, pkginfo); err != nil {
		return err
	}
	if err := writeBuf(filelistName, 0o644, []byte(filelist)); err != nil {
		return err
	}
	if install != nil {
		if err := writeBuf(installName, 0o644, install); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if err := appendEntry(tw, pkgDir, e, opts.MTime); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return werr.New(werr.KindBuild, "failed to finalize tar stream", err)
	}
	if err := zw.Close(); err != nil {
		return werr.New(werr.KindBuild, "failed to finalize zstd stream", err)
	}
	if err := buf.Flush(); err != nil {
		return werr.New(werr.KindBuild, "failed to flush archive file", err)
	}
	return nil
}

// Extract unpacks archivePath into destDir and returns the archive's
// parsed .PKGINFO and .INSTALL lifecycle hooks. destDir must already
// exist.
func Extract(archivePath, destDir string) (PkgInfo, InstallScripts, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return PkgInfo{}, InstallScripts{}, werr.New(werr.KindBuild, "failed to open archive", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return PkgInfo{}, InstallScripts{}, werr.New(werr.KindBuild, "failed to init zstd decoder", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	var info PkgInfo
	var install InstallScripts
	var sawInfo bool
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PkgInfo{}, InstallScripts{}, werr.New(werr.KindBuild, "failed to read archive entry", err)
		}
		switch hdr.Name {
		case pkginfoName:
			data, err := io.ReadAll(tr)
			if err != nil {
				return PkgInfo{}, InstallScripts{}, werr.New(werr.KindBuild, "failed to read .PKGINFO", err)
			}
			info, err = ParsePkgInfo(data)
			if err != nil {
				return PkgInfo{}, InstallScripts{}, err
			}
			sawInfo = true
			continue
		case installName:
			data, err := io.ReadAll(tr)
			if err != nil {
				return PkgInfo{}, InstallScripts{}, werr.New(werr.KindBuild, "failed to read .INSTALL", err)
			}
			install = ParseInstall(data)
			continue
		case filelistName:
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return PkgInfo{}, InstallScripts{}, err
			}
			continue
		}
		if err := extractEntry(destDir, hdr, tr); err != nil {
			return PkgInfo{}, InstallScripts{}, err
		}
	}
	if !sawInfo {
		return PkgInfo{}, InstallScripts{}, werr.New(werr.KindBuild, "archive does not contain .PKGINFO", nil)
	}
	return info, install, nil
}

// ReadPkgInfo reads only the .PKGINFO entry from an archive, without
// extracting the rest of the tree.
func ReadPkgInfo(archivePath string) (PkgInfo, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return PkgInfo{}, werr.New(werr.KindBuild, "failed to open archive", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return PkgInfo{}, werr.New(werr.KindBuild, "failed to init zstd decoder", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PkgInfo{}, werr.New(werr.KindBuild, "failed to read archive entry", err)
		}
		if hdr.Name == pkginfoName {
			data, err := io.ReadAll(tr)
			if err != nil {
				return PkgInfo{}, err
			}
			return ParsePkgInfo(data)
		}
	}
	return PkgInfo{}, werr.New(werr.KindBuild, "archive does not contain .PKGINFO", nil)
}

type dirEntry struct {
	relPath string
	absPath string
	info    fs.FileInfo
}

func collectEntries(pkgDir string) ([]dirEntry, error) {
	var entries []dirEntry
	err := filepath.WalkDir(pkgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if isMetadataName(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, dirEntry{relPath: filepath.ToSlash(rel), absPath: path, info: info})
		return nil
	})
	if err != nil {
		return nil, werr.New(werr.KindBuild, "failed to walk package directory", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })
	return entries, nil
}

func isMetadataName(rel string) bool {
	return rel == pkginfoName || rel == filelistName || rel == installName
}

func renderFilelist(entries []dirEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = "/" + e.relPath
	}
	return strings.Join(lines, "\n")
}

func sumRegularFileSizes(pkgDir string, entries []dirEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.info.Mode().IsRegular() {
			total += e.info.Size()
		}
	}
	return total
}

func appendEntry(tw *tar.Writer, pkgDir string, e dirEntry, mtime int64) error {
	mode := e.info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(e.absPath)
		if err != nil {
			return werr.New(werr.KindBuild, "failed to read symlink "+e.relPath, err)
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeSymlink,
			Name:     e.relPath,
			Linkname: target,
			Mode:     0o777,
			ModTime:  timeFromUnix(mtime),
		}
		return tw.WriteHeader(hdr)
	case mode.IsDir():
		hdr := &tar.Header{
			Typeflag: tar.TypeDir,
			Name:     e.relPath + "/",
			Mode:     int64(mode.Perm()),
			ModTime:  timeFromUnix(mtime),
		}
		return tw.WriteHeader(hdr)
	case mode&os.ModeNamedPipe != 0, mode&os.ModeDevice != 0, mode&os.ModeCharDevice != 0:
		hdr, err := tar.FileInfoHeader(e.info, "")
		if err != nil {
			return werr.New(werr.KindBuild, "failed to build tar header for "+e.relPath, err)
		}
		hdr.Name = e.relPath
		hdr.ModTime = timeFromUnix(mtime)
		// FIFOs and device nodes carry no content — only major/minor and
		// the type flag FileInfoHeader already derived from sys stat.
		return tw.WriteHeader(hdr)
	default:
		hdr, err := tar.FileInfoHeader(e.info, "")
		if err != nil {
			return werr.New(werr.KindBuild, "failed to build tar header for "+e.relPath, err)
		}
		hdr.Name = e.relPath
		hdr.ModTime = timeFromUnix(mtime)
		if err := tw.WriteHeader(hdr); err != nil {
			return werr.New(werr.KindBuild, "failed to write tar header for "+e.relPath, err)
		}
		f, err := os.Open(e.absPath)
		if err != nil {
			return werr.New(werr.KindBuild, "failed to open "+e.relPath, err)
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return werr.New(werr.KindBuild, "failed to write data for "+e.relPath, err)
		}
		return nil
	}
}

func extractEntry(destDir string, hdr *tar.Header, r io.Reader) error {
	target := filepath.Join(destDir, filepath.Clean("/"+hdr.Name))
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return werr.New(werr.KindBuild, "failed to create symlink "+hdr.Name, err)
		}
		return nil
	case tar.TypeFifo, tar.TypeChar, tar.TypeBlock:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		if err := mknod(target, hdr); err != nil {
			return werr.New(werr.KindBuild, "failed to create device node "+hdr.Name, err)
		}
		return nil
	default:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
		if err != nil {
			return werr.New(werr.KindBuild, "failed to create "+hdr.Name, err)
		}
		defer f.Close()
		if _, err := io.Copy(f, r); err != nil {
			return werr.New(werr.KindBuild, "failed to write "+hdr.Name, err)
		}
		return nil
	}
}
