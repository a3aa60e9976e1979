package archive

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/werr"
)

// PkgInfo is the parsed form of a .PKGINFO metadata file embedded in
// every archive.
type PkgInfo struct {
	Name        string
	Version     string
	Release     int
	Description string
	Arch        string
	License     string
	InstallSize int64
	BuildDate   string
	RuntimeDeps []string
	LinkDeps    []string
	Replaces    []string
	Conflicts   []string
	Provides    []string
	BackupFiles []string
}

type pkgInfoTOML struct {
	Package struct {
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Release     int    `toml:"release"`
		Description string `toml:"description"`
		Arch        string `toml:"arch"`
		License     string `toml:"license"`
		InstallSize int64  `toml:"install_size"`
		BuildDate   string `toml:"build_date"`
		Packager    string `toml:"packager"`
	} `toml:"package"`
	Dependencies struct {
		Runtime   []string `toml:"runtime"`
		Link      []string `toml:"link"`
		Replaces  []string `toml:"replaces"`
		Conflicts []string `toml:"conflicts"`
		Provides  []string `toml:"provides"`
	} `toml:"dependencies"`
	Backup struct {
		Files []string `toml:"files"`
	} `toml:"backup"`
}

// RenderPkgInfo produces the textual .PKGINFO for an archive being built.
func RenderPkgInfo(info PkgInfo, wrightVersion string) ([]byte, error) {
	var doc pkgInfoTOML
	doc.Package.Name = info.Name
	doc.Package.Version = info.Version
	doc.Package.Release = info.Release
	doc.Package.Description = info.Description
	doc.Package.Arch = info.Arch
	doc.Package.License = info.License
	doc.Package.InstallSize = info.InstallSize
	doc.Package.BuildDate = info.BuildDate
	doc.Package.Packager = "wright-build " + wrightVersion
	doc.Dependencies.Runtime = info.RuntimeDeps
	doc.Dependencies.Link = info.LinkDeps
	doc.Dependencies.Replaces = info.Replaces
	doc.Dependencies.Conflicts = info.Conflicts
	doc.Dependencies.Provides = info.Provides
	doc.Backup.Files = info.BackupFiles

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, werr.New(werr.KindBuild, "failed to render .PKGINFO", err)
	}
	return buf.Bytes(), nil
}

// ParsePkgInfo parses a .PKGINFO body.
func ParsePkgInfo(data []byte) (PkgInfo, error) {
	var doc pkgInfoTOML
	if err := toml.Unmarshal(data, &doc); err != nil {
		return PkgInfo{}, werr.New(werr.KindValidation, "failed to parse .PKGINFO", err)
	}
	if doc.Package.Name == "" {
		return PkgInfo{}, werr.New(werr.KindValidation, "archive .PKGINFO missing [package] name", nil)
	}
	return PkgInfo{
		Name:        doc.Package.Name,
		Version:     doc.Package.Version,
		Release:     doc.Package.Release,
		Description: doc.Package.Description,
		Arch:        doc.Package.Arch,
		License:     doc.Package.License,
		InstallSize: doc.Package.InstallSize,
		BuildDate:   doc.Package.BuildDate,
		RuntimeDeps: doc.Dependencies.Runtime,
		LinkDeps:    doc.Dependencies.Link,
		Replaces:    doc.Dependencies.Replaces,
		Conflicts:   doc.Dependencies.Conflicts,
		Provides:    doc.Dependencies.Provides,
		BackupFiles: doc.Backup.Files,
	}, nil
}

// ArchiveFilename reproduces the naming convention
// "<name>-<version>-<release>-<arch>.wright.tar.zst".
func ArchiveFilename(name, version string, release int, arch string) string {
	return fmt.Sprintf("%s-%s-%d-%s.wright.tar.zst", name, version, release, arch)
}
