package wconfig

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/werr"
)

// Repo is one local archive repository: a directory of built
// .wright.tar.zst files that sysupgrade scans for newer versions of
// already-installed packages. Wright carries no remote repo transport,
// so Path is always a local directory a build (or a sneakernet copy)
// populated.
type Repo struct {
	Name string `toml:"name" validate:"required"`
	Path string `toml:"path" validate:"required"`
}

type reposTOML struct {
	Repo []Repo `toml:"repo"`
}

// ParseRepos decodes repos.toml contents into an ordered repo list.
// When more than one repo holds an archive for the same package name,
// sysupgrade takes the highest version; the order only decides a tie,
// where the earlier entry wins.
func ParseRepos(data []byte) ([]Repo, error) {
	var doc reposTOML
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, werr.New(werr.KindValidation, "failed to parse repos.toml", err)
	}
	for _, r := range doc.Repo {
		if r.Name == "" || r.Path == "" {
			return nil, werr.New(werr.KindValidation, "repos.toml entry missing name or path", nil)
		}
	}
	return doc.Repo, nil
}

// LoadRepos reads and parses repos.toml from path. A missing file is not
// an error: it means no local archive repositories are configured, and
// sysupgrade has nothing to scan.
func LoadRepos(path string) ([]Repo, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, werr.New(werr.KindValidation, "failed to read "+path, err)
	}
	return ParseRepos(data)
}
