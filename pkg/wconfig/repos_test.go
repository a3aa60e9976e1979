package wconfig

import (
	"path/filepath"
	"testing"
)

const sampleRepos = `
[[repo]]
name = "local"
path = "/var/cache/wright/repo"

[[repo]]
name = "staging"
path = "/srv/wright-staging"
`

func TestParseReposOrdersEntries(t *testing.T) {
	repos, err := ParseRepos([]byte(sampleRepos))
	if err != nil {
		t.Fatalf("ParseRepos() error: %v", err)
	}
	if len(repos) != 2 || repos[0].Name != "local" || repos[1].Name != "staging" {
		t.Fatalf("unexpected repos: %+v", repos)
	}
}

func TestParseReposRejectsMissingPath(t *testing.T) {
	_, err := ParseRepos([]byte(`[[repo]]
name = "local"
`))
	if err == nil {
		t.Fatal("expected error for repo entry missing path")
	}
}

func TestLoadReposMissingFileReturnsEmpty(t *testing.T) {
	repos, err := LoadRepos(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadRepos() error: %v", err)
	}
	if repos != nil {
		t.Fatalf("expected nil repos for missing file, got %+v", repos)
	}
}
