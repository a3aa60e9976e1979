package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

// sanitizeCacheFilename strips any directory component and replaces path
// separators/NUL bytes, matching the original resolver's
// sanitize_cache_filename exactly so cache paths never escape cache_dir.
func sanitizeCacheFilename(raw string) string {
	name := raw
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', 0:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	sanitized := b.String()
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return "download"
	}
	return sanitized
}

func basename(uri string) string {
	parts := strings.Split(uri, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "source"
	}
	return last
}

func isRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// sha256File hashes path's contents, streaming through io.Copy's default
// 32KB buffer.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", werr.New(werr.KindChecksum, "failed to open "+path+" for hashing", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", werr.New(werr.KindChecksum, "failed to read "+path+" for hashing", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// processURI substitutes ${PKG_VERSION}-style variables into a source URI.
func processURI(uri string, p *plan.Plan) string {
	vars := map[string]string{
		"PKG_NAME":    p.Name,
		"PKG_VERSION": p.Version.String(),
		"PKG_RELEASE": fmt.Sprintf("%d", p.Release),
		"PKG_ARCH":    p.Arch,
	}
	return plan.Substitute(uri, vars)
}

// validateLocalPath resolves relativePath against holdDir (the plan's own
// directory) and rejects anything that escapes it, matching mod.rs's
// validate_local_path traversal guard.
func validateLocalPath(holdDir, relativePath string) (string, error) {
	resolved, err := filepath.Abs(filepath.Join(holdDir, relativePath))
	if err != nil {
		return "", werr.New(werr.KindValidation, "failed to resolve local path "+relativePath, err)
	}
	resolved, err = filepath.EvalSymlinks(resolved)
	if err != nil {
		return "", werr.New(werr.KindValidation, "local path not found: "+relativePath, err)
	}
	holdAbs, err := filepath.Abs(holdDir)
	if err != nil {
		return "", werr.New(werr.KindValidation, "failed to resolve plan directory "+holdDir, err)
	}
	holdAbs, err = filepath.EvalSymlinks(holdAbs)
	if err != nil {
		return "", werr.New(werr.KindValidation, "failed to resolve plan directory "+holdDir, err)
	}
	if !strings.HasPrefix(resolved, holdAbs+string(filepath.Separator)) && resolved != holdAbs {
		return "", werr.New(werr.KindValidation, "local path escapes plan directory: "+relativePath, nil)
	}
	return resolved, nil
}

// downloadFile fetches url to dest, writing to a same-directory temp file
// first and renaming into place so a crash never leaves a partial file
// where a completed download is expected.
func downloadFile(ctx context.Context, url, dest string, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return werr.New(werr.KindNetwork, "failed to create cache directory", err)
	}

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return werr.New(werr.KindNetwork, "failed to build request for "+url, err)
	}
	req.Header.Set("User-Agent", "wright/0.1.0 (Linux)")

	resp, err := client.Do(req)
	if err != nil {
		return werr.New(werr.KindNetwork, "failed to fetch "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return werr.New(werr.KindNetwork, fmt.Sprintf("failed to download %s: status %d", url, resp.StatusCode), nil)
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		return werr.New(werr.KindNetwork, "server returned HTML instead of a file for "+url+" (possible redirect/mirror page; use a direct download URL)", nil)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".wright-dl-*")
	if err != nil {
		return werr.New(werr.KindNetwork, "failed to create temp download file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return werr.New(werr.KindNetwork, "failed to write downloaded data for "+url, err)
	}
	if err := tmp.Close(); err != nil {
		return werr.New(werr.KindNetwork, "failed to finalize download for "+url, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return werr.New(werr.KindNetwork, "failed to move downloaded file into place", err)
	}
	return nil
}

// SourceCachePath returns the path Fetch has stored (or will store) one
// of p's sources under, letting a caller like `wbuild checksum` re-hash
// an already-fetched source without reimplementing Fetch's naming rules.
func (b *Builder) SourceCachePath(p *plan.Plan, src plan.Source) string {
	cacheDir := filepath.Join(b.cfg.General.CacheDir, "sources")
	processed := processURI(src.URI, p)
	var filename string
	if isRemoteURI(processed) {
		filename = sanitizeCacheFilename(basename(processed))
	} else {
		filename = sanitizeCacheFilename(filepath.Base(processed))
	}
	return filepath.Join(cacheDir, filename)
}

// Fetch obtains every source URI into cache/sources, downloading remote
// URIs (reusing a verified cache hit) and copying local ones in after a
// plan-directory traversal check, per spec §4.7 step 3.
func (b *Builder) Fetch(ctx context.Context, p *plan.Plan, holdDir string) error {
	cacheDir := filepath.Join(b.cfg.General.CacheDir, "sources")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return werr.New(werr.KindBuild, "failed to create source cache directory", err)
	}

	timeout := time.Duration(b.cfg.Network.DownloadTimeoutSecs) * time.Second

	for i, src := range p.Sources {
		processed := processURI(src.URI, p)

		if isRemoteURI(processed) {
			filename := sanitizeCacheFilename(basename(processed))
			dest := filepath.Join(cacheDir, filename)
			expectedHash := ""
			if i < len(p.Sources) {
				expectedHash = src.SHA256
			}
			skipVerify := expectedHash == "SKIP"

			needsDownload := true
			if _, err := os.Stat(dest); err == nil {
				switch {
				case skipVerify:
					needsDownload = false
				case expectedHash != "":
					if actual, err := sha256File(dest); err == nil && actual == expectedHash {
						needsDownload = false
					} else {
						_ = os.Remove(dest)
					}
				default:
					needsDownload = false
				}
			}

			if needsDownload {
				// A failed download is retried up to network.retry_count
				// more times before its error is returned.
				var dlErr error
				for attempt := 0; attempt <= b.cfg.Network.RetryCount; attempt++ {
					if dlErr = downloadFile(ctx, processed, dest, timeout); dlErr == nil || ctx.Err() != nil {
						break
					}
				}
				if dlErr != nil {
					return dlErr
				}
				if !skipVerify && expectedHash != "" {
					actual, err := sha256File(dest)
					if err != nil {
						return err
					}
					if actual != expectedHash {
						return werr.New(werr.KindChecksum,
							fmt.Sprintf("downloaded file %s failed verification: expected %s, got %s", filename, expectedHash, actual), nil).
							WithPackage(p.Name)
					}
				}
			}
		} else {
			localPath, err := validateLocalPath(holdDir, processed)
			if err != nil {
				return err
			}
			filename := sanitizeCacheFilename(filepath.Base(localPath))
			dest := filepath.Join(cacheDir, filename)
			if _, err := os.Stat(dest); err != nil {
				if err := copyFile(localPath, dest); err != nil {
					return werr.New(werr.KindBuild, "failed to copy local source "+localPath, err)
				}
			}
		}
	}
	return nil
}

// Verify recomputes SHA-256 for every non-SKIP source and compares
// against the plan's recorded checksum, per spec §4.7 step 4. A mismatch
// here (after Fetch already retried once on download) is fatal.
func (b *Builder) Verify(p *plan.Plan) error {
	cacheDir := filepath.Join(b.cfg.General.CacheDir, "sources")

	for i, src := range p.Sources {
		if src.SHA256 == "SKIP" {
			continue
		}
		processed := processURI(src.URI, p)
		filename := sanitizeCacheFilename(basename(processed))
		path := filepath.Join(cacheDir, filename)

		if _, err := os.Stat(path); err != nil {
			return werr.New(werr.KindValidation, fmt.Sprintf("source file missing: %s", filename), nil).WithPackage(p.Name)
		}
		actual, err := sha256File(path)
		if err != nil {
			return err
		}
		if actual != src.SHA256 {
			return werr.New(werr.KindChecksum,
				fmt.Sprintf("SHA256 mismatch for source %d (%s): expected %s, got %s", i, filename, src.SHA256, actual), nil).
				WithPackage(p.Name)
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
