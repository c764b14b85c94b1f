// Package fetch downloads assets for configuration runs: direct URLs and
// GitHub release assets resolved by repo, tag, and name pattern.
package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"confctl/internal/logger"
)

// APIBase is the GitHub API endpoint. A variable so tests can point it at
// a local server.
var APIBase = "https://api.github.com"

// Release represents the subset of a GitHub release JSON response we need
// to locate a downloadable asset.
type Release struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// ReleaseAssetURL resolves the download URL of the first asset of
// repo@tag whose file name contains pattern (case-insensitive). An empty
// pattern matches the first asset.
func ReleaseAssetURL(repo, tag, pattern string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", APIBase, repo, tag)
	logger.Debug("[DEBUG] Fetching GitHub release metadata from %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("HTTP GET error fetching release %s@%s: %w", repo, tag, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close HTTP response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub release fetch failed for %s@%s: HTTP status %d", repo, tag, resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to decode GitHub release JSON for %s@%s: %w", repo, tag, err)
	}
	logger.Debug("[DEBUG] Release %s has %d assets\n", release.TagName, len(release.Assets))

	needle := strings.ToLower(pattern)
	for _, asset := range release.Assets {
		if needle == "" || strings.Contains(strings.ToLower(asset.Name), needle) {
			logger.Debug("[DEBUG] Matched asset %s\n", asset.Name)
			return asset.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("no asset matching %q in release %s of %s", pattern, release.TagName, repo)
}

// Download saves the content at url to destPath, creating the parent
// directory if needed.
func Download(url, destPath string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to GET %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Error("[ERROR] Failed to close response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed: HTTP status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(destPath), err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Error("[ERROR] Failed to close destination file: %v\n", cerr)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write response to file: %w", err)
	}

	logger.Debug("[DEBUG] Downloaded %s to %s\n", url, destPath)
	return nil
}
