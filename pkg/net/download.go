package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const defaultDatasetName = "dataset.csv"

var ErrorURLNotFound = errors.New("URL not found")

// IsRemote reports whether input is an http(s) URL rather than a local path.
func IsRemote(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getResp(ctx context.Context, url string) (*http.Response, error) {
	c, err := GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	req.Header.Set("User-Agent", clientAgent)

	return c.Do(req) //nolint:gosec // URL is the user's own --input
}

// Download saves the content at url into file. The file is only created
// once the server answers 200.
func Download(ctx context.Context, url string, file string) (retErr error) {
	resp, err := getResp(ctx, url)
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	PrintHTTPResponse(resp)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrorURLNotFound, url)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(file), ".download-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if err = os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("error moving download to %s: %w", file, err)
	}
	return nil
}

// FetchDataset downloads a remote dataset into dir and returns the local
// path. The file keeps the last path segment of the URL.
func FetchDataset(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid dataset URL %q: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		name = defaultDatasetName
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating directory %s: %w", dir, err)
	}

	file := filepath.Join(dir, name)
	if err := Download(ctx, rawURL, file); err != nil {
		return "", err
	}

	slog.Debug("dataset downloaded", "url", rawURL, "file", file)
	return file, nil
}
