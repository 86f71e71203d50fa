package net

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const cacheDirMode = 0700

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	s := strings.ToLower(src)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch resolves src to a local path. Local paths are returned unchanged;
// http(s) sources are downloaded once into cacheDir, named by the sha256 of
// the URL plus the URL path's extension. A non-empty token is sent as a
// bearer token.
func Fetch(ctx context.Context, src, cacheDir, token string) (string, error) {
	if !IsRemote(src) {
		return src, nil
	}
	if cacheDir == "" {
		return "", errors.New("cache directory required for remote sources")
	}

	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing source URL %s: %w", src, err)
	}
	sum := sha256.Sum256([]byte(src))
	target := filepath.Join(cacheDir, hex.EncodeToString(sum[:])+path.Ext(u.Path))

	if _, err := os.Stat(target); err == nil {
		slog.Debug("using cached source", "url", src, "path", target)
		return target, nil
	}

	if err := os.MkdirAll(cacheDir, cacheDirMode); err != nil {
		return "", fmt.Errorf("creating cache dir %s: %w", cacheDir, err)
	}

	slog.Info("downloading source", "url", src)
	if err := Download(ctx, src, target, token); err != nil {
		return "", fmt.Errorf("fetching %s: %w", src, err)
	}
	return target, nil
}
