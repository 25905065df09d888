package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/oidcgate/pkg/cryptox"
)

// loadCookieSecret returns the configured cookie key. Without one, a key is
// read from CookieSecretFile, or generated and written there, so sessions
// survive restarts.
func loadCookieSecret(cfg Config, logger *slog.Logger) ([]byte, error) {
	if cfg.CookieSecret != "" {
		return []byte(cfg.CookieSecret), nil
	}

	path := filepath.Clean(cfg.CookieSecretFile)
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(b)))
		if err != nil {
			return nil, fmt.Errorf("decode cookie secret %s: %w", path, err)
		}
		if len(secret) < cryptox.TokenSize256 {
			return nil, fmt.Errorf("cookie secret %s is shorter than %d bytes", path, cryptox.TokenSize256)
		}
		return secret, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read cookie secret: %w", err)
	}

	secret, err := cryptox.RandomBytes(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create cookie secret dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(base64.RawURLEncoding.EncodeToString(secret)), 0o600); err != nil {
		return nil, fmt.Errorf("write cookie secret: %w", err)
	}

	logger.Info("generated cookie secret", "path", path)
	return secret, nil
}
