package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperPath = "pepper"
)

// SetPepperPath points the pepper loader at path and forgets any cached value.
func SetPepperPath(path string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	pepperPath = path
	pepper = ""
}

// Pepper returns the process pepper, loading it from the pepper file or
// creating that file with a fresh random value on first use.
func Pepper() (string, error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper, nil
	}

	path := filepath.Clean(pepperPath)
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper = strings.TrimSpace(string(b))
		return pepper, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	raw, err := RandomBytes(keyLength)
	if err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}

	pepper = value
	return pepper, nil
}
