// Package prefs remembers the theme and the last nick that logged in, in
// ~/.config/lector/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/lector/internal/config"
)

// Prefs holds user preferences for lector.
type Prefs struct {
	Theme    string `toml:"theme"`
	LastNick string `toml:"last_nick"`
}

const (
	defaultPrefsPath = "~/.config/lector/prefs.toml"
	defaultTheme     = "Nord"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. A missing or broken file yields the
// defaults; problems other than absence are logged.
func Load(path string) Prefs {
	p := Prefs{Theme: defaultTheme}

	resolved, err := resolve(path)
	if err != nil {
		log.Printf("prefs: %v", err)
		return p
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("prefs: read %s: %v", resolved, err)
		}
		return p
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		log.Printf("prefs: parse %s: %v", resolved, err)
		return Prefs{Theme: defaultTheme}
	}
	return p.normalized()
}

// Save writes p to path, creating the directory if needed.
func Save(path string, p Prefs) error {
	resolved, err := resolve(path)
	if err != nil {
		return fmt.Errorf("resolve prefs path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.LastNick = strings.TrimSpace(p.LastNick)
	return p
}

func resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
