package app

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/lector/internal/config"
	"github.com/five82/lector/internal/devserver"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSetup_UsesConfigAndPrefs(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	dir := t.TempDir()
	prefsPath := filepath.Join(dir, "prefs.toml")
	if err := os.WriteFile(prefsPath, []byte("theme = \"Slate\"\nlast_nick = \"marta\"\n"), 0o644); err != nil {
		t.Fatalf("write prefs: %v", err)
	}
	cfgPath := writeConfig(t, "base_url = \"http://biblio.test:9000/api\"\ntimeout_seconds = 3\n")

	env, err := Setup(Options{ConfigPath: cfgPath, PrefsPath: prefsPath})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if got := env.Client.BaseURL(); got != "http://biblio.test:9000/api" {
		t.Fatalf("client base URL = %q, want config value", got)
	}
	if env.Config.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v, want 3s", env.Config.Timeout)
	}
	if env.Prefs.Theme != "Slate" || env.Prefs.LastNick != "marta" {
		t.Fatalf("prefs = %+v, want Slate/marta", env.Prefs)
	}
	if env.Models == nil || env.Coord == nil || env.Session == nil {
		t.Fatalf("Setup left the stack partially wired: %+v", env)
	}
}

func TestSetup_InvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, "base_url = [")
	if _, err := Setup(Options{ConfigPath: cfgPath, PrefsPath: filepath.Join(t.TempDir(), "p.toml")}); err == nil {
		t.Fatalf("Setup with broken TOML returned nil error")
	}
}

func TestEnvLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := devserver.New(devserver.WithBcryptCost(bcrypt.MinCost))
	if _, err := srv.SeedAdmin("admin", "admin"); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	t.Setenv(config.EnvBaseURL, ts.URL)
	env, err := Setup(Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, err := env.Login(context.Background(), "admin", "nope"); err == nil || !strings.Contains(err.Error(), "incorrectes") {
		t.Fatalf("Login(wrong) error = %v, want invalid credentials", err)
	}
	user, err := env.Login(context.Background(), "admin", "admin")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !user.Admin || !env.Session.LoggedIn() {
		t.Fatalf("after login user=%+v loggedIn=%v", user, env.Session.LoggedIn())
	}
}

func TestOpenLog_CreatesDirectory(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetPrefix("")
	})
	path := filepath.Join(t.TempDir(), "nested", "dir", "lector.log")
	f, err := OpenLog(path)
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	log.Printf("hello from the test")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "lector") || !strings.Contains(string(data), "hello from the test") {
		t.Fatalf("log file = %q, want prefixed line", data)
	}
}
