package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/circulation"
	"github.com/five82/lector/internal/config"
	"github.com/five82/lector/internal/prefs"
	"github.com/five82/lector/internal/session"
	"github.com/five82/lector/internal/ui"
	"github.com/five82/lector/internal/viewmodel"
)

// Options configure the lector application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/lector/prefs.toml
}

// Env is the wired client stack shared by the TUI and the one-shot commands.
type Env struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Session   *session.Store
	Client    *biblio.Client
	Coord     *circulation.Coordinator
	Models    *viewmodel.Set
}

// Setup loads configuration and preferences and builds the client stack.
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load lector config: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	sess := session.New()
	client, err := biblio.NewClient(cfg.BaseURL,
		biblio.WithTimeout(cfg.Timeout),
		biblio.WithUserAgent(cfg.UserAgent),
		biblio.WithTokenSource(sess),
	)
	if err != nil {
		return nil, fmt.Errorf("init biblio client: %w", err)
	}
	coord := circulation.New(client)

	return &Env{
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Session:   sess,
		Client:    client,
		Coord:     coord,
		Models:    viewmodel.New(client, sess, coord),
	}, nil
}

// Login opens a session for the one-shot commands.
func (e *Env) Login(ctx context.Context, nick, password string) (biblio.User, error) {
	res := e.Models.Auth.Login(ctx, nick, password)
	if res.IsFailed() {
		return biblio.User{}, fmt.Errorf("login %s: %s", strings.TrimSpace(nick), res.Message())
	}
	return res.Value, nil
}

// Run boots the lector TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(opts)
	if err != nil {
		return err
	}

	logFile, err := OpenLog(env.Config.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	err = ui.Run(ui.Options{
		Context:   ctx,
		Models:    env.Models,
		Config:    &env.Config,
		ThemeName: env.Prefs.Theme,
		PrefsPath: env.PrefsPath,
		LastNick:  env.Prefs.LastNick,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if env.Session.LoggedIn() {
		// Best-effort logout; the result is only logged.
		env.Models.Auth.Logout(context.Background())
	}
	return err
}

// OpenLog redirects the standard logger to path, creating its directory.
func OpenLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "lector")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
