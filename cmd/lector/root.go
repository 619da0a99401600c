package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/lector/internal/app"
)

// envPassword supplies the password to one-shot commands without a prompt.
const envPassword = "LECTOR_PASSWORD"

type globals struct {
	configPath string
	prefsPath  string
	nick       string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "lector",
		Short:         "Terminal client for the library backend",
		Long:          "lector opens the terminal UI. The subcommands run a single operation and exit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.Options{ConfigPath: g.configPath, PrefsPath: g.prefsPath})
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "override config path (default ~/.config/lector/config.toml)")
	flags.StringVar(&g.prefsPath, "prefs", "", "override preferences path (default ~/.config/lector/prefs.toml)")
	flags.StringVar(&g.nick, "nick", "", "nick for one-shot commands (default: last TUI login)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log backend calls to stderr")

	cmd.AddCommand(
		newExemplarsCmd(g),
		newLoansCmd(g),
		newLendCmd(g),
		newReturnCmd(g),
		newStatusCmd(g),
	)
	return cmd
}

// connect builds the client stack and logs in. The returned func logs out.
func (g *globals) connect(cmd *cobra.Command) (*app.Env, func(), error) {
	if !g.verbose {
		log.SetOutput(io.Discard)
	}
	env, err := app.Setup(app.Options{ConfigPath: g.configPath, PrefsPath: g.prefsPath})
	if err != nil {
		return nil, nil, err
	}

	nick := strings.TrimSpace(g.nick)
	if nick == "" {
		nick = env.Prefs.LastNick
	}
	if nick == "" {
		return nil, nil, errors.New("no nick given; pass --nick")
	}
	password, err := readPassword(cmd.ErrOrStderr(), nick)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if _, err := env.Login(ctx, nick, password); err != nil {
		return nil, nil, err
	}
	done := func() { env.Models.Auth.Logout(context.WithoutCancel(ctx)) }
	return env, done, nil
}

// readPassword takes the password from the environment or a masked prompt.
func readPassword(prompt io.Writer, nick string) (string, error) {
	if pw, ok := os.LookupEnv(envPassword); ok {
		return pw, nil
	}
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for the password prompt; set %s", envPassword)
	}
	fmt.Fprintf(prompt, "Contrasenya de %s: ", nick)
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

func parseID(what, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}
