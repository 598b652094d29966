package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/bayclock/bayclock/internal/supabase"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the configured Supabase project",
	Long: `Sign in with email and password. The password is read from the terminal,
or from the first line of stdin when it is not a terminal. The session is
stored under ~/.bayclock/auth/ and refreshed automatically.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	_ = loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log := loadConfig()
	defer log.Sync()
	if cfg.Backend.URL == "" || cfg.Backend.AnonKey == "" {
		exitErr(exitUsage, errors.New("set backend.url and backend.anon_key in the config first"))
	}

	password, err := readPassword()
	if err != nil {
		exitErr(exitUsage, err)
	}

	auth := supabase.NewAuth(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.BackendTimeout())
	tok, err := auth.SignIn(ctx, loginEmail, password)
	if err != nil {
		exitErr(exitBackend, err)
	}
	if err := supabase.SaveToken(cfg.TokenPath(), tok); err != nil {
		exitErr(exitBackend, err)
	}
	log.Debug("Session stored", zap.String("path", cfg.TokenPath()))

	client, err := openSupabase(ctx, cfg, log)
	if err != nil {
		exitErr(exitBackend, err)
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		exitErr(exitBackend, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", user.Email, user.Role)
	return nil
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
