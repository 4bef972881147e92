// Package cli is the vaultx command line: the interactive client by default
// and scriptable subcommands for the inbox, the notes board and intake.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/config"
	"github.com/vaultx/vaultx-term/logging"
)

const cookiesFile = "cookies.json"

// errSessionRejected is returned when a stream ends with a 401.
var errSessionRejected = errors.New("session rejected")

// env is the state shared by every command of one invocation.
type env struct {
	version string

	// Flags
	profile string
	url     string
	output  string
	verbose bool

	dir string
	cfg config.Config
	log *zap.Logger
	api *client.Client
}

// Execute runs the command line and returns the process exit status.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, version, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		return 1
	}
	return 0
}

func run(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	e := &env{version: version}
	cmd := newRootCmd(e)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	defer func() {
		if e.log != nil {
			_ = e.log.Sync()
		}
	}()

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		e.report(stderr, err)
	}
	return err
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vaultx",
		Short:         "Clinical intake terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive client
  vaultx

  # Sign in with a session cookie copied from the browser
  vaultx auth import --cookie token=<value>

  # Scriptable commands
  vaultx inbox --status pending
  vaultx notes list --type soap -o yaml
  vaultx intake say "I have had a headache for three days"
`),
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return e.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&e.profile, "profile", "", "Named profile (~/.vaultx/profiles/<name>)")
	flags.StringVar(&e.url, "url", "", "Backend URL (overrides config and "+config.EnvURL+")")
	flags.StringVarP(&e.output, "output", "o", "text", "Output format (text|json|yaml)")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(newTUICmd(e))
	cmd.AddCommand(newVersionCmd(e))
	cmd.AddCommand(newInboxCmd(e))
	cmd.AddCommand(newCaseCmd(e))
	cmd.AddCommand(newDashboardCmd(e))
	cmd.AddCommand(newNotesCmd(e))
	cmd.AddCommand(newIntakeCmd(e))
	cmd.AddCommand(newAuthCmd(e))
	return cmd
}

// setup resolves the profile and builds the logger and the API client.
func (e *env) setup() error {
	switch e.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", e.output)
	}

	e.dir = config.ProfileDir(e.profile)
	e.cfg = config.Load(e.dir)
	if e.url != "" {
		e.cfg.BackendURL = strings.TrimRight(e.url, "/")
	}

	log, err := logging.New(e.dir, e.cfg.LogLevel, e.verbose)
	if err != nil {
		return err
	}
	e.log = log

	cookies, err := client.LoadCookies(e.cookiePath())
	if err != nil {
		return err
	}
	jar, err := client.NewJar(e.cfg.BackendURL, cookies)
	if err != nil {
		return err
	}
	e.api = client.New(e.cfg.BackendURL, jar, log)
	e.log.Debug("cli ready",
		zap.String("profile_dir", e.dir),
		zap.String("backend", e.cfg.BackendURL),
		zap.Int("cookies", len(cookies)))
	return nil
}

func (e *env) cookiePath() string {
	return filepath.Join(e.dir, cookiesFile)
}

func (e *env) sessionCookie() string {
	if e.cfg.SessionCookie == "" {
		return "token"
	}
	return e.cfg.SessionCookie
}

// report prints err, with a sign-in hint when the session was rejected.
func (e *env) report(w io.Writer, err error) {
	if client.IsUnauthorized(err) || errors.Is(err, errSessionRejected) {
		fmt.Fprintln(w, "vaultx: the server rejected your session.")
		fmt.Fprintf(w, "Sign in again with: vaultx auth import --cookie %s=<value>\n", e.sessionCookie())
		return
	}
	fmt.Fprintf(w, "vaultx: %v\n", err)
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vaultx %s\n", e.version)
		},
	}
}
