package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultx/vaultx-term/client"
)

func newAuthCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored session",
	}
	cmd.AddCommand(newAuthImportCmd(e))
	cmd.AddCommand(newAuthStatusCmd(e))
	return cmd
}

func newAuthImportCmd(e *env) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "import --cookie name=value...",
		Short: "Store session cookies copied from a signed-in browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(pairs) == 0 {
				return errors.New("at least one --cookie name=value is required")
			}
			existing, err := client.LoadCookies(e.cookiePath())
			if err != nil {
				return err
			}
			merged := existing
			for _, p := range pairs {
				name, value, ok := strings.Cut(p, "=")
				name = strings.TrimSpace(name)
				if !ok || name == "" {
					return fmt.Errorf("invalid cookie %q (want name=value)", p)
				}
				merged = setCookie(merged, client.StoredCookie{Name: name, Value: strings.TrimSpace(value)})
			}
			if err := client.SaveCookies(e.cookiePath(), merged); err != nil {
				return err
			}
			names := make([]string, len(merged))
			for i, c := range merged {
				names[i] = c.Name
			}
			return e.write(cmd, map[string]any{"path": e.cookiePath(), "cookies": names}, func(w io.Writer) {
				fmt.Fprintf(w, "Saved %d cookie(s) to %s.\n", len(merged), e.cookiePath())
			})
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "cookie", nil, "Cookie as name=value (repeatable)")
	return cmd
}

// setCookie replaces the cookie named c.Name or appends c.
func setCookie(cs []client.StoredCookie, c client.StoredCookie) []client.StoredCookie {
	for i := range cs {
		if cs[i].Name == c.Name {
			cs[i] = c
			return cs
		}
	}
	return append(cs, c)
}

type authStatus struct {
	Backend   string     `json:"backend"`
	Cookie    string     `json:"cookie"`
	Present   bool       `json:"present"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

func newAuthStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a session cookie is stored and when it expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := authStatus{Backend: e.cfg.BackendURL, Cookie: e.sessionCookie()}
			token, ok := e.api.Cookie(st.Cookie)
			st.Present = ok && token != ""

			var note string
			if st.Present {
				exp, err := client.SessionExpiry(token)
				switch {
				case errors.Is(err, client.ErrNoExpiry):
					note = "no expiry recorded"
				case err != nil:
					note = "not a JWT; expiry unknown"
				default:
					st.ExpiresAt = &exp
					st.Expired = !exp.After(time.Now())
				}
			}

			return e.write(cmd, st, func(w io.Writer) {
				fmt.Fprintf(w, "Backend: %s\n", st.Backend)
				switch {
				case !st.Present:
					fmt.Fprintf(w, "Signed out: no %s cookie. Run vaultx auth import --cookie %s=<value>.\n", st.Cookie, st.Cookie)
				case st.Expired:
					fmt.Fprintf(w, "Session expired at %s.\n", st.ExpiresAt.Local().Format(time.RFC1123))
				case st.ExpiresAt != nil:
					fmt.Fprintf(w, "Signed in until %s.\n", st.ExpiresAt.Local().Format(time.RFC1123))
				default:
					fmt.Fprintf(w, "Signed in (%s).\n", note)
				}
			})
		},
	}
}
