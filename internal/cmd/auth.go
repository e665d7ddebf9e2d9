package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/auth"
	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
	"github.com/felixgeelhaar/candidash/internal/gate"
	"github.com/felixgeelhaar/candidash/internal/session"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

func newAuthCommand() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the admin session",
		Long: `Manage the admin session.

The session is stored in ~/.candidash/session.json (or the configured
backend) and re-validated against the backend at the start of every command.

Examples:
  candidash auth login -u admin
  candidash auth status
  candidash auth whoami --format json
  candidash auth logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	authCmd.AddCommand(newAuthLoginCommand(), newAuthLogoutCommand(), newAuthStatusCommand(), newAuthWhoamiCommand())
	return authCmd
}

// sessionView is the printable form of a session.
type sessionView struct {
	State       string    `json:"state" yaml:"state"`
	UserID      int64     `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Username    string    `json:"username,omitempty" yaml:"username,omitempty"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Email       string    `json:"email,omitempty" yaml:"email,omitempty"`
	Role        string    `json:"role,omitempty" yaml:"role,omitempty"`
	StateName   string    `json:"stateName,omitempty" yaml:"state_name,omitempty"`
	City        string    `json:"cityName,omitempty" yaml:"city_name,omitempty"`
	Permissions []string  `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero" yaml:"expires_at,omitempty"`
	ReturnTo    string    `json:"returnTo,omitempty" yaml:"return_to,omitempty"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"`
}

func newSessionView(state auth.State, s *session.Session) sessionView {
	v := sessionView{State: state.String()}
	if s == nil {
		return v
	}
	v.UserID = s.UserID
	v.Username = s.Username
	v.Name = s.DisplayName()
	v.Email = s.Email
	v.Role = s.RoleName
	v.StateName = s.Scope.StateName
	v.City = s.Scope.CityName
	v.Permissions = s.PermissionSet().Codes()
	v.ExpiresAt = s.ExpiresAt
	return v
}

func (v sessionView) render(w io.Writer, s ux.Styles, withPermissions bool) error {
	lines := []string{s.Field("state", v.State)}
	if v.Username != "" {
		lines = append(lines,
			s.Field("user", fmt.Sprintf("%s (%s)", v.Name, v.Username)),
			s.Field("role", v.Role),
		)
		if v.StateName != "" {
			lines = append(lines, s.Field("scope", strings.TrimSuffix(v.StateName+" / "+v.City, " / ")))
		}
		if !v.ExpiresAt.IsZero() {
			lines = append(lines, s.Field("expires", v.ExpiresAt.Local().Format(time.RFC1123)))
		}
	}
	if withPermissions {
		lines = append(lines, s.Field("permissions", fmt.Sprintf("%d", len(v.Permissions))))
		for _, p := range v.Permissions {
			lines = append(lines, "  "+s.Muted.Render("•")+" "+p)
		}
	}
	if v.Message != "" {
		lines = append(lines, "", s.Warning.Render(v.Message))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func newAuthLoginCommand() *cobra.Command {
	var (
		username      string
		password      string
		passwordStdin bool
		redirect      string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the admin console",
		Long: `Log in with an admin username and password.

The password is prompted for when it is not given and the terminal is
interactive. Use --password-stdin in scripts.

A failed login keeps any session you already had. Pass the redirect printed
by 'candidash route check' with --redirect to be told where to continue.

Examples:
  candidash auth login -u admin
  echo "$PASSWORD" | candidash auth login -u admin --password-stdin`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = promptIfInteractive(ux.Prompt{Message: "Username", Required: true}, "--username"); err != nil {
					return err
				}
			}
			switch {
			case passwordStdin:
				if password, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			case password == "":
				if password, err = promptIfInteractive(ux.Prompt{Message: "Password", Required: true, Secret: true}, "--password"); err != nil {
					return err
				}
			}

			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}

			cc.Printer.Printf("Logging in as %s...\n", username)
			sess, err := m.Login(ctx, strings.TrimSpace(username), password)
			if err != nil {
				cc.Metrics.RecordLogin(auth.Code(err))
				return loginError(cc, err)
			}
			cc.Metrics.RecordLogin("success")

			view := newSessionView(m.State(), sess)
			if redirect != "" {
				view.ReturnTo = gate.ReturnPath(redirect)
			}
			return cc.Printer.Emit(view, func(w io.Writer, s ux.Styles) error {
				fmt.Fprintf(w, "%s Logged in as %s (%s)\n", s.Mark(true), sess.DisplayName(), sess.RoleName)
				if view.ReturnTo != "" {
					fmt.Fprintf(w, "Continue to %s\n", view.ReturnTo)
				}
				return nil
			})
		}),
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVar(&redirect, "redirect", "", "login redirect to return to after a successful login")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}

// loginError maps a failed login to the error shown to the user. Rejected
// credentials always read LoginFailedMessage; the backend's reason stays on
// the wrapped cause.
func loginError(cc *CommandContext, err error) error {
	switch {
	case auth.IsAuthError(err, auth.ErrNetwork):
		return cerrors.NewBackendUnreachableError(cc.Config.APIURL, err)
	case auth.IsAuthError(err, auth.ErrLoginSuperseded):
		return err
	default:
		return cerrors.NewLoginFailedError(auth.LoginFailedMessage, err)
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the admin session",
		Long: `End the admin session. The backend is told about it when reachable; the
local session is removed either way.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}
			sess := m.Session()
			if sess == nil {
				return cc.Printer.Emit(sessionView{State: m.State().String(), Message: "Not logged in."}, textLine("Not logged in."))
			}

			if err := m.Logout(ctx); err != nil {
				return err
			}
			return cc.Printer.Emit(sessionView{State: m.State().String(), Username: sess.Username},
				func(w io.Writer, s ux.Styles) error {
					fmt.Fprintf(w, "%s Logged out %s\n", s.Mark(true), sess.Username)
					return nil
				})
		}),
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}
			view := newSessionView(m.State(), m.Session())
			switch {
			case cc.SessionRejected():
				view.Message = "Session expired. Please login again."
			case !m.IsAuthenticated():
				view.Message = "Not logged in. Run 'candidash auth login'."
			}
			return cc.Printer.Emit(view, func(w io.Writer, s ux.Styles) error {
				return view.render(w, s, false)
			})
		}),
	}
}

func newAuthWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in admin and their permissions",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}
			if !m.IsAuthenticated() {
				if cc.SessionRejected() {
					return cerrors.NewSessionExpiredError()
				}
				return cerrors.NewNotLoggedInError("")
			}
			view := newSessionView(m.State(), m.Session())
			return cc.Printer.Emit(view, func(w io.Writer, s ux.Styles) error {
				return view.render(w, s, true)
			})
		}),
	}
}

// promptIfInteractive prompts for a value, or fails naming flag when the
// session is not interactive.
func promptIfInteractive(p ux.Prompt, flag string) (string, error) {
	if !ux.ShouldPrompt() {
		return "", fmt.Errorf("required flag %s not set", flag)
	}
	return ux.PromptForString(p)
}

// readSecret reads one line from r.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no password on stdin")
	}
	return line, nil
}

// textLine renders a fixed line of text.
func textLine(line string) func(io.Writer, ux.Styles) error {
	return func(w io.Writer, _ ux.Styles) error {
		_, err := fmt.Fprintln(w, line)
		return err
	}
}
