package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/auth"
	"github.com/felixgeelhaar/candidash/internal/menu"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

// Console routes backing the listing commands.
const (
	routeDashboard   = "/dashboard"
	routeAdmins      = "/admin-management"
	routeRoles       = "/role-management"
	routePermissions = "/permission-management"
)

func newMenuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Show the navigation menu for the session",
		Long: `Show the navigation menu the backend serves for the session, reduced to the
entries the session's permissions allow. When the menu cannot be loaded the
dashboard entry is shown on its own.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := cc.Require(ctx, routeDashboard)
			if err != nil {
				return err
			}

			items, err := cc.Client().Menu(ctx)
			switch {
			case auth.IsAuthError(err, auth.ErrSessionExpired):
				return cc.backendError(err)
			case err != nil:
				cc.Logger.WithError(err).Warn("failed to load menu, showing the fallback")
				items = menu.Fallback()
			}

			visible := menu.Visible(items, m.Snapshot().Permissions())
			return cc.Printer.Emit(visible, func(w io.Writer, s ux.Styles) error {
				renderMenu(w, s, visible, 0)
				return nil
			})
		}),
	}
}

func renderMenu(w io.Writer, s ux.Styles, items []menu.Item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		line := indent + s.Value.Render(it.Label)
		if it.Path != "" {
			line += " " + s.Muted.Render(it.Path)
		}
		fmt.Fprintln(w, line)
		renderMenu(w, s, it.Children, depth+1)
	}
}

func newAdminsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "admins",
		Short: "List admin accounts",
		Long:  `List admin accounts. Requires the ADMIN_MANAGE permission.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			if _, err := cc.Require(ctx, routeAdmins); err != nil {
				return err
			}
			users, err := cc.Client().AdminUsers(ctx)
			if err != nil {
				return cc.backendError(err)
			}

			return cc.Printer.Emit(users, func(w io.Writer, s ux.Styles) error {
				t := newTable("ID", "USERNAME", "NAME", "ROLE", "SCOPE", "ACTIVE")
				for _, u := range users {
					name := strings.TrimSpace(u.FirstName + " " + u.LastName)
					scope := strings.TrimSuffix(u.StateName+" / "+u.CityName, " / ")
					t.Row(strconv.FormatInt(u.ID, 10), u.Username, name, u.RoleName, scope, s.Mark(u.IsActive))
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}
}

func newRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List roles and their permissions",
		Long:  `List roles and their permissions. Requires the ROLE_MANAGE permission.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			if _, err := cc.Require(ctx, routeRoles); err != nil {
				return err
			}
			roles, err := cc.Client().Roles(ctx)
			if err != nil {
				return cc.backendError(err)
			}

			return cc.Printer.Emit(roles, func(w io.Writer, s ux.Styles) error {
				t := newTable("ID", "ROLE", "PERMISSIONS", "ACTIVE")
				for _, r := range roles {
					t.Row(strconv.FormatInt(r.ID, 10), r.Name, strings.Join(r.Permissions, ", "), s.Mark(r.IsActive))
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}
}

func newPermissionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Short: "List permission codes",
		Long:  `List permission codes. Requires the PERMISSION_MANAGE permission.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			if _, err := cc.Require(ctx, routePermissions); err != nil {
				return err
			}
			perms, err := cc.Client().Permissions(ctx)
			if err != nil {
				return cc.backendError(err)
			}

			return cc.Printer.Emit(perms, func(w io.Writer, s ux.Styles) error {
				t := newTable("CODE", "NAME", "MODULE", "ACTIVE")
				for _, p := range perms {
					t.Row(p.Code, p.Name, p.Module, s.Mark(p.IsActive))
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}
