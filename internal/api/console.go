package api

import (
	"context"

	"github.com/felixgeelhaar/candidash/internal/menu"
)

// Console endpoints.
const (
	PathMenu        = "/api/menu"
	PathAdminUsers  = "/api/admin/users"
	PathRoles       = "/api/roles"
	PathPermissions = "/api/roles/permissions"
)

// AdminUser is an admin account as listed by the backend.
type AdminUser struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	RoleID      int64    `json:"roleId"`
	RoleName    string   `json:"roleName"`
	StateID     *int64   `json:"stateId,omitempty"`
	StateName   string   `json:"stateName,omitempty"`
	CityID      *int64   `json:"cityId,omitempty"`
	CityName    string   `json:"cityName,omitempty"`
	IsActive    bool     `json:"isActive"`
	LastLogin   string   `json:"lastLogin,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Role is a named permission bundle.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	IsActive    bool     `json:"isActive"`
	Permissions []string `json:"permissions"`
}

// Permission is a permission code definition.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Module      string `json:"module,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Menu fetches the navigation tree for the current admin.
func (c *Client) Menu(ctx context.Context) ([]menu.Item, error) {
	var items []menu.Item
	if err := c.getJSON(ctx, PathMenu, SchemaMenuList, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AdminUsers lists admin accounts.
func (c *Client) AdminUsers(ctx context.Context) ([]AdminUser, error) {
	var users []AdminUser
	if err := c.getJSON(ctx, PathAdminUsers, SchemaAdminUserList, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Roles lists roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.getJSON(ctx, PathRoles, SchemaRoleList, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// Permissions lists permission definitions.
func (c *Client) Permissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	if err := c.getJSON(ctx, PathPermissions, SchemaPermissionList, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}
