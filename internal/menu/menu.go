// Package menu filters the navigation tree served by the backend down to the
// entries the current admin may open.
package menu

import (
	"sort"

	"github.com/felixgeelhaar/candidash/internal/permission"
)

// Item is one navigation entry.
type Item struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Label              string `json:"label"`
	Icon               string `json:"icon,omitempty"`
	Path               string `json:"path,omitempty"`
	ParentID           *int64 `json:"parentId,omitempty"`
	MenuGroupID        *int64 `json:"menuGroupId,omitempty"`
	MenuGroupName      string `json:"menuGroupName,omitempty"`
	SortOrder          int    `json:"sortOrder"`
	RequiredPermission string `json:"requiredPermission,omitempty"`
	IsActive           bool   `json:"isActive"`
	Children           []Item `json:"children,omitempty"`
}

// Requirement returns the item's permission requirement, nil when it has none.
func (i Item) Requirement() *permission.Requirement {
	if i.RequiredPermission == "" {
		return nil
	}
	return permission.Require(i.RequiredPermission)
}

// Visible returns the items the permission set may see, sorted by SortOrder.
// Inactive items and items whose required permission is not granted are
// dropped together with their children. A parent whose children were all
// dropped is kept only if it has a path of its own.
func Visible(items []Item, set permission.Set) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.IsActive {
			continue
		}
		if req := it.Requirement(); req != nil && !req.SatisfiedBy(set) {
			continue
		}
		if len(it.Children) > 0 {
			it.Children = Visible(it.Children, set)
			if len(it.Children) == 0 && it.Path == "" {
				continue
			}
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// Flatten returns the items depth-first, parents before children.
func Flatten(items []Item) []Item {
	var out []Item
	var walk func([]Item)
	walk = func(items []Item) {
		for _, it := range items {
			out = append(out, it)
			walk(it.Children)
		}
	}
	walk(items)
	return out
}

// Fallback is the menu shown when the backend menu is unavailable.
func Fallback() []Item {
	return []Item{
		{ID: 1, Name: "dashboard", Label: "Dashboard", Icon: "Dashboard", Path: "/dashboard", SortOrder: 1, IsActive: true},
	}
}
