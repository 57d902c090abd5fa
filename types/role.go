package types

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Flag categories accepted by role flag toggling.
const (
	CategoryPanels      = "panels"
	CategoryPermissions = "permissions"
)

// Flag is a boolean persisted and serialised as 0/1. It decodes JSON
// booleans, 0/1 numbers and null.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", `"1"`, `"true"`:
		*f = true
	case "false", "0", "null", `"0"`, `"false"`, `""`:
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

// Value implements driver.Valuer.
func (f Flag) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

// Scan implements sql.Scanner.
func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case int64:
		*f = v != 0
	case int32:
		*f = v != 0
	case bool:
		*f = Flag(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scanning flag: %w", err)
		}
		*f = n != 0
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scanning flag: %w", err)
		}
		*f = n != 0
	default:
		return fmt.Errorf("scanning flag: unsupported type %T", src)
	}
	return nil
}

// PanelFlags controls which panel sections a role can see.
type PanelFlags struct {
	Admin Flag `json:"panelAdmin" db:"panel_admin"`
	User  Flag `json:"panelUser" db:"panel_user"`
	Logs  Flag `json:"panelLogs" db:"panel_logs"`
}

// PermissionFlags controls which actions a role can perform.
type PermissionFlags struct {
	Delete   Flag `json:"canDelete" db:"can_delete"`
	Create   Flag `json:"canCreate" db:"can_create"`
	Edit     Flag `json:"canEdit" db:"can_edit"`
	ViewLogs Flag `json:"canViewLogs" db:"can_view_logs"`
}

// Role is a named set of panel and permission flags. Users reference a role
// by its name.
type Role struct {
	// ID is the unique identifier of the role.
	ID int64 `json:"id" db:"id"`

	// Name is the de facto key users reference.
	Name string `json:"name" db:"name"`

	PanelFlags
	PermissionFlags

	// Emoji is a display icon. Nothing but the console reads it.
	Emoji string `json:"emoji" db:"emoji"`
}

// NewRole returns a role with the defaults used for newly created roles:
// the user panel is visible and every other flag is off.
func NewRole(name string) Role {
	return Role{
		Name:       name,
		PanelFlags: PanelFlags{User: true},
	}
}

// FullAccessRole returns a role with every flag set.
func FullAccessRole(name string) Role {
	return Role{
		Name:            name,
		PanelFlags:      PanelFlags{Admin: true, User: true, Logs: true},
		PermissionFlags: PermissionFlags{Delete: true, Create: true, Edit: true, ViewLogs: true},
	}
}

// FlagRef returns a pointer to the named flag, or nil when the category or
// flag name is unknown.
func (r *Role) FlagRef(category, flag string) *Flag {
	switch category {
	case CategoryPanels:
		switch flag {
		case "admin":
			return &r.PanelFlags.Admin
		case "user":
			return &r.PanelFlags.User
		case "logs":
			return &r.PanelFlags.Logs
		}
	case CategoryPermissions:
		switch flag {
		case "delete":
			return &r.PermissionFlags.Delete
		case "create":
			return &r.PermissionFlags.Create
		case "edit":
			return &r.PermissionFlags.Edit
		case "viewLogs":
			return &r.PermissionFlags.ViewLogs
		}
	}
	return nil
}
