package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// User roles.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleSeller     = "SELLER"
)

// User is a dashboard account. Permissions come from the optional access
// group; SUPER_ADMIN bypasses every capability check.
type User struct {
	ID            int           `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Email         string        `db:"email" json:"email"`
	Role          string        `db:"role" json:"role"`
	AccessGroupID *int          `db:"access_group_id" json:"access_group_id,omitempty"`
	Permissions   PermissionSet `db:"-" json:"permissions,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// AccessGroup is a named bundle of capability flags.
type AccessGroup struct {
	ID          int           `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Permissions PermissionSet `db:"permissions" json:"permissions"`
}

// PermissionSet maps capability names to granted/denied. Stored as JSONB.
type PermissionSet map[string]bool

// Value implements driver.Valuer for JSONB storage.
func (p PermissionSet) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage.
func (p *PermissionSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = PermissionSet{}
		return nil
	}
	return errors.New("unsupported permission set source")
}
