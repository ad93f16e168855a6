// Package access evaluates a requester's permission set against a
// required capability. Every capability's default is defined exactly
// once, in the table below.
package access

import (
	"errors"

	"leadchat-service/internal/models"
)

// ErrForbidden reports a failed capability check. It is never downgraded
// to an empty result by callers.
var ErrForbidden = errors.New("forbidden")

// Capability names.
const (
	CapViewChat         = "canViewChat"
	CapViewAllLeads     = "canViewAllLeads"
	CapViewOwnLeads     = "canViewOwnLeads"
	CapViewCRM          = "canViewCRM"
	CapViewDashboard    = "canViewDashboard"
	CapSendMessages     = "canSendMessages"
	CapAssignLeads      = "canAssignLeads"
	CapManageUsers      = "canManageUsers"
	CapDeleteChats      = "canDeleteChats"
	CapManageConnection = "canManageConnection"
	CapExportLeads      = "canExportLeads"
	CapSearchPlaces     = "canSearchPlaces"
)

// defaults is the value a capability takes when the requester has no
// access group or the group omits the flag. Baseline usability flags
// default to true, everything else to false.
var defaults = map[string]bool{
	CapViewChat:         false,
	CapViewAllLeads:     false,
	CapViewOwnLeads:     true,
	CapViewCRM:          true,
	CapViewDashboard:    true,
	CapSendMessages:     false,
	CapAssignLeads:      false,
	CapManageUsers:      false,
	CapDeleteChats:      false,
	CapManageConnection: false,
	CapExportLeads:      false,
	CapSearchPlaces:     false,
}

// Gate performs capability checks. It holds no state and has no side
// effects.
type Gate struct{}

// NewGate builds a Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Allowed reports whether the user holds the capability. SUPER_ADMIN
// always does.
func (g *Gate) Allowed(user models.User, capability string) bool {
	if user.Role == models.RoleSuperAdmin {
		return true
	}
	if user.Permissions != nil {
		if granted, ok := user.Permissions[capability]; ok {
			return granted
		}
	}
	return defaults[capability]
}

// Authorize returns ErrForbidden when the user lacks the capability.
func (g *Gate) Authorize(user models.User, capability string) error {
	if !g.Allowed(user, capability) {
		return ErrForbidden
	}
	return nil
}
