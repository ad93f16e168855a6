package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadchat-service/internal/models"
)

func TestSuperAdminBypassesEverything(t *testing.T) {
	gate := NewGate()
	admin := models.User{ID: 1, Role: models.RoleSuperAdmin}

	for capability := range defaults {
		assert.NoError(t, gate.Authorize(admin, capability))
	}
}

func TestGroupPermissionsOverrideDefaults(t *testing.T) {
	gate := NewGate()
	seller := models.User{
		ID:   2,
		Role: models.RoleSeller,
		Permissions: models.PermissionSet{
			CapViewChat:     true,
			CapViewOwnLeads: false,
		},
	}

	assert.NoError(t, gate.Authorize(seller, CapViewChat))
	assert.ErrorIs(t, gate.Authorize(seller, CapViewOwnLeads), ErrForbidden)
}

func TestMissingBundleFallsBackToDefaults(t *testing.T) {
	gate := NewGate()
	seller := models.User{ID: 3, Role: models.RoleSeller}

	assert.NoError(t, gate.Authorize(seller, CapViewOwnLeads))
	assert.NoError(t, gate.Authorize(seller, CapViewCRM))
	assert.NoError(t, gate.Authorize(seller, CapViewDashboard))

	assert.ErrorIs(t, gate.Authorize(seller, CapViewChat), ErrForbidden)
	assert.ErrorIs(t, gate.Authorize(seller, CapViewAllLeads), ErrForbidden)
	assert.ErrorIs(t, gate.Authorize(seller, CapManageUsers), ErrForbidden)
}

func TestUnknownCapabilityDenied(t *testing.T) {
	gate := NewGate()
	seller := models.User{ID: 4, Role: models.RoleSeller}

	assert.ErrorIs(t, gate.Authorize(seller, "canDoAnything"), ErrForbidden)
}
