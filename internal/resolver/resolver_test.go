package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadchat-service/internal/access"
	"leadchat-service/internal/mocks"
	"leadchat-service/internal/models"
	"leadchat-service/internal/phone"
	"leadchat-service/internal/repositories"
)

func newResolver(leadRepo repositories.LeadRepository) *Resolver {
	return New(phone.New("55"), leadRepo, access.NewGate())
}

func TestLeadForChatIDMatchesPrefixVariants(t *testing.T) {
	r := newResolver(nil)
	leads := []models.Lead{
		{ID: 1, Name: "Bakery", Phone: "(14) 99760-3870"},
		{ID: 2, Name: "Garage", Phone: "5511987654321"},
	}

	match := r.LeadForChatID("5514997603870@c.us", leads)
	require.NotNil(t, match)
	assert.Equal(t, 1, match.ID)

	match = r.LeadForChatID("5511987654321@s.whatsapp.net", leads)
	require.NotNil(t, match)
	assert.Equal(t, 2, match.ID)

	assert.Nil(t, r.LeadForChatID("5511911112222@s.whatsapp.net", leads))
}

func TestLeadForChatIDTieBreakMostRecent(t *testing.T) {
	r := newResolver(nil)
	// List order is updated_at desc; the first match wins.
	newer := models.Lead{ID: 7, Name: "Newer", Phone: "14997603870", UpdatedAt: time.Now()}
	older := models.Lead{ID: 3, Name: "Older", Phone: "5514997603870", UpdatedAt: time.Now().Add(-time.Hour)}

	match := r.LeadForChatID("5514997603870@s.whatsapp.net", []models.Lead{newer, older})
	require.NotNil(t, match)
	assert.Equal(t, 7, match.ID)
}

func TestVisibleChatFilterAllLeads(t *testing.T) {
	r := newResolver(new(mocks.LeadRepositoryMock))
	admin := models.User{ID: 1, Role: models.RoleSuperAdmin}

	filter, err := r.VisibleChatFilter(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, filter.All)
}

func TestVisibleChatFilterOwnedLeadsOnly(t *testing.T) {
	leadRepo := new(mocks.LeadRepositoryMock)
	r := newResolver(leadRepo)
	seller := models.User{ID: 4, Role: models.RoleSeller}

	leadRepo.On("ListByResponsible", mock.Anything, 4).
		Return([]models.Lead{{ID: 1, Phone: "14997603870", ResponsibleID: &seller.ID}}, nil).Once()

	filter, err := r.VisibleChatFilter(context.Background(), seller)
	require.NoError(t, err)
	assert.False(t, filter.All)
	assert.Contains(t, filter.ChatIDs, "14997603870@s.whatsapp.net")
	assert.Contains(t, filter.ChatIDs, "5514997603870@s.whatsapp.net")
	leadRepo.AssertExpectations(t)
}

func TestVisibleChatFilterNoOwnedLeadsIsEmpty(t *testing.T) {
	leadRepo := new(mocks.LeadRepositoryMock)
	r := newResolver(leadRepo)
	seller := models.User{ID: 9, Role: models.RoleSeller}

	leadRepo.On("ListByResponsible", mock.Anything, 9).Return([]models.Lead(nil), nil).Once()

	filter, err := r.VisibleChatFilter(context.Background(), seller)
	require.NoError(t, err)
	assert.True(t, filter.Empty())
	leadRepo.AssertExpectations(t)
}
