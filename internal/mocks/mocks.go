package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UpdateAck(ctx context.Context, messageID string, ack int) error {
	args := m.Called(ctx, messageID, ack)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListDistinctChats(ctx context.Context, filter repositories.ChatFilter) ([]models.ChatSummary, error) {
	args := m.Called(ctx, filter)
	var summaries []models.ChatSummary
	if val := args.Get(0); val != nil {
		summaries = val.([]models.ChatSummary)
	}
	return summaries, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadByChat(ctx context.Context, filter repositories.ChatFilter) (map[string]int, error) {
	args := m.Called(ctx, filter)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

func (m *MessageRepositoryMock) MarkChatRead(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteChat(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

type LeadRepositoryMock struct {
	mock.Mock
}

func (m *LeadRepositoryMock) List(ctx context.Context) ([]models.Lead, error) {
	args := m.Called(ctx)
	var leads []models.Lead
	if val := args.Get(0); val != nil {
		leads = val.([]models.Lead)
	}
	return leads, args.Error(1)
}

func (m *LeadRepositoryMock) ListByResponsible(ctx context.Context, userID int) ([]models.Lead, error) {
	args := m.Called(ctx, userID)
	var leads []models.Lead
	if val := args.Get(0); val != nil {
		leads = val.([]models.Lead)
	}
	return leads, args.Error(1)
}

func (m *LeadRepositoryMock) Get(ctx context.Context, leadID int) (models.Lead, error) {
	args := m.Called(ctx, leadID)
	var lead models.Lead
	if val := args.Get(0); val != nil {
		lead = val.(models.Lead)
	}
	return lead, args.Error(1)
}

func (m *LeadRepositoryMock) Create(ctx context.Context, lead models.Lead) (models.Lead, error) {
	args := m.Called(ctx, lead)
	var created models.Lead
	if val := args.Get(0); val != nil {
		created = val.(models.Lead)
	}
	return created, args.Error(1)
}

func (m *LeadRepositoryMock) Update(ctx context.Context, lead models.Lead) (models.Lead, error) {
	args := m.Called(ctx, lead)
	var updated models.Lead
	if val := args.Get(0); val != nil {
		updated = val.(models.Lead)
	}
	return updated, args.Error(1)
}

func (m *LeadRepositoryMock) Delete(ctx context.Context, leadID int) error {
	args := m.Called(ctx, leadID)
	return args.Error(0)
}

func (m *LeadRepositoryMock) Assign(ctx context.Context, leadID int, newResponsibleID *int, assignedBy int) (models.Lead, error) {
	args := m.Called(ctx, leadID, newResponsibleID, assignedBy)
	var lead models.Lead
	if val := args.Get(0); val != nil {
		lead = val.(models.Lead)
	}
	return lead, args.Error(1)
}

func (m *LeadRepositoryMock) ListStages(ctx context.Context) ([]models.Stage, error) {
	args := m.Called(ctx)
	var stages []models.Stage
	if val := args.Get(0); val != nil {
		stages = val.([]models.Stage)
	}
	return stages, args.Error(1)
}

func (m *LeadRepositoryMock) AssignmentHistory(ctx context.Context, leadID int) ([]models.LeadAssignment, error) {
	args := m.Called(ctx, leadID)
	var history []models.LeadAssignment
	if val := args.Get(0); val != nil {
		history = val.([]models.LeadAssignment)
	}
	return history, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Get(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}
