package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type ThreadRepositoryMock struct {
	mock.Mock
}

func (m *ThreadRepositoryMock) CreateOrGetThread(ctx context.Context, initiatorID, recipientID int, subject *string, listingID *int) (models.Thread, error) {
	args := m.Called(ctx, initiatorID, recipientID, subject, listingID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) GetThread(ctx context.Context, threadID int) (models.Thread, error) {
	args := m.Called(ctx, threadID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) ListThreads(ctx context.Context, userID int) ([]models.Thread, error) {
	args := m.Called(ctx, userID)
	var list []models.Thread
	if val := args.Get(0); val != nil {
		list = val.([]models.Thread)
	}
	return list, args.Error(1)
}

func (m *ThreadRepositoryMock) TouchLastMessageAt(ctx context.Context, threadID int, at time.Time) error {
	args := m.Called(ctx, threadID, at)
	return args.Error(0)
}

func (m *ThreadRepositoryMock) UpdateStatus(ctx context.Context, threadID int, status string) error {
	args := m.Called(ctx, threadID, status)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, params repositories.CreateMessageParams) (models.Message, error) {
	args := m.Called(ctx, params)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListThreadMessages(ctx context.Context, threadID int) ([]models.Message, error) {
	args := m.Called(ctx, threadID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkThreadRead(ctx context.Context, threadID, recipientID int) (int64, error) {
	args := m.Called(ctx, threadID, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, threadIDs []int, recipientID int) (map[int]int, error) {
	args := m.Called(ctx, threadIDs, recipientID)
	var counts map[int]int
	if val := args.Get(0); val != nil {
		counts = val.(map[int]int)
	}
	return counts, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadTotal(ctx context.Context, recipientID int) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) LastMessages(ctx context.Context, threadIDs []int) (map[int]models.Message, error) {
	args := m.Called(ctx, threadIDs)
	var latest map[int]models.Message
	if val := args.Get(0); val != nil {
		latest = val.(map[int]models.Message)
	}
	return latest, args.Error(1)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) BulkProfiles(ctx context.Context, userIDs []int) ([]models.Profile, error) {
	args := m.Called(ctx, userIDs)
	var profiles []models.Profile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.Profile)
	}
	return profiles, args.Error(1)
}

var _ repositories.ThreadRepository = (*ThreadRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)
