package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"blakkisvuohi/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) GetSession(ctx context.Context, key models.SessionKey) (*models.Session, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockStateRepository) SetSession(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockStateRepository) ClearSession(ctx context.Context, key models.SessionKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStateRepository) CheckRateLimit(ctx context.Context, senderID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, senderID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestStateService_GetSession(t *testing.T) {
	mockRepo := new(MockStateRepository)
	logger := zerolog.Nop()
	s := NewStateService(mockRepo, &logger)
	ctx := context.Background()
	key := models.SessionKey{ChatID: 1, SenderID: 123}

	t.Run("Success", func(t *testing.T) {
		expected := &models.Session{ChatID: 1, SenderID: 123, Command: "/register"}
		mockRepo.On("GetSession", ctx, key).Return(expected, nil).Once()

		got, err := s.GetSession(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("Error", func(t *testing.T) {
		mockRepo.On("GetSession", ctx, key).Return(nil, errors.New("redis down")).Once()

		got, err := s.GetSession(ctx, key)
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestStateService_SaveSession(t *testing.T) {
	mockRepo := new(MockStateRepository)
	logger := zerolog.Nop()
	s := NewStateService(mockRepo, &logger)
	ctx := context.Background()

	mockRepo.On("SetSession", ctx, mock.MatchedBy(func(session *models.Session) bool {
		return session.Command == "/juoma" && session.Data != nil && !session.UpdatedAt.IsZero()
	})).Return(nil).Once()

	require.NoError(t, s.SaveSession(ctx, &models.Session{ChatID: 1, SenderID: 2, Command: "/juoma"}))
	mockRepo.AssertExpectations(t)

	mockRepo.On("SetSession", ctx, mock.Anything).Return(errors.New("fail")).Once()
	assert.Error(t, s.SaveSession(ctx, &models.Session{}))
}

func TestStateService_ClearAndRateLimit(t *testing.T) {
	mockRepo := new(MockStateRepository)
	logger := zerolog.Nop()
	s := NewStateService(mockRepo, &logger)
	ctx := context.Background()
	key := models.SessionKey{ChatID: 1, SenderID: 2}

	mockRepo.On("ClearSession", ctx, key).Return(nil).Once()
	mockRepo.On("CheckRateLimit", ctx, int64(2), 20, time.Minute).Return(false, nil).Once()

	require.NoError(t, s.ClearSession(ctx, key))
	allowed, err := s.CheckRateLimit(ctx, 2, 20, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	mockRepo.AssertExpectations(t)
}
