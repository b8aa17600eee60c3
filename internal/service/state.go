package service

import (
	"context"
	"time"

	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/models"

	"github.com/rs/zerolog"
)

// StateService keeps pending flow sessions and rate limit counters.
type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

func (s *StateService) GetSession(ctx context.Context, key models.SessionKey) (*models.Session, error) {
	session, err := s.stateRepo.GetSession(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("session", key.String()).Msg("failed to get session")
		return nil, err
	}
	return session, nil
}

// SaveSession stamps UpdatedAt and stores the session.
func (s *StateService) SaveSession(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	if session.Data == nil {
		session.Data = make(map[string]string)
	}
	if err := s.stateRepo.SetSession(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session", session.Key().String()).Msg("failed to save session")
		return err
	}
	return nil
}

func (s *StateService) ClearSession(ctx context.Context, key models.SessionKey) error {
	return s.stateRepo.ClearSession(ctx, key)
}

func (s *StateService) CheckRateLimit(ctx context.Context, senderID int64, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, senderID, limit, window)
}
