package repository

import (
	"context"
	"sync/atomic"
	"time"

	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary until it fails, then from
// fallback, probing primary again once per recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary state repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverStateRepository) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func (r *FailoverStateRepository) GetSession(ctx context.Context, key models.SessionKey) (*models.Session, error) {
	if r.usePrimary() {
		s, err := r.primary.GetSession(ctx, key)
		if err == nil {
			r.recovered()
			return s, nil
		}
		r.markDown("get", err)
	}
	return r.fallback.GetSession(ctx, key)
}

func (r *FailoverStateRepository) SetSession(ctx context.Context, session *models.Session) error {
	if r.usePrimary() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown("set", err)
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverStateRepository) ClearSession(ctx context.Context, key models.SessionKey) error {
	// a session may live in either store after a failover
	_ = r.fallback.ClearSession(ctx, key)

	if r.usePrimary() {
		err := r.primary.ClearSession(ctx, key)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown("clear", err)
	}
	return nil
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, senderID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, senderID, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown("rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, senderID, limit, window)
}
